package chat

import (
	"sync"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
)

// lane serializes the turns of one agent. It lives only while a turn of the
// agent is running or waiting.
type lane struct {
	mu   sync.Mutex
	refs int // guarded by lanes.mu
}

type lanes struct {
	mu    sync.Mutex
	byKey map[model.AgentID]*lane

	stampMu sync.Mutex
	last    time.Time
}

func newLanes() *lanes {
	return &lanes{byKey: make(map[model.AgentID]*lane)}
}

// acquire locks the lane of the agent. The caller must release it.
func (l *lanes) acquire(agentID model.AgentID) *lane {
	l.mu.Lock()
	ln, ok := l.byKey[agentID]
	if !ok {
		ln = &lane{}
		l.byKey[agentID] = ln
	}
	ln.refs++
	l.mu.Unlock()

	ln.mu.Lock()
	return ln
}

// release unlocks the lane and drops it once no turn of the agent holds it
func (l *lanes) release(agentID model.AgentID, ln *lane) {
	ln.mu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	ln.refs--
	if ln.refs == 0 {
		delete(l.byKey, agentID)
	}
}

// stamp hands out strictly increasing message timestamps. The sequence is
// shared by all agents, so it survives a lane being dropped.
func (l *lanes) stamp(now time.Time) time.Time {
	l.stampMu.Lock()
	defer l.stampMu.Unlock()

	if !now.After(l.last) {
		now = l.last.Add(time.Microsecond)
	}
	l.last = now
	return now
}

func (l *lanes) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}
