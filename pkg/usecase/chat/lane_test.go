package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestLanesDroppedWhenIdle(t *testing.T) {
	l := newLanes()
	a, b := model.NewAgentID(), model.NewAgentID()

	lnA := l.acquire(a)
	lnB := l.acquire(b)
	gt.Equal(t, l.size(), 2)

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ln := l.acquire(a)
		close(acquired)
		l.release(a, ln)
	}()

	select {
	case <-acquired:
		t.Fatal("lane of the same agent must not be acquired twice")
	case <-time.After(10 * time.Millisecond):
	}

	l.release(b, lnB)
	gt.Equal(t, l.size(), 1)

	l.release(a, lnA)
	wg.Wait()
	gt.Equal(t, l.size(), 0)
}

func TestLanesStampIncreasing(t *testing.T) {
	l := newLanes()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := l.stamp(now)
	second := l.stamp(now)
	third := l.stamp(now.Add(-time.Hour))

	gt.Equal(t, first, now)
	gt.True(t, second.After(first))
	gt.True(t, third.After(second))
}
