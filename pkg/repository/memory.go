package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory is an in-process Repository. Every operation runs under one lock, so
// ReplaceMemories is atomic for readers. Records are copied on the way in and
// out.
type Memory struct {
	mu sync.RWMutex

	users      map[model.UserID]*model.User
	businesses map[model.BusinessID]*model.Business
	agents     map[model.AgentID]*model.Agent

	// per agent, insertion ordered
	memories map[model.AgentID][]*model.Memory
	messages map[model.AgentID][]*model.Message
	contents map[model.AgentID][]*model.GeneratedContent
}

var _ Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[model.UserID]*model.User),
		businesses: make(map[model.BusinessID]*model.Business),
		agents:     make(map[model.AgentID]*model.Agent),
		memories:   make(map[model.AgentID][]*model.Memory),
		messages:   make(map[model.AgentID][]*model.Message),
		contents:   make(map[model.AgentID][]*model.GeneratedContent),
	}
}

func copyOf[T any](v *T) *T {
	c := *v
	return &c
}

func (r *Memory) PutUser(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID != user.ID && strings.EqualFold(u.Email, user.Email) {
			return goerr.Wrap(model.ErrConflict, "email already exists", goerr.V("email", user.Email))
		}
	}
	r.users[user.ID] = copyOf(user)
	return nil
}

func (r *Memory) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("user_id", id))
	}
	return copyOf(user), nil
}

func (r *Memory) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return copyOf(u), nil
		}
	}
	return nil, goerr.Wrap(model.ErrNotFound, "user not found", goerr.V("email", email))
}

func (r *Memory) PutBusiness(ctx context.Context, business *model.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.businesses[business.ID] = copyOf(business)
	return nil
}

func (r *Memory) GetBusiness(ctx context.Context, id model.BusinessID) (*model.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	business, ok := r.businesses[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "business not found", goerr.V("business_id", id))
	}
	return copyOf(business), nil
}

func (r *Memory) ListBusinessesByUser(ctx context.Context, userID model.UserID) ([]*model.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Business
	for _, b := range r.businesses {
		if b.UserID == userID {
			result = append(result, copyOf(b))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Memory) DeleteBusiness(ctx context.Context, id model.BusinessID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.businesses[id]; !ok {
		return goerr.Wrap(model.ErrNotFound, "business not found", goerr.V("business_id", id))
	}

	for agentID, agent := range r.agents {
		if agent.BusinessID == id {
			r.deleteAgentLocked(agentID)
		}
	}
	delete(r.businesses, id)
	return nil
}

func (r *Memory) PutAgent(ctx context.Context, agent *model.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.agents[agent.ID] = copyOf(agent)
	return nil
}

func (r *Memory) GetAgent(ctx context.Context, id model.AgentID) (*model.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "agent not found", goerr.V("agent_id", id))
	}
	return copyOf(agent), nil
}

func (r *Memory) ListAgentsByBusiness(ctx context.Context, businessID model.BusinessID) ([]*model.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Agent
	for _, a := range r.agents {
		if a.BusinessID == businessID {
			result = append(result, copyOf(a))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Memory) DeleteAgent(ctx context.Context, id model.AgentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[id]; !ok {
		return goerr.Wrap(model.ErrNotFound, "agent not found", goerr.V("agent_id", id))
	}
	r.deleteAgentLocked(id)
	return nil
}

func (r *Memory) deleteAgentLocked(id model.AgentID) {
	delete(r.agents, id)
	delete(r.memories, id)
	delete(r.messages, id)
	delete(r.contents, id)
}

func (r *Memory) PutMemory(ctx context.Context, memory *model.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memories[memory.AgentID] = append(r.memories[memory.AgentID], copyMemory(memory))
	return nil
}

func (r *Memory) ReplaceMemories(ctx context.Context, agentID model.AgentID, memoryType string, memory *model.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]*model.Memory, 0, len(r.memories[agentID])+1)
	for _, m := range r.memories[agentID] {
		if m.Type() != memoryType {
			kept = append(kept, m)
		}
	}
	r.memories[agentID] = append(kept, copyMemory(memory))
	return nil
}

func (r *Memory) ListMemories(ctx context.Context, agentID model.AgentID, limit int) ([]*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.memories[agentID]
	result := make([]*model.Memory, 0, len(stored))
	// newest first; insertion order breaks CreatedAt ties
	for i := len(stored) - 1; i >= 0; i-- {
		result = append(result, copyMemory(stored[i]))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyMemory(m *model.Memory) *model.Memory {
	c := *m
	if m.Metadata != nil {
		c.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	if m.Embedding != nil {
		c.Embedding = append(c.Embedding[:0:0], m.Embedding...)
	}
	return &c
}

func (r *Memory) PutMessage(ctx context.Context, message *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages[message.AgentID] = append(r.messages[message.AgentID], copyOf(message))
	return nil
}

func (r *Memory) ListMessages(ctx context.Context, agentID model.AgentID) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.messagesLocked(agentID), nil
}

func (r *Memory) ListRecentMessages(ctx context.Context, agentID model.AgentID, limit int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := r.messagesLocked(agentID)
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (r *Memory) messagesLocked(agentID model.AgentID) []*model.Message {
	stored := r.messages[agentID]
	result := make([]*model.Message, 0, len(stored))
	for _, m := range stored {
		result = append(result, copyOf(m))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (r *Memory) PutContent(ctx context.Context, content *model.GeneratedContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contents[content.AgentID] = append(r.contents[content.AgentID], copyOf(content))
	return nil
}

func (r *Memory) ListContents(ctx context.Context, agentID model.AgentID) ([]*model.GeneratedContent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.contents[agentID]
	result := make([]*model.GeneratedContent, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		result = append(result, copyOf(stored[i]))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
