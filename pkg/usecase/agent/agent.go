package agent

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/access"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UseCase manages agents and keeps their brand profile memory in sync
type UseCase struct {
	repo  repository.Repository
	store *memory.Store
	now   func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new agent UseCase instance
func New(repo repository.Repository, store *memory.Store, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:  repo,
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

func profileMetadata(businessID model.BusinessID) map[string]string {
	return map[string]string{
		model.MemoryTypeKey: model.MemoryTypeBusinessProfile,
		"businessId":        string(businessID),
	}
}

// Create builds a new agent for a business owned by the user and stores the
// brand profile as its memory
func (u *UseCase) Create(ctx context.Context, userID model.UserID, businessID model.BusinessID, agentName string) (*model.Agent, error) {
	name := strings.TrimSpace(agentName)
	if name == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "agent name is required")
	}

	business, err := access.OwnedBusiness(ctx, u.repo, userID, businessID)
	if err != nil {
		return nil, err
	}

	profile := memory.BuildProfile(ctx, business)
	now := u.now()
	agent := &model.Agent{
		ID:         model.NewAgentID(),
		BusinessID: business.ID,
		AgentName:  name,
		Memory:     profile,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := u.repo.PutAgent(ctx, agent); err != nil {
		return nil, goerr.Wrap(err, "failed to save agent", goerr.V("business_id", businessID))
	}

	if _, err := u.store.UpsertProfileMemory(ctx, agent.ID, profile, profileMetadata(business.ID)); err != nil {
		if delErr := u.repo.DeleteAgent(ctx, agent.ID); delErr != nil {
			logging.From(ctx).Error("failed to roll back agent", "error", delErr, "agent_id", agent.ID)
		}
		return nil, goerr.Wrap(err, "failed to store agent memory", goerr.V("agent_id", agent.ID))
	}

	logging.From(ctx).Info("agent created", "agent_id", agent.ID, "business_id", business.ID)
	return agent, nil
}

// RefreshMemory regenerates the brand profile of an agent from the current
// business record
func (u *UseCase) RefreshMemory(ctx context.Context, userID model.UserID, agentID model.AgentID) (*model.Agent, error) {
	agent, business, err := access.OwnedAgent(ctx, u.repo, userID, agentID)
	if err != nil {
		return nil, err
	}

	profile := memory.BuildProfile(ctx, business)
	if _, err := u.store.UpsertProfileMemory(ctx, agent.ID, profile, profileMetadata(business.ID)); err != nil {
		return nil, goerr.Wrap(err, "failed to store agent memory", goerr.V("agent_id", agent.ID))
	}

	agent.Memory = profile
	agent.UpdatedAt = u.now()
	if err := u.repo.PutAgent(ctx, agent); err != nil {
		return nil, goerr.Wrap(err, "failed to save agent", goerr.V("agent_id", agent.ID))
	}

	return agent, nil
}

// Get returns an agent whose business is owned by the user
func (u *UseCase) Get(ctx context.Context, userID model.UserID, agentID model.AgentID) (*model.Agent, error) {
	agent, _, err := access.OwnedAgent(ctx, u.repo, userID, agentID)
	return agent, err
}

// ListByBusiness returns the agents of a business owned by the user, newest first
func (u *UseCase) ListByBusiness(ctx context.Context, userID model.UserID, businessID model.BusinessID) ([]*model.Agent, error) {
	if _, err := access.OwnedBusiness(ctx, u.repo, userID, businessID); err != nil {
		return nil, err
	}

	agents, err := u.repo.ListAgentsByBusiness(ctx, businessID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list agents", goerr.V("business_id", businessID))
	}
	if agents == nil {
		agents = []*model.Agent{}
	}
	return agents, nil
}

// Delete removes an agent with its memories, messages and contents
func (u *UseCase) Delete(ctx context.Context, userID model.UserID, agentID model.AgentID) error {
	if _, _, err := access.OwnedAgent(ctx, u.repo, userID, agentID); err != nil {
		return err
	}
	if err := u.repo.DeleteAgent(ctx, agentID); err != nil {
		return goerr.Wrap(err, "failed to delete agent", goerr.V("agent_id", agentID))
	}
	return nil
}
