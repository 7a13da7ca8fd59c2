package agent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/agent"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/gt"
)

// failingMemoryRepo rejects every memory write
type failingMemoryRepo struct {
	*repository.Memory
}

func (r *failingMemoryRepo) ReplaceMemories(ctx context.Context, agentID model.AgentID, memoryType string, m *model.Memory) error {
	return errors.New("memory store unavailable")
}

func tickingClock() func() time.Time {
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

type fixture struct {
	repo     *repository.Memory
	uc       *agent.UseCase
	owner    model.UserID
	business *model.Business
}

func setup(t *testing.T) *fixture {
	ctx := context.Background()
	repo := repository.NewMemory()
	clock := tickingClock()
	store := memory.NewStore(repo, memory.WithClock(clock))

	business := &model.Business{
		ID:        model.NewBusinessID(),
		UserID:    model.NewUserID(),
		Name:      "Acme Bakery",
		Industry:  "Food",
		BrandTone: "friendly",
		CreatedAt: time.Now(),
	}
	gt.NoError(t, repo.PutBusiness(ctx, business))

	return &fixture{
		repo:     repo,
		uc:       agent.New(repo, store, agent.WithClock(clock)),
		owner:    business.UserID,
		business: business,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	a, err := f.uc.Create(ctx, f.owner, f.business.ID, " Baker Bot ")
	gt.NoError(t, err)
	gt.Equal(t, a.AgentName, "Baker Bot")
	gt.Equal(t, a.BusinessID, f.business.ID)
	gt.S(t, a.Memory).Contains("Acme Bakery")

	memories, err := f.repo.ListMemories(ctx, a.ID, 0)
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
	gt.Equal(t, memories[0].Content, a.Memory)
	gt.Equal(t, memories[0].Type(), model.MemoryTypeBusinessProfile)
	gt.Equal(t, memories[0].Metadata["businessId"], string(f.business.ID))
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.uc.Create(ctx, f.owner, f.business.ID, "  ")
	gt.True(t, errors.Is(err, model.ErrInvalidInput))

	_, err = f.uc.Create(ctx, model.NewUserID(), f.business.ID, "Bot")
	gt.True(t, errors.Is(err, model.ErrNotFound))

	_, err = f.uc.Create(ctx, f.owner, model.NewBusinessID(), "Bot")
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestCreateRollsBackOnMemoryFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	repo := &failingMemoryRepo{Memory: f.repo}
	uc := agent.New(repo, memory.NewStore(repo))

	_, err := uc.Create(ctx, f.owner, f.business.ID, "Bot")
	gt.Error(t, err)

	agents, err := f.repo.ListAgentsByBusiness(ctx, f.business.ID)
	gt.NoError(t, err)
	gt.A(t, agents).Length(0)
}

func TestRefreshMemory(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	a, err := f.uc.Create(ctx, f.owner, f.business.ID, "Bot")
	gt.NoError(t, err)

	f.business.Name = "Acme Patisserie"
	gt.NoError(t, f.repo.PutBusiness(ctx, f.business))

	// the stored profile stays stale until refreshed
	stale, err := f.uc.Get(ctx, f.owner, a.ID)
	gt.NoError(t, err)
	gt.S(t, stale.Memory).Contains("Acme Bakery")

	refreshed, err := f.uc.RefreshMemory(ctx, f.owner, a.ID)
	gt.NoError(t, err)
	gt.S(t, refreshed.Memory).Contains("Acme Patisserie")
	gt.True(t, refreshed.UpdatedAt.After(a.UpdatedAt))

	memories, err := f.repo.ListMemories(ctx, a.ID, 0)
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
	gt.S(t, memories[0].Content).Contains("Acme Patisserie")

	_, err = f.uc.RefreshMemory(ctx, model.NewUserID(), a.ID)
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.uc.Create(ctx, f.owner, f.business.ID, "First")
	gt.NoError(t, err)
	second, err := f.uc.Create(ctx, f.owner, f.business.ID, "Second")
	gt.NoError(t, err)

	agents, err := f.uc.ListByBusiness(ctx, f.owner, f.business.ID)
	gt.NoError(t, err)
	gt.A(t, agents).Length(2)
	gt.Equal(t, agents[0].ID, second.ID)
	gt.Equal(t, agents[1].ID, first.ID)

	_, err = f.uc.ListByBusiness(ctx, model.NewUserID(), f.business.ID)
	gt.True(t, errors.Is(err, model.ErrNotFound))

	gt.True(t, errors.Is(f.uc.Delete(ctx, model.NewUserID(), first.ID), model.ErrNotFound))
	gt.NoError(t, f.uc.Delete(ctx, f.owner, first.ID))

	_, err = f.uc.Get(ctx, f.owner, first.ID)
	gt.True(t, errors.Is(err, model.ErrNotFound))
	memories, err := f.repo.ListMemories(ctx, first.ID, 0)
	gt.NoError(t, err)
	gt.A(t, memories).Length(0)
}
