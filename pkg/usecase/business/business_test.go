package business_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/business"
	"github.com/m-mizutani/gt"
)

func ptr[T any](v T) *T { return &v }

func TestCreate(t *testing.T) {
	ctx := context.Background()
	uc := business.New(repository.NewMemory())
	owner := model.NewUserID()

	b, err := uc.Create(ctx, owner, business.CreateInput{
		Name:        "  Acme  ",
		Industry:    "Retail",
		BrandColors: map[string]string{"primary": "#ff0000"},
		Goals:       []string{"Grow sales"},
	})
	gt.NoError(t, err)
	gt.Equal(t, b.Name, "Acme")
	gt.Equal(t, b.BrandTone, model.DefaultBrandTone)
	gt.Equal(t, b.UserID, owner)
	gt.V(t, b.SocialLinks).Nil()

	_, err = uc.Create(ctx, owner, business.CreateInput{Name: " "})
	gt.True(t, errors.Is(err, model.ErrInvalidInput))

	_, err = uc.Create(ctx, owner, business.CreateInput{Name: "Acme", LogoURL: "not a url"})
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestListAndGet(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	uc := business.New(repository.NewMemory(), business.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	owner := model.NewUserID()

	first, err := uc.Create(ctx, owner, business.CreateInput{Name: "First"})
	gt.NoError(t, err)
	second, err := uc.Create(ctx, owner, business.CreateInput{Name: "Second"})
	gt.NoError(t, err)
	_, err = uc.Create(ctx, model.NewUserID(), business.CreateInput{Name: "Other"})
	gt.NoError(t, err)

	list, err := uc.List(ctx, owner)
	gt.NoError(t, err)
	gt.A(t, list).Length(2)
	gt.Equal(t, list[0].ID, second.ID)
	gt.Equal(t, list[1].ID, first.ID)

	got, err := uc.Get(ctx, owner, first.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Name, "First")

	_, err = uc.Get(ctx, model.NewUserID(), first.ID)
	gt.True(t, errors.Is(err, model.ErrNotFound))

	empty, err := uc.List(ctx, model.NewUserID())
	gt.NoError(t, err)
	gt.V(t, empty).NotNil()
	gt.A(t, empty).Length(0)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	uc := business.New(repository.NewMemory())
	owner := model.NewUserID()

	b, err := uc.Create(ctx, owner, business.CreateInput{Name: "Acme", Industry: "Retail", BrandTone: "formal"})
	gt.NoError(t, err)

	updated, err := uc.Update(ctx, owner, b.ID, business.UpdateInput{
		Description: ptr("Hardware"),
		Goals:       []string{"Open a store"},
	})
	gt.NoError(t, err)
	gt.Equal(t, updated.Name, "Acme")
	gt.Equal(t, updated.Industry, "Retail")
	gt.Equal(t, updated.BrandTone, "formal")
	gt.Equal(t, updated.Description, "Hardware")

	got, err := uc.Get(ctx, owner, b.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Description, "Hardware")

	_, err = uc.Update(ctx, owner, b.ID, business.UpdateInput{Name: ptr("")})
	gt.True(t, errors.Is(err, model.ErrInvalidInput))

	_, err = uc.Update(ctx, model.NewUserID(), b.ID, business.UpdateInput{Name: ptr("Stolen")})
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	uc := business.New(repo)
	owner := model.NewUserID()

	b, err := uc.Create(ctx, owner, business.CreateInput{Name: "Acme"})
	gt.NoError(t, err)

	agent := &model.Agent{ID: model.NewAgentID(), BusinessID: b.ID, AgentName: "A", CreatedAt: time.Now()}
	gt.NoError(t, repo.PutAgent(ctx, agent))
	gt.NoError(t, repo.PutMessage(ctx, &model.Message{ID: model.NewMessageID(), AgentID: agent.ID, Role: model.RoleUser, Text: "hi", CreatedAt: time.Now()}))

	gt.True(t, errors.Is(uc.Delete(ctx, model.NewUserID(), b.ID), model.ErrNotFound))
	gt.NoError(t, uc.Delete(ctx, owner, b.ID))

	_, err = repo.GetAgent(ctx, agent.ID)
	gt.True(t, errors.Is(err, model.ErrNotFound))
	messages, err := repo.ListMessages(ctx, agent.ID)
	gt.NoError(t, err)
	gt.A(t, messages).Length(0)
}
