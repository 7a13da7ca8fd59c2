package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/gt"
)

// failingRepo fails every memory listing
type failingRepo struct {
	repository.Repository
}

func (r *failingRepo) ListMemories(ctx context.Context, agentID model.AgentID, limit int) ([]*model.Memory, error) {
	return nil, errors.New("store unavailable")
}

type staticEmbedder struct {
	vec firestore.Vector32
	err error
}

func (e *staticEmbedder) Embed(ctx context.Context, text string) (firestore.Vector32, error) {
	return e.vec, e.err
}

// tickingClock returns a strictly increasing time on each call
func tickingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func profileMetadata() map[string]string {
	return map[string]string{
		model.MemoryTypeKey: model.MemoryTypeBusinessProfile,
		"businessId":        "b-1",
	}
}

func TestUpsertProfileMemoryReplaces(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	store := memory.NewStore(repo, memory.WithClock(tickingClock(time.Now())))
	agentID := model.NewAgentID()

	_, err := store.UpsertProfileMemory(ctx, agentID, "first profile", profileMetadata())
	gt.NoError(t, err)
	_, err = store.UpsertProfileMemory(ctx, agentID, "second profile", profileMetadata())
	gt.NoError(t, err)

	memories, err := repo.ListMemories(ctx, agentID, 0)
	gt.NoError(t, err)
	gt.A(t, memories).Length(1)
	gt.Equal(t, memories[0].Content, "second profile")
	gt.Equal(t, memories[0].Type(), model.MemoryTypeBusinessProfile)
	gt.Equal(t, memories[0].Metadata["businessId"], "b-1")
}

func TestUpsertUntaggedMemoryAppends(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	store := memory.NewStore(repo, memory.WithClock(tickingClock(time.Now())))
	agentID := model.NewAgentID()

	_, err := store.UpsertProfileMemory(ctx, agentID, "profile", profileMetadata())
	gt.NoError(t, err)
	_, err = store.UpsertProfileMemory(ctx, agentID, "note 1", map[string]string{model.MemoryTypeKey: "note"})
	gt.NoError(t, err)
	_, err = store.UpsertProfileMemory(ctx, agentID, "note 2", nil)
	gt.NoError(t, err)
	_, err = store.UpsertProfileMemory(ctx, agentID, "profile v2", profileMetadata())
	gt.NoError(t, err)

	memories, err := repo.ListMemories(ctx, agentID, 0)
	gt.NoError(t, err)
	gt.A(t, memories).Length(3)
	gt.Equal(t, memories[0].Content, "profile v2")
	gt.Equal(t, memories[1].Content, "note 2")
	gt.Equal(t, memories[2].Content, "note 1")
}

func TestUpsertProfileMemoryEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("placeholder has fixed length", func(t *testing.T) {
		store := memory.NewStore(repository.NewMemory())
		m, err := store.UpsertProfileMemory(ctx, model.NewAgentID(), "profile", profileMetadata())
		gt.NoError(t, err)
		gt.A(t, m.Embedding).Length(memory.DefaultEmbeddingDimension)
	})

	t.Run("custom embedder", func(t *testing.T) {
		store := memory.NewStore(repository.NewMemory(), memory.WithEmbedder(&staticEmbedder{vec: firestore.Vector32{1, 2, 3}}))
		m, err := store.UpsertProfileMemory(ctx, model.NewAgentID(), "profile", profileMetadata())
		gt.NoError(t, err)
		gt.A(t, m.Embedding).Length(3)
	})

	t.Run("embedder failure keeps old profile", func(t *testing.T) {
		repo := repository.NewMemory()
		agentID := model.NewAgentID()
		_, err := memory.NewStore(repo).UpsertProfileMemory(ctx, agentID, "old", profileMetadata())
		gt.NoError(t, err)

		store := memory.NewStore(repo, memory.WithEmbedder(&staticEmbedder{err: errors.New("embedding quota")}))
		_, err = store.UpsertProfileMemory(ctx, agentID, "new", profileMetadata())
		gt.Error(t, err)

		memories, err := repo.ListMemories(ctx, agentID, 0)
		gt.NoError(t, err)
		gt.A(t, memories).Length(1)
		gt.Equal(t, memories[0].Content, "old")
	})
}

func TestRetrieveRelevant(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	store := memory.NewStore(repo, memory.WithClock(tickingClock(time.Now())))
	agentID := model.NewAgentID()

	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		_, err := store.UpsertProfileMemory(ctx, agentID, content, nil)
		gt.NoError(t, err)
	}

	memories := store.RetrieveRelevant(ctx, agentID, "anything", 3)
	gt.A(t, memories).Length(3)
	gt.Equal(t, memories[0].Content, "m5")
	gt.Equal(t, memories[1].Content, "m4")
	gt.Equal(t, memories[2].Content, "m3")

	gt.A(t, store.RetrieveRelevant(ctx, agentID, "anything", 10)).Length(5)
	gt.A(t, store.RetrieveRelevant(ctx, model.NewAgentID(), "anything", 3)).Length(0)
}

func TestRetrieveRelevantStoreFailure(t *testing.T) {
	store := memory.NewStore(&failingRepo{Repository: repository.NewMemory()})

	memories := store.RetrieveRelevant(context.Background(), model.NewAgentID(), "anything", 3)
	gt.V(t, memories).NotNil()
	gt.A(t, memories).Length(0)
}
