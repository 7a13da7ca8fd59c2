package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Store manages the memory entries of agents
type Store struct {
	repo      repository.Repository
	embedder  Embedder
	retriever Retriever
	now       func() time.Time
}

// StoreOption is a functional option for Store
type StoreOption func(*Store)

// WithEmbedder replaces the placeholder embedder
func WithEmbedder(embedder Embedder) StoreOption {
	return func(s *Store) {
		s.embedder = embedder
	}
}

// WithRetriever replaces the recency retriever
func WithRetriever(retriever Retriever) StoreOption {
	return func(s *Store) {
		s.retriever = retriever
	}
}

// WithClock sets the time source for new memories
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new memory Store
func NewStore(repo repository.Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:      repo,
		embedder:  &PlaceholderEmbedder{Dimension: DefaultEmbeddingDimension},
		retriever: NewRecencyRetriever(repo),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// UpsertProfileMemory stores content as a new memory of the agent. When
// metadata is tagged business_profile, every earlier memory with the same tag
// is removed in the same atomic step; other memories are appended.
func (s *Store) UpsertProfileMemory(ctx context.Context, agentID model.AgentID, content string, metadata map[string]string) (*model.Memory, error) {
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding", goerr.V("agent_id", agentID))
	}

	memory := &model.Memory{
		ID:        model.NewMemoryID(),
		AgentID:   agentID,
		Content:   content,
		Embedding: embedding,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}

	if memory.Type() == model.MemoryTypeBusinessProfile {
		if err := s.repo.ReplaceMemories(ctx, agentID, model.MemoryTypeBusinessProfile, memory); err != nil {
			return nil, goerr.Wrap(err, "failed to replace profile memory", goerr.V("agent_id", agentID))
		}
		return memory, nil
	}

	if err := s.repo.PutMemory(ctx, memory); err != nil {
		return nil, goerr.Wrap(err, "failed to put memory", goerr.V("agent_id", agentID))
	}
	return memory, nil
}

// RetrieveRelevant returns at most limit memories of the agent, newest first.
// Retrieval is best effort: on any failure it logs and returns an empty list.
func (s *Store) RetrieveRelevant(ctx context.Context, agentID model.AgentID, query string, limit int) []*model.Memory {
	memories, err := s.retriever.Retrieve(ctx, agentID, query, limit)
	if err != nil {
		logging.From(ctx).Warn("failed to retrieve memories", "error", err, "agent_id", agentID)
		return []*model.Memory{}
	}

	if limit > 0 && len(memories) > limit {
		memories = memories[:limit]
	}
	if memories == nil {
		memories = []*model.Memory{}
	}
	return memories
}
