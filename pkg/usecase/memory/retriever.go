package memory

import (
	"context"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
)

// Retriever selects memories of an agent that are relevant to a query
type Retriever interface {
	Retrieve(ctx context.Context, agentID model.AgentID, query string, limit int) ([]*model.Memory, error)
}

// RecencyRetriever ignores the query and returns the most recently created
// memories, newest first. It is a bounded recency window, not similarity search.
type RecencyRetriever struct {
	repo repository.Repository
}

// NewRecencyRetriever creates a Retriever returning the latest memories
func NewRecencyRetriever(repo repository.Repository) *RecencyRetriever {
	return &RecencyRetriever{repo: repo}
}

func (r *RecencyRetriever) Retrieve(ctx context.Context, agentID model.AgentID, query string, limit int) ([]*model.Memory, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.repo.ListMemories(ctx, agentID, limit)
}
