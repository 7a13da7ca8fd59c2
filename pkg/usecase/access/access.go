// Package access resolves records through their owning user. A record that
// exists but belongs to someone else is reported as not found.
package access

import (
	"context"
	"errors"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// OwnedBusiness returns the business if it is owned by userID
func OwnedBusiness(ctx context.Context, repo repository.Repository, userID model.UserID, businessID model.BusinessID) (*model.Business, error) {
	business, err := repo.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, notFound(err, "business not found", goerr.V("business_id", businessID))
	}
	if business.UserID != userID {
		return nil, goerr.Wrap(model.ErrNotFound, "business not found",
			goerr.V("business_id", businessID),
			goerr.V("user_id", userID),
		)
	}
	return business, nil
}

// OwnedAgent returns the agent and its business if the business is owned by userID
func OwnedAgent(ctx context.Context, repo repository.Repository, userID model.UserID, agentID model.AgentID) (*model.Agent, *model.Business, error) {
	agent, err := repo.GetAgent(ctx, agentID)
	if err != nil {
		return nil, nil, notFound(err, "agent not found", goerr.V("agent_id", agentID))
	}

	business, err := repo.GetBusiness(ctx, agent.BusinessID)
	if err != nil {
		return nil, nil, notFound(err, "agent not found", goerr.V("agent_id", agentID))
	}
	if business.UserID != userID {
		return nil, nil, goerr.Wrap(model.ErrNotFound, "agent not found",
			goerr.V("agent_id", agentID),
			goerr.V("user_id", userID),
		)
	}

	return agent, business, nil
}

func notFound(err error, msg string, opts ...goerr.Option) error {
	if errors.Is(err, model.ErrNotFound) {
		return goerr.Wrap(model.ErrNotFound, msg, opts...)
	}
	return goerr.Wrap(err, "failed to resolve owner", opts...)
}
