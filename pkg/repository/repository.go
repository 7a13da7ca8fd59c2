package repository

import (
	"context"

	"github.com/m-mizutani/aistaff/pkg/model"
)

// Repository defines the interface for record persistence
type Repository interface {
	// PutUser saves a user. Email must be unique.
	PutUser(ctx context.Context, user *model.User) error

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)

	// GetUserByEmail retrieves a user by email address
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// PutBusiness creates or overwrites a business
	PutBusiness(ctx context.Context, business *model.Business) error

	// GetBusiness retrieves a business by ID
	GetBusiness(ctx context.Context, id model.BusinessID) (*model.Business, error)

	// ListBusinessesByUser retrieves the businesses owned by a user, newest first
	ListBusinessesByUser(ctx context.Context, userID model.UserID) ([]*model.Business, error)

	// DeleteBusiness deletes a business and cascades to its agents
	DeleteBusiness(ctx context.Context, id model.BusinessID) error

	// PutAgent creates or overwrites an agent
	PutAgent(ctx context.Context, agent *model.Agent) error

	// GetAgent retrieves an agent by ID
	GetAgent(ctx context.Context, id model.AgentID) (*model.Agent, error)

	// ListAgentsByBusiness retrieves the agents of a business, newest first
	ListAgentsByBusiness(ctx context.Context, businessID model.BusinessID) ([]*model.Agent, error)

	// DeleteAgent deletes an agent with its memories, messages and contents
	DeleteAgent(ctx context.Context, id model.AgentID) error

	// PutMemory appends a memory to its agent
	PutMemory(ctx context.Context, memory *model.Memory) error

	// ReplaceMemories atomically deletes every memory of the agent tagged with
	// memoryType and inserts memory. Readers observe either the old set or the
	// new one, never neither.
	ReplaceMemories(ctx context.Context, agentID model.AgentID, memoryType string, memory *model.Memory) error

	// ListMemories retrieves up to limit memories of an agent, newest first
	ListMemories(ctx context.Context, agentID model.AgentID, limit int) ([]*model.Memory, error)

	// PutMessage appends a message to its agent
	PutMessage(ctx context.Context, message *model.Message) error

	// ListMessages retrieves every message of an agent, oldest first
	ListMessages(ctx context.Context, agentID model.AgentID) ([]*model.Message, error)

	// ListRecentMessages retrieves the last limit messages of an agent, oldest first
	ListRecentMessages(ctx context.Context, agentID model.AgentID, limit int) ([]*model.Message, error)

	// PutContent appends generated content to its agent
	PutContent(ctx context.Context, content *model.GeneratedContent) error

	// ListContents retrieves generated contents of an agent, newest first
	ListContents(ctx context.Context, agentID model.AgentID) ([]*model.GeneratedContent, error)
}
