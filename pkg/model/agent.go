package model

import (
	"time"

	"github.com/google/uuid"
)

type AgentID string

// NewAgentID generates a new unique AgentID
func NewAgentID() AgentID {
	return AgentID(uuid.New().String())
}

// Agent is an AI persona bound to one business
type Agent struct {
	ID         AgentID    `json:"id"`
	BusinessID BusinessID `json:"businessId"`
	AgentName  string     `json:"agentName"`

	// Memory holds the last generated brand profile. It is only refreshed by an
	// explicit refresh action, not when the business changes.
	Memory string `json:"memory"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
