package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MessageID string

// NewMessageID generates a new unique MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

// Message is one immutable conversation turn with an agent
type Message struct {
	ID        MessageID `json:"id"`
	AgentID   AgentID   `json:"agentId"`
	Role      Role      `json:"role"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
