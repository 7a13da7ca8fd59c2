package model

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

const (
	// MemoryTypeKey is the metadata key holding the purpose tag of a memory
	MemoryTypeKey = "type"

	// MemoryTypeBusinessProfile tags the single brand profile memory of an agent
	MemoryTypeBusinessProfile = "business_profile"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// Memory is a stored text fragment of an agent used to enrich conversation context
type Memory struct {
	ID        MemoryID           `json:"id"`
	AgentID   AgentID            `json:"agentId"`
	Content   string             `json:"content"`
	Embedding firestore.Vector32 `json:"-"`
	Metadata  map[string]string  `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Type returns the purpose tag of the memory, or empty string if untagged
func (m *Memory) Type() string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[MemoryTypeKey]
}
