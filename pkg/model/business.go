package model

import (
	"time"

	"github.com/google/uuid"
)

const DefaultBrandTone = "professional"

type BusinessID string

// NewBusinessID generates a new unique BusinessID
func NewBusinessID() BusinessID {
	return BusinessID(uuid.New().String())
}

// Business is the brand profile owned by a user.
//
// SocialLinks, BrandColors and Goals are loosely typed: depending on the record
// store they come back as decoded values (map[string]any, []any), typed Go
// values, or their JSON text form. Readers must decode them defensively.
type Business struct {
	ID             BusinessID `json:"id"`
	UserID         UserID     `json:"userId"`
	Name           string     `json:"name"`
	Industry       string     `json:"industry,omitempty"`
	Description    string     `json:"description,omitempty"`
	TargetAudience string     `json:"targetAudience,omitempty"`
	BrandTone      string     `json:"brandTone"`
	LogoURL        string     `json:"logoUrl,omitempty"`
	SocialLinks    any        `json:"socialLinks,omitempty"`
	BrandColors    any        `json:"brandColors,omitempty"`
	Goals          any        `json:"goals,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
