package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidContentType = goerr.New("invalid content type")
)

type ContentType string

const (
	ContentTypePost    ContentType = "post"
	ContentTypeCaption ContentType = "caption"
	ContentTypeAd      ContentType = "ad"
	ContentTypeBlog    ContentType = "blog"
	ContentTypeEmail   ContentType = "email"
)

// ContentTypes lists every known content type in display order
var ContentTypes = []ContentType{
	ContentTypePost,
	ContentTypeCaption,
	ContentTypeAd,
	ContentTypeBlog,
	ContentTypeEmail,
}

// Validate checks if the content type is one of the known types
func (t ContentType) Validate() error {
	switch t {
	case ContentTypePost, ContentTypeCaption, ContentTypeAd, ContentTypeBlog, ContentTypeEmail:
		return nil
	default:
		return ErrInvalidContentType
	}
}

type ContentID string

// NewContentID generates a new unique ContentID
func NewContentID() ContentID {
	return ContentID(uuid.New().String())
}

// GeneratedContent is an immutable result of a content generation turn
type GeneratedContent struct {
	ID        ContentID   `json:"id"`
	AgentID   AgentID     `json:"agentId"`
	Type      ContentType `json:"type"`
	Data      ContentData `json:"data"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ContentData is the payload of generated content including a brand snapshot
type ContentData struct {
	Prompt       string    `json:"prompt"`
	Content      string    `json:"content"`
	BusinessName string    `json:"businessName,omitempty"`
	BrandTone    string    `json:"brandTone,omitempty"`
	GeneratedAt  time.Time `json:"generatedAt"`
	Note         string    `json:"note,omitempty"`
}
