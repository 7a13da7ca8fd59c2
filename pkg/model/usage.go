package model

// Usage is the token accounting reported by the completion provider
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FallbackNote marks a reply or content that was synthesized locally because
// the completion provider was rate limited
const FallbackNote = "Served from local fallback due to provider quota/rate limit."
