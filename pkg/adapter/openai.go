package adapter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
	DefaultDeepSeekModel   = "deepseek-chat"
	DefaultOpenAIModel     = "gpt-4o-mini"
)

// openaiCompleter implements Completer for OpenAI compatible chat completion
// endpoints (OpenAI itself, DeepSeek)
type openaiCompleter struct {
	client   *openai.Client
	model    string
	provider string
}

type openaiConfig struct {
	baseURL    string
	model      string
	provider   string
	httpClient *http.Client
}

// OpenAIOption is a functional option for the OpenAI compatible completer
type OpenAIOption func(*openaiConfig)

// WithBaseURL sets the API base URL, e.g. https://api.deepseek.com/v1
func WithBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) {
		c.baseURL = url
	}
}

// WithModel sets the chat model name
func WithModel(model string) OpenAIOption {
	return func(c *openaiConfig) {
		c.model = model
	}
}

// WithProviderName sets the provider name used in error values and logs
func WithProviderName(name string) OpenAIOption {
	return func(c *openaiConfig) {
		c.provider = name
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(c *openaiConfig) {
		c.httpClient = client
	}
}

// NewOpenAICompleter creates a Completer for an OpenAI compatible API
func NewOpenAICompleter(apiKey string, opts ...OpenAIOption) (Completer, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(model.ErrProviderAuth, "api key is not configured")
	}

	cfg := &openaiConfig{
		model:    DefaultOpenAIModel,
		provider: "openai",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientConfig.BaseURL = cfg.baseURL
	}
	clientConfig.HTTPClient = cfg.httpClient

	return &openaiCompleter{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    cfg.model,
		provider: cfg.provider,
	}, nil
}

// NewDeepSeekCompleter creates a Completer for DeepSeek's OpenAI compatible API
func NewDeepSeekCompleter(apiKey string, opts ...OpenAIOption) (Completer, error) {
	base := []OpenAIOption{
		WithBaseURL(DefaultDeepSeekBaseURL),
		WithModel(DefaultDeepSeekModel),
		WithProviderName("deepseek"),
	}
	return NewOpenAICompleter(apiKey, append(base, opts...)...)
}

func (c *openaiCompleter) Complete(ctx context.Context, input *CompletionInput) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(input.Messages))
	for _, msg := range input.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    toOpenAIRole(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: input.Temperature,
		MaxTokens:   input.MaxOutputTokens,
	})
	if err != nil {
		return nil, c.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, goerr.Wrap(model.ErrProviderFailure, "no choice in completion response",
			goerr.V("provider", c.provider),
			goerr.V("id", resp.ID),
		)
	}

	completion := &Completion{Text: resp.Choices[0].Message.Content}
	if resp.Usage.TotalTokens > 0 {
		completion.Usage = &model.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return completion, nil
}

func (c *openaiCompleter) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyProviderError(err, c.provider, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		message := ""
		if reqErr.Err != nil {
			message = reqErr.Err.Error()
		}
		return classifyProviderError(err, c.provider, reqErr.HTTPStatusCode, message)
	}

	return classifyTransportError(err, c.provider)
}

func toOpenAIRole(role model.Role) string {
	switch role {
	case model.RoleSystem:
		return openai.ChatMessageRoleSystem
	case model.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
