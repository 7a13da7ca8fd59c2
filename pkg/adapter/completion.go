package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Message is one entry of the ordered message list sent to a completion provider
type Message struct {
	Role    model.Role
	Content string
}

// CompletionInput is a single completion request
type CompletionInput struct {
	Messages        []Message
	Temperature     float32
	MaxOutputTokens int
}

// Completion is the provider reply. Usage is nil when the provider did not report it.
type Completion struct {
	Text  string
	Usage *model.Usage
}

// Completer is the remote text-completion provider.
//
// Errors returned by implementations are always classified into exactly one of
// model.ErrProviderAuth, model.ErrProviderQuota or model.ErrProviderFailure and
// can be tested with errors.Is.
type Completer interface {
	Complete(ctx context.Context, input *CompletionInput) (*Completion, error)
}

// classifyProviderError maps a provider status code and message into the error
// taxonomy. A message mentioning "quota" is treated as a quota condition whatever
// the status code is.
func classifyProviderError(cause error, provider string, status int, message string) error {
	opts := []goerr.Option{
		goerr.V("provider", provider),
		goerr.V("status", status),
		goerr.V("detail", message),
	}
	if cause != nil {
		opts = append(opts, goerr.V("cause", cause.Error()))
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return goerr.Wrap(model.ErrProviderAuth, "provider rejected credentials", opts...)
	case status == http.StatusTooManyRequests || strings.Contains(strings.ToLower(message), "quota"):
		return goerr.Wrap(model.ErrProviderQuota, "provider rate limit or quota exceeded", opts...)
	default:
		return goerr.Wrap(model.ErrProviderFailure, "provider request failed", opts...)
	}
}

// classifyTransportError handles errors that carry no provider status, such as
// deadline exceeded or connection failures. A timeout is never a quota condition.
func classifyTransportError(cause error, provider string) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return goerr.Wrap(model.ErrProviderFailure, "provider request timed out",
			goerr.V("provider", provider),
			goerr.V("cause", cause.Error()),
		)
	}
	return classifyProviderError(cause, provider, 0, cause.Error())
}
