package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/gt"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, status int, body string, captured *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			gt.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAICompleterSuccess(t *testing.T) {
	var req chatRequest
	srv := newCompletionServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "deepseek-chat",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "I'll draft a plan."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`, &req)

	completer, err := adapter.NewDeepSeekCompleter("test-key", adapter.WithBaseURL(srv.URL))
	gt.NoError(t, err)

	resp, err := completer.Complete(context.Background(), &adapter.CompletionInput{
		Messages: []adapter.Message{
			{Role: model.RoleSystem, Content: "You are Ava for Acme."},
			{Role: model.RoleUser, Content: "hello"},
			{Role: model.RoleAssistant, Content: "hi"},
			{Role: model.RoleUser, Content: "make a plan"},
		},
		Temperature:     0.7,
		MaxOutputTokens: 1000,
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Text, "I'll draft a plan.")
	gt.V(t, resp.Usage).NotNil()
	gt.Equal(t, resp.Usage.TotalTokens, 17)

	gt.Equal(t, req.Model, "deepseek-chat")
	gt.Equal(t, req.MaxTokens, 1000)
	gt.Equal(t, req.Temperature, float32(0.7))
	gt.A(t, req.Messages).Length(4)
	gt.Equal(t, req.Messages[0].Role, "system")
	gt.Equal(t, req.Messages[2].Role, "assistant")
	gt.Equal(t, req.Messages[3].Content, "make a plan")
}

func TestOpenAICompleterErrorClassification(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		expect error
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   `{"error": {"message": "Rate limit reached", "type": "rate_limit_error"}}`,
			expect: model.ErrProviderQuota,
		},
		{
			name:   "quota in message",
			status: http.StatusBadRequest,
			body:   `{"error": {"message": "You exceeded your current quota", "type": "insufficient_quota"}}`,
			expect: model.ErrProviderQuota,
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error": {"message": "Authentication Fails", "type": "authentication_error"}}`,
			expect: model.ErrProviderAuth,
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{"error": {"message": "forbidden", "type": "permission_error"}}`,
			expect: model.ErrProviderAuth,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error": {"message": "internal error", "type": "server_error"}}`,
			expect: model.ErrProviderFailure,
		},
		{
			name:   "non json body",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			expect: model.ErrProviderFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newCompletionServer(t, tc.status, tc.body, nil)
			completer, err := adapter.NewOpenAICompleter("test-key", adapter.WithBaseURL(srv.URL))
			gt.NoError(t, err)

			_, err = completer.Complete(context.Background(), &adapter.CompletionInput{
				Messages: []adapter.Message{{Role: model.RoleUser, Content: "hello"}},
			})
			gt.Error(t, err)
			gt.True(t, errors.Is(err, tc.expect))
		})
	}
}

func TestOpenAICompleterTimeoutIsNotQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	completer, err := adapter.NewOpenAICompleter("test-key", adapter.WithBaseURL(srv.URL))
	gt.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = completer.Complete(ctx, &adapter.CompletionInput{
		Messages: []adapter.Message{{Role: model.RoleUser, Content: "hello"}},
	})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProviderFailure))
	gt.False(t, errors.Is(err, model.ErrProviderQuota))
}

func TestOpenAICompleterRequiresAPIKey(t *testing.T) {
	_, err := adapter.NewDeepSeekCompleter("")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProviderAuth))
}

func TestDeepSeekCompleterLive(t *testing.T) {
	apiKey := os.Getenv("TEST_DEEPSEEK_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_DEEPSEEK_API_KEY is not set")
	}

	completer, err := adapter.NewDeepSeekCompleter(apiKey)
	gt.NoError(t, err)

	resp, err := completer.Complete(context.Background(), &adapter.CompletionInput{
		Messages:        []adapter.Message{{Role: model.RoleUser, Content: "Say hello in one word."}},
		Temperature:     0.7,
		MaxOutputTokens: 16,
	})
	gt.NoError(t, err)
	gt.NotEqual(t, resp.Text, "")
	t.Log("response:", resp.Text)
}
