package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/usecase/access"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/aistaff/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

// Reply is the result of a chat turn
type Reply struct {
	// UserMessage and Message are the two messages persisted by the turn
	UserMessage *model.Message
	Message     *model.Message
	// Usage is nil for fallback replies or when the provider did not report it
	Usage *model.Usage
	// Note is set when the reply was synthesized locally
	Note string
}

// Text returns the assistant reply text
func (r *Reply) Text() string {
	return r.Message.Text
}

// fallbackReply is the local reply used when the provider is rate limited
func fallbackReply(message string) string {
	return "I'm currently at capacity. Here's a quick on-brand reply: " + message
}

// Chat runs one conversation turn: persist the user message, assemble the
// context, call the provider and persist the reply. A provider quota condition
// is answered with a local fallback reply; every other provider error fails the
// turn and no assistant message is persisted.
func (u *UseCase) Chat(ctx context.Context, userID model.UserID, agentID model.AgentID, text string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "message is required")
	}

	if _, _, err := access.OwnedAgent(ctx, u.repo, userID, agentID); err != nil {
		return nil, err
	}

	ln := u.lanes.acquire(agentID)
	defer u.lanes.release(agentID, ln)

	logger := logging.From(ctx).With("agent_id", agentID)

	userMsg := &model.Message{
		ID:        model.NewMessageID(),
		AgentID:   agentID,
		Role:      model.RoleUser,
		Text:      text,
		CreatedAt: u.lanes.stamp(u.now()),
	}
	if err := u.repo.PutMessage(ctx, userMsg); err != nil {
		return nil, goerr.Wrap(err, "failed to save user message", goerr.V("agent_id", agentID))
	}

	// the current message is sent once as the final turn, not inside the window
	pc, err := u.assembler.AssembleContext(ctx, agentID, text, memory.ExcludeMessage(userMsg.ID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to assemble context", goerr.V("agent_id", agentID))
	}

	messages := make([]adapter.Message, 0, len(pc.RecentMessages)+2)
	messages = append(messages, adapter.Message{Role: model.RoleSystem, Content: pc.SystemPrompt})
	for _, msg := range pc.RecentMessages {
		messages = append(messages, adapter.Message{Role: msg.Role, Content: msg.Text})
	}
	messages = append(messages, adapter.Message{Role: model.RoleUser, Content: text})

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	started := time.Now()
	completion, err := u.completer.Complete(callCtx, &adapter.CompletionInput{
		Messages:        messages,
		Temperature:     u.temperature,
		MaxOutputTokens: u.maxOutputTokens,
	})
	elapsed := time.Since(started)
	cancel()

	reply := &Reply{UserMessage: userMsg}
	var replyText string

	switch {
	case err == nil:
		replyText = completion.Text
		reply.Usage = completion.Usage

	case errors.Is(err, model.ErrProviderQuota):
		logger.Warn("provider quota exceeded, serving local fallback", "error", err)
		replyText = fallbackReply(text)
		reply.Note = model.FallbackNote

	default:
		u.metrics.ObserveTurn(metrics.KindChat, metrics.OutcomeError, elapsed)
		return nil, goerr.Wrap(err, "failed to get completion", goerr.V("agent_id", agentID))
	}

	reply.Message = &model.Message{
		ID:        model.NewMessageID(),
		AgentID:   agentID,
		Role:      model.RoleAssistant,
		Text:      replyText,
		CreatedAt: u.lanes.stamp(u.now()),
	}
	if err := u.repo.PutMessage(ctx, reply.Message); err != nil {
		return nil, goerr.Wrap(err, "failed to save assistant message", goerr.V("agent_id", agentID))
	}

	outcome := metrics.OutcomeOK
	if reply.Note != "" {
		outcome = metrics.OutcomeFallback
	}
	u.metrics.ObserveTurn(metrics.KindChat, outcome, elapsed)
	u.metrics.AddUsage(metrics.KindChat, reply.Usage)

	logger.Debug("chat turn completed", "outcome", outcome, "history", len(pc.RecentMessages))

	return reply, nil
}

// ListMessages returns every message of the agent, oldest first
func (u *UseCase) ListMessages(ctx context.Context, userID model.UserID, agentID model.AgentID) ([]*model.Message, error) {
	if _, _, err := access.OwnedAgent(ctx, u.repo, userID, agentID); err != nil {
		return nil, err
	}

	messages, err := u.repo.ListMessages(ctx, agentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("agent_id", agentID))
	}
	if messages == nil {
		messages = []*model.Message{}
	}
	return messages, nil
}
