package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/usecase/access"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/aistaff/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

// Result is the outcome of a generation turn
type Result struct {
	Content *model.GeneratedContent
	// Usage is nil for fallback content or when the provider did not report it
	Usage *model.Usage
	// Note is set when the content was synthesized locally
	Note string
}

// Generate produces content of the given type for the agent's business and
// stores it. Unknown types send the prompt as is. A provider quota condition is
// answered with local placeholder content; every other provider error fails the
// call and nothing is stored.
func (u *UseCase) Generate(ctx context.Context, userID model.UserID, agentID model.AgentID, contentType model.ContentType, prompt string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "prompt is required")
	}

	if _, _, err := access.OwnedAgent(ctx, u.repo, userID, agentID); err != nil {
		return nil, err
	}

	logger := logging.From(ctx).With("agent_id", agentID, "content_type", contentType)
	if contentType.Validate() != nil {
		logger.Debug("unknown content type, sending raw prompt")
	}

	pc, err := u.assembler.AssembleContext(ctx, agentID, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to assemble context", goerr.V("agent_id", agentID))
	}

	system, err := systemMessage(pc.SystemPrompt, contentType)
	if err != nil {
		return nil, err
	}
	userPrompt, err := instruction(contentType, prompt)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	started := time.Now()
	completion, err := u.completer.Complete(callCtx, &adapter.CompletionInput{
		Messages: []adapter.Message{
			{Role: model.RoleSystem, Content: system},
			{Role: model.RoleUser, Content: userPrompt},
		},
		Temperature:     u.temperature,
		MaxOutputTokens: u.maxOutputTokens,
	})
	elapsed := time.Since(started)
	cancel()

	brandTone := pc.Business.BrandTone
	if brandTone == "" {
		brandTone = model.DefaultBrandTone
	}

	now := u.now()
	result := &Result{}
	data := model.ContentData{
		Prompt:       prompt,
		BusinessName: pc.Business.Name,
		BrandTone:    brandTone,
		GeneratedAt:  now,
	}

	switch {
	case err == nil:
		data.Content = completion.Text
		result.Usage = completion.Usage

	case errors.Is(err, model.ErrProviderQuota):
		logger.Warn("provider quota exceeded, serving local fallback", "error", err)
		data.Content = fallbackContent(contentType, prompt)
		data.Note = model.FallbackNote
		result.Note = model.FallbackNote

	default:
		u.metrics.ObserveTurn(metrics.KindContent, metrics.OutcomeError, elapsed)
		return nil, goerr.Wrap(err, "failed to get completion", goerr.V("agent_id", agentID))
	}

	result.Content = &model.GeneratedContent{
		ID:        model.NewContentID(),
		AgentID:   agentID,
		Type:      contentType,
		Data:      data,
		CreatedAt: now,
	}
	if err := u.repo.PutContent(ctx, result.Content); err != nil {
		return nil, goerr.Wrap(err, "failed to save content", goerr.V("agent_id", agentID))
	}

	u.archiveContent(ctx, result.Content)

	outcome := metrics.OutcomeOK
	if result.Note != "" {
		outcome = metrics.OutcomeFallback
	}
	u.metrics.ObserveTurn(metrics.KindContent, outcome, elapsed)
	u.metrics.AddUsage(metrics.KindContent, result.Usage)

	return result, nil
}

// ListContent returns the generated contents of the agent, newest first
func (u *UseCase) ListContent(ctx context.Context, userID model.UserID, agentID model.AgentID) ([]*model.GeneratedContent, error) {
	if _, _, err := access.OwnedAgent(ctx, u.repo, userID, agentID); err != nil {
		return nil, err
	}

	contents, err := u.repo.ListContents(ctx, agentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list contents", goerr.V("agent_id", agentID))
	}
	if contents == nil {
		contents = []*model.GeneratedContent{}
	}
	return contents, nil
}
