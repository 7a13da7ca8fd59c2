package memory

import (
	"bytes"
	"context"
	_ "embed"
	"text/template"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMemoryLimit  = 3
	DefaultHistoryLimit = 10
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

// PromptContext is the assembled input of one provider turn
type PromptContext struct {
	SystemPrompt string
	// RecentMessages is the history window, oldest first
	RecentMessages []*model.Message

	Agent    *model.Agent
	Business *model.Business
}

// Assembler builds the system prompt and history window of an agent
type Assembler struct {
	repo         repository.Repository
	store        *Store
	memoryLimit  int
	historyLimit int
}

// AssemblerOption is a functional option for Assembler
type AssemblerOption func(*Assembler)

// WithMemoryLimit sets how many memories are embedded into the prompt
func WithMemoryLimit(n int) AssemblerOption {
	return func(a *Assembler) {
		a.memoryLimit = n
	}
}

// WithHistoryLimit sets the size of the recent message window
func WithHistoryLimit(n int) AssemblerOption {
	return func(a *Assembler) {
		a.historyLimit = n
	}
}

// NewAssembler creates a new context Assembler
func NewAssembler(repo repository.Repository, store *Store, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		repo:         repo,
		store:        store,
		memoryLimit:  DefaultMemoryLimit,
		historyLimit: DefaultHistoryLimit,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type assembleConfig struct {
	exclude map[model.MessageID]struct{}
}

// AssembleOption changes a single AssembleContext call
type AssembleOption func(*assembleConfig)

// ExcludeMessage drops the message from the history window. The window still
// holds up to the history limit of other messages.
func ExcludeMessage(id model.MessageID) AssembleOption {
	return func(c *assembleConfig) {
		c.exclude[id] = struct{}{}
	}
}

// AssembleContext builds the prompt context of the agent for a turn triggered
// by triggeringText. A missing agent or business is ErrNotFound.
func (a *Assembler) AssembleContext(ctx context.Context, agentID model.AgentID, triggeringText string, opts ...AssembleOption) (*PromptContext, error) {
	cfg := &assembleConfig{exclude: make(map[model.MessageID]struct{})}
	for _, opt := range opts {
		opt(cfg)
	}

	agent, err := a.repo.GetAgent(ctx, agentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get agent", goerr.V("agent_id", agentID))
	}

	business, err := a.repo.GetBusiness(ctx, agent.BusinessID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get business of agent",
			goerr.V("agent_id", agentID),
			goerr.V("business_id", agent.BusinessID),
		)
	}

	memories := a.store.RetrieveRelevant(ctx, agentID, triggeringText, a.memoryLimit)

	recent, err := a.recentMessages(ctx, agentID, cfg.exclude)
	if err != nil {
		return nil, err
	}

	prompt, err := renderSystemPrompt(ctx, agent, business, memories)
	if err != nil {
		return nil, err
	}

	return &PromptContext{
		SystemPrompt:   prompt,
		RecentMessages: recent,
		Agent:          agent,
		Business:       business,
	}, nil
}

func (a *Assembler) recentMessages(ctx context.Context, agentID model.AgentID, exclude map[model.MessageID]struct{}) ([]*model.Message, error) {
	if a.historyLimit <= 0 {
		return []*model.Message{}, nil
	}

	messages, err := a.repo.ListRecentMessages(ctx, agentID, a.historyLimit+len(exclude))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent messages", goerr.V("agent_id", agentID))
	}

	window := make([]*model.Message, 0, len(messages))
	for _, msg := range messages {
		if _, skip := exclude[msg.ID]; !skip {
			window = append(window, msg)
		}
	}
	if len(window) > a.historyLimit {
		window = window[len(window)-a.historyLimit:]
	}
	return window, nil
}

func renderSystemPrompt(ctx context.Context, agent *model.Agent, business *model.Business, memories []*model.Memory) (string, error) {
	brandTone := business.BrandTone
	if brandTone == "" {
		brandTone = model.DefaultBrandTone
	}

	contents := make([]string, 0, len(memories))
	for _, m := range memories {
		contents = append(contents, m.Content)
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"AgentName":    agent.AgentName,
		"BusinessName": business.Name,
		"Memory":       agent.Memory,
		"Memories":     contents,
		"Goals":        decodeStringList(ctx, "goals", business.Goals),
		"BrandTone":    brandTone,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute system prompt template")
	}

	return buf.String(), nil
}
