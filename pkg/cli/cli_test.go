package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/business"
	"github.com/m-mizutani/aistaff/pkg/usecase/chat"
	"github.com/m-mizutani/aistaff/pkg/usecase/content"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/aistaff/pkg/usecase/task"
	"github.com/m-mizutani/aistaff/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type staticCompleter struct {
	text string
}

func (c *staticCompleter) Complete(ctx context.Context, input *adapter.CompletionInput) (*adapter.Completion, error) {
	return &adapter.Completion{Text: c.text}, nil
}

func TestLoadBusinessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(`
name: Acme Bakery
industry: Food
target_audience: Local families
brand_tone: warm
social_links:
  instagram: https://instagram.com/acme
brand_colors:
  primary: "#ff0000"
goals:
  - Open a second store
`), 0600))

	input, err := loadBusinessFile(path)
	gt.NoError(t, err)
	gt.Equal(t, input.Name, "Acme Bakery")
	gt.Equal(t, input.TargetAudience, "Local families")
	gt.Equal(t, input.BrandTone, "warm")
	gt.Equal(t, input.SocialLinks["instagram"], "https://instagram.com/acme")
	gt.Equal(t, input.BrandColors["primary"], "#ff0000")
	gt.A(t, input.Goals).Length(1)

	_, err = loadBusinessFile(filepath.Join(t.TempDir(), "missing.yaml"))
	gt.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown repository", func(t *testing.T) {
		cfg := &config{repository: "sqlite"}
		_, _, err := cfg.newRepository(ctx)
		gt.Error(t, err)
	})

	t.Run("firestore requires project", func(t *testing.T) {
		cfg := &config{repository: repositoryFirestore, database: "(default)"}
		_, _, err := cfg.newRepository(ctx)
		gt.Error(t, err)
	})

	t.Run("missing provider key", func(t *testing.T) {
		for _, provider := range []string{providerDeepSeek, providerOpenAI} {
			cfg := &config{llmProvider: provider}
			_, err := cfg.newCompleter(ctx)
			gt.Error(t, err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := &config{llmProvider: "claude"}
		_, err := cfg.newCompleter(ctx)
		gt.Error(t, err)
	})

	t.Run("unknown embedding", func(t *testing.T) {
		cfg := &config{embedding: "random"}
		_, err := cfg.newEmbedder(ctx)
		gt.Error(t, err)
	})

	t.Run("jwt secret required", func(t *testing.T) {
		cfg := &config{repository: repositoryMemory}
		_, err := cfg.newApp(ctx, 0)
		gt.Error(t, err)
	})

	t.Run("archived read requires bucket", func(t *testing.T) {
		cfg := &config{repository: repositoryMemory, jwtSecret: "secret", embedding: embeddingPlaceholder}
		_, err := cfg.newApp(ctx, needArchive)
		gt.Error(t, err)
	})

	t.Run("archive disabled without bucket", func(t *testing.T) {
		cfg := &config{}
		archive, err := cfg.newArchive(ctx)
		gt.NoError(t, err)
		gt.V(t, archive).Nil()
	})
}

func TestNewAppWiring(t *testing.T) {
	ctx := context.Background()
	cfg := &config{
		repository:     repositoryMemory,
		jwtSecret:      "secret",
		jwtTTL:         time.Hour,
		llmProvider:    providerDeepSeek,
		deepseekAPIKey: "sk-test",
		embedding:      embeddingPlaceholder,
		llmTimeout:     time.Second,
	}

	a, err := cfg.newApp(ctx, 0)
	gt.NoError(t, err)
	gt.V(t, a.chat).Nil()
	gt.V(t, a.content).Nil()
	gt.V(t, a.agent).NotNil()

	a, err = cfg.newApp(ctx, needEmbedder|needCompleter)
	gt.NoError(t, err)
	gt.V(t, a.chat).NotNil()
	gt.V(t, a.content).NotNil()
	defer a.close()

	session, err := a.auth.Register(ctx, "Owner", "owner@example.com", "password")
	gt.NoError(t, err)
	userID, err := a.userID(session.Token)
	gt.NoError(t, err)
	gt.Equal(t, userID, session.User.ID)

	_, err = a.userID("garbage")
	gt.Error(t, err)
}

func TestChatSessionTurn(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	store := memory.NewStore(repo)
	owner := model.NewUserID()

	b, err := business.New(repo).Create(ctx, owner, business.CreateInput{Name: "Acme"})
	gt.NoError(t, err)
	ag := &model.Agent{ID: model.NewAgentID(), BusinessID: b.ID, AgentName: "Bot", CreatedAt: time.Now()}
	gt.NoError(t, repo.PutAgent(ctx, ag))

	completer := &staticCompleter{text: "Great idea. I'll draft a proposal for the client. Let me schedule three client calls."}
	taskFile := filepath.Join(t.TempDir(), "tasks.yaml")
	var out bytes.Buffer
	m := metrics.New()

	session := &chatSession{
		chat:     chat.New(repo, memory.NewAssembler(repo, store), completer),
		metrics:  m,
		userID:   owner,
		agentID:  ag.ID,
		tasks:    task.NewList(),
		taskFile: taskFile,
		w:        &out,
		now:      time.Now,
	}

	gt.NoError(t, session.turn(ctx, "Help me grow"))
	gt.S(t, out.String()).Contains("I'll draft a proposal")
	gt.S(t, out.String()).Contains("Added 2 task(s)")
	gt.S(t, out.String()).Contains("- [ ] draft a proposal for the client")
	gt.S(t, out.String()).Contains("- [ ] schedule three client calls")

	saved, err := task.Load(taskFile)
	gt.NoError(t, err)
	gt.A(t, saved.Tasks()).Length(2)

	// a reply without action items leaves the file untouched
	completer.text = "Thanks!"
	out.Reset()
	gt.NoError(t, session.turn(ctx, "ok"))
	gt.S(t, out.String()).NotContains("Added")

	saved, err = task.Load(taskFile)
	gt.NoError(t, err)
	gt.A(t, saved.Tasks()).Length(2)
}

func TestTaskCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var out bytes.Buffer

	// tasks merged by a chat turn are visible to the task commands
	merged := task.NewList()
	gt.Equal(t, merged.MergeReply("reply-1", "I'll send the invoices today.", now), 1)
	gt.NoError(t, merged.Save(path))

	due := now.Add(48 * time.Hour)
	gt.NoError(t, addTask(&out, path, task.AddInput{Title: "call the printer", Priority: model.TaskPriorityHigh, DueDate: &due}, now))
	gt.S(t, out.String()).Contains("Task added:")

	gt.Error(t, addTask(&out, path, task.AddInput{Title: "  "}, now))

	tasks, err := task.Load(path)
	gt.NoError(t, err)
	gt.A(t, tasks.Tasks()).Length(2)
	added, extracted := tasks.Tasks()[0], tasks.Tasks()[1]
	gt.Equal(t, added.Title, "call the printer")
	gt.Equal(t, extracted.Title, "send the invoices today")

	out.Reset()
	gt.NoError(t, listTasks(&out, path, false))
	gt.S(t, out.String()).Contains("[ ] " + string(added.ID) + "  call the printer (high, due 2025-06-03)")
	gt.S(t, out.String()).Contains("send the invoices today (medium, due 2025-06-08, from chat)")

	out.Reset()
	gt.NoError(t, toggleTask(&out, path, extracted.ID))
	gt.S(t, out.String()).Contains("Task completed: send the invoices today")

	out.Reset()
	gt.NoError(t, listTasks(&out, path, false))
	gt.S(t, out.String()).NotContains("send the invoices today")

	out.Reset()
	gt.NoError(t, listTasks(&out, path, true))
	gt.S(t, out.String()).Contains("[x] " + string(extracted.ID))

	out.Reset()
	gt.NoError(t, toggleTask(&out, path, extracted.ID))
	gt.S(t, out.String()).Contains("Task reopened:")

	gt.NoError(t, removeTask(&out, path, added.ID))
	err = removeTask(&out, path, added.ID)
	gt.True(t, errors.Is(err, model.ErrNotFound))
	gt.True(t, errors.Is(toggleTask(&out, path, model.NewTaskID()), model.ErrNotFound))

	tasks, err = task.Load(path)
	gt.NoError(t, err)
	gt.A(t, tasks.Tasks()).Length(1)

	// merged reply ids survive the edits, so the same reply is not merged again
	gt.Equal(t, tasks.MergeReply("reply-1", "I'll send the invoices today.", now), 0)

	gt.NoError(t, removeTask(&out, path, extracted.ID))
	out.Reset()
	gt.NoError(t, listTasks(&out, path, true))
	gt.S(t, out.String()).Contains("No tasks found")
}

type memoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryArchive) Store(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

func (m *memoryArchive) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "no such object", goerr.V("key", key))
	}
	return data, nil
}

func TestPrintArchivedContent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	owner := model.NewUserID()

	b, err := business.New(repo).Create(ctx, owner, business.CreateInput{Name: "Acme"})
	gt.NoError(t, err)
	ag := &model.Agent{ID: model.NewAgentID(), BusinessID: b.ID, AgentName: "Writer", CreatedAt: time.Now()}
	gt.NoError(t, repo.PutAgent(ctx, ag))

	archive := &memoryArchive{}
	uc := content.New(repo, memory.NewAssembler(repo, memory.NewStore(repo)),
		&staticCompleter{text: "Fresh bread every morning."},
		content.WithArchive(archive),
	)
	result, err := uc.Generate(ctx, owner, ag.ID, model.ContentTypePost, "bakery opening")
	gt.NoError(t, err)

	a := &app{repo: repo, archive: archive}
	var out bytes.Buffer
	gt.NoError(t, a.printArchivedContent(ctx, &out, owner, ag.ID, result.Content.ID))
	gt.S(t, out.String()).Contains(string(result.Content.ID) + " (post)")
	gt.S(t, out.String()).Contains("Prompt: bakery opening")
	gt.S(t, out.String()).Contains("Fresh bread every morning.")

	err = a.printArchivedContent(ctx, &out, owner, ag.ID, model.NewContentID())
	gt.True(t, errors.Is(err, model.ErrNotFound))
	gt.True(t, strings.Contains(err.Error(), "failed to read archived content"))
}
