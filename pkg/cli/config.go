package cli

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/access"
	"github.com/m-mizutani/aistaff/pkg/usecase/agent"
	"github.com/m-mizutani/aistaff/pkg/usecase/auth"
	"github.com/m-mizutani/aistaff/pkg/usecase/business"
	"github.com/m-mizutani/aistaff/pkg/usecase/chat"
	"github.com/m-mizutani/aistaff/pkg/usecase/content"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/aistaff/pkg/utils/logging"
	"github.com/m-mizutani/aistaff/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	repositoryFirestore = "firestore"
	repositoryMemory    = "memory"

	providerDeepSeek = "deepseek"
	providerOpenAI   = "openai"
	providerGemini   = "gemini"

	embeddingPlaceholder = "placeholder"
	embeddingGemini      = "gemini"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Repository
	repository string
	project    string
	database   string

	// Auth
	jwtSecret string
	jwtTTL    time.Duration

	// LLM
	llmProvider     string
	deepseekAPIKey  string
	deepseekBaseURL string
	deepseekModel   string
	openaiAPIKey    string
	openaiModel     string
	geminiProject   string
	geminiLocation  string
	geminiModel     string
	embedding       string
	llmTimeout      time.Duration

	// Storage
	archiveBucket string
	archivePrefix string

	gemini *adapter.GeminiClient
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("AISTAFF_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("AISTAFF_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Record store (firestore, memory)",
			Value:       repositoryFirestore,
			Sources:     cli.EnvVars("AISTAFF_REPOSITORY"),
			Destination: &cfg.repository,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "Secret to sign and verify bearer tokens",
			Sources:     cli.EnvVars("AISTAFF_JWT_SECRET", "JWT_SECRET"),
			Destination: &cfg.jwtSecret,
		},
		&cli.DurationFlag{
			Name:        "jwt-ttl",
			Usage:       "Lifetime of issued bearer tokens",
			Value:       auth.DefaultTokenTTL,
			Sources:     cli.EnvVars("AISTAFF_JWT_TTL"),
			Destination: &cfg.jwtTTL,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "Completion provider (deepseek, openai, gemini)",
			Value:       providerDeepSeek,
			Sources:     cli.EnvVars("AISTAFF_LLM_PROVIDER"),
			Destination: &cfg.llmProvider,
		},
		&cli.StringFlag{
			Name:        "deepseek-api-key",
			Usage:       "DeepSeek API key",
			Sources:     cli.EnvVars("DEEPSEEK_API_KEY"),
			Destination: &cfg.deepseekAPIKey,
		},
		&cli.StringFlag{
			Name:        "deepseek-base-url",
			Usage:       "DeepSeek API base URL",
			Value:       adapter.DefaultDeepSeekBaseURL,
			Sources:     cli.EnvVars("DEEPSEEK_BASE_URL"),
			Destination: &cfg.deepseekBaseURL,
		},
		&cli.StringFlag{
			Name:        "deepseek-model",
			Usage:       "DeepSeek chat model",
			Value:       adapter.DefaultDeepSeekModel,
			Sources:     cli.EnvVars("DEEPSEEK_MODEL"),
			Destination: &cfg.deepseekModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "OpenAI chat model",
			Value:       adapter.DefaultOpenAIModel,
			Sources:     cli.EnvVars("OPENAI_MODEL"),
			Destination: &cfg.openaiModel,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini generative model",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "embedding",
			Usage:       "Memory embedding generator (placeholder, gemini)",
			Value:       embeddingPlaceholder,
			Sources:     cli.EnvVars("AISTAFF_EMBEDDING"),
			Destination: &cfg.embedding,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout of one completion call",
			Value:       chat.DefaultTimeout,
			Sources:     cli.EnvVars("AISTAFF_LLM_TIMEOUT"),
			Destination: &cfg.llmTimeout,
		},
	}
}

// storageFlags returns flags for the content archive with destination config
func storageFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket to archive generated content (disabled when empty)",
			Sources:     cli.EnvVars("AISTAFF_ARCHIVE_BUCKET"),
			Destination: &cfg.archiveBucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix in the archive bucket",
			Value:       "aistaff/",
			Sources:     cli.EnvVars("AISTAFF_ARCHIVE_PREFIX"),
			Destination: &cfg.archivePrefix,
		},
	}
}

// setupLogger installs the configured default logger and returns a context carrying it
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.NewWithFormat(cfg.logLevel, logging.ParseFormat(cfg.logFormat), os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository creates a new repository instance. The returned function
// releases it.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, func(), error) {
	switch cfg.repository {
	case repositoryMemory:
		logging.From(ctx).Warn("using in-memory repository, records are lost on exit")
		return repository.NewMemory(), func() {}, nil

	case repositoryFirestore:
		if cfg.project == "" {
			return nil, nil, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, nil, goerr.New("database is required")
		}

		repo, err := repository.New(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				logging.From(ctx).Warn("failed to close repository", "error", err)
			}
		}, nil

	default:
		return nil, nil, goerr.New("unknown repository", goerr.V("repository", cfg.repository))
	}
}

// newGemini creates a Gemini adapter instance, shared by the completer and the embedder
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	if cfg.gemini != nil {
		return cfg.gemini, nil
	}
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.geminiModel),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	cfg.gemini = gemini
	return gemini, nil
}

// newCompleter creates the completion provider selected by --llm-provider
func (cfg *config) newCompleter(ctx context.Context) (adapter.Completer, error) {
	switch cfg.llmProvider {
	case providerDeepSeek:
		if cfg.deepseekAPIKey == "" {
			return nil, goerr.New("deepseek-api-key is required")
		}
		return adapter.NewDeepSeekCompleter(cfg.deepseekAPIKey,
			adapter.WithBaseURL(cfg.deepseekBaseURL),
			adapter.WithModel(cfg.deepseekModel),
		)

	case providerOpenAI:
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		return adapter.NewOpenAICompleter(cfg.openaiAPIKey, adapter.WithModel(cfg.openaiModel))

	case providerGemini:
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return adapter.NewGeminiCompleter(gemini), nil

	default:
		return nil, goerr.New("unknown llm provider", goerr.V("provider", cfg.llmProvider))
	}
}

// newEmbedder creates the memory embedding generator selected by --embedding
func (cfg *config) newEmbedder(ctx context.Context) (memory.Embedder, error) {
	switch cfg.embedding {
	case embeddingPlaceholder:
		return &memory.PlaceholderEmbedder{Dimension: memory.DefaultEmbeddingDimension}, nil

	case embeddingGemini:
		gemini, err := cfg.newGemini(ctx)
		if err != nil {
			return nil, err
		}
		return memory.NewGeminiEmbedder(gemini, memory.DefaultEmbeddingDimension), nil

	default:
		return nil, goerr.New("unknown embedding generator", goerr.V("embedding", cfg.embedding))
	}
}

// newArchive creates the content archive. It returns nil when no bucket is configured.
func (cfg *config) newArchive(ctx context.Context) (adapter.Archive, error) {
	if cfg.archiveBucket == "" {
		return nil, nil
	}

	archive, err := adapter.NewStorageArchive(ctx, cfg.archiveBucket, adapter.WithPrefix(cfg.archivePrefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create archive")
	}
	return archive, nil
}

// app is the wired set of use cases shared by commands
type app struct {
	repo    repository.Repository
	close   func()
	metrics *metrics.Metrics

	auth     *auth.UseCase
	business *business.UseCase
	agent    *agent.UseCase
	chat     *chat.UseCase
	content  *content.UseCase

	// archive is nil when no bucket is configured
	archive adapter.Archive
}

// requirement selects the optional parts of an app
type requirement int

const (
	// needEmbedder builds the configured embedding generator instead of the placeholder
	needEmbedder requirement = 1 << iota
	// needCompleter builds the completion provider, chat and content use cases
	needCompleter
	// needArchive requires the content archive to be configured
	needArchive
)

// newApp wires the use cases. chat and content are nil unless needCompleter is set.
func (cfg *config) newApp(ctx context.Context, needs requirement) (*app, error) {
	repo, closeRepo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	a, err := cfg.wire(ctx, repo, needs)
	if err != nil {
		closeRepo()
		return nil, err
	}
	a.close = closeRepo
	return a, nil
}

func (cfg *config) wire(ctx context.Context, repo repository.Repository, needs requirement) (*app, error) {
	if cfg.jwtSecret == "" {
		return nil, goerr.New("jwt-secret is required")
	}
	authUC, err := auth.New(repo, cfg.jwtSecret, auth.WithTokenTTL(cfg.jwtTTL))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create auth use case")
	}

	storeOpts := []memory.StoreOption{}
	if needs&needEmbedder != 0 {
		embedder, err := cfg.newEmbedder(ctx)
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, memory.WithEmbedder(embedder))
	}
	store := memory.NewStore(repo, storeOpts...)

	a := &app{
		repo:     repo,
		close:    func() {},
		metrics:  metrics.New(),
		auth:     authUC,
		business: business.New(repo),
		agent:    agent.New(repo, store),
	}
	if needs&(needCompleter|needArchive) != 0 {
		archive, err := cfg.newArchive(ctx)
		if err != nil {
			return nil, err
		}
		if archive == nil && needs&needArchive != 0 {
			return nil, goerr.New("archive-bucket is required")
		}
		a.archive = archive
	}
	if needs&needCompleter == 0 {
		return a, nil
	}

	completer, err := cfg.newCompleter(ctx)
	if err != nil {
		return nil, err
	}

	assembler := memory.NewAssembler(repo, store)
	a.chat = chat.New(repo, assembler, completer,
		chat.WithMetrics(a.metrics),
		chat.WithTimeout(cfg.llmTimeout),
	)

	contentOpts := []content.Option{
		content.WithMetrics(a.metrics),
		content.WithTimeout(cfg.llmTimeout),
	}
	if a.archive != nil {
		contentOpts = append(contentOpts, content.WithArchive(a.archive))
	}
	a.content = content.New(repo, assembler, completer, contentOpts...)

	return a, nil
}

// sessionFlags returns the bearer token flag used by per-user commands
func sessionFlags(token *string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "token",
			Aliases:     []string{"t"},
			Usage:       "Bearer token printed by register or login",
			Sources:     cli.EnvVars("AISTAFF_TOKEN"),
			Destination: token,
			Required:    true,
		},
	}
}

// userID resolves the user of a bearer token
func (a *app) userID(token string) (model.UserID, error) {
	id, err := a.auth.VerifyToken(token)
	if err != nil {
		return "", goerr.Wrap(err, "invalid token, run login again")
	}
	return id, nil
}

// agentMessages lists the conversation of an agent owned by the user
func (a *app) agentMessages(ctx context.Context, userID model.UserID, agentID model.AgentID) ([]*model.Message, error) {
	if _, _, err := access.OwnedAgent(ctx, a.repo, userID, agentID); err != nil {
		return nil, err
	}
	messages, err := a.repo.ListMessages(ctx, agentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("agent_id", agentID))
	}
	return messages, nil
}

// agentContents lists the generated contents of an agent owned by the user
func (a *app) agentContents(ctx context.Context, userID model.UserID, agentID model.AgentID) ([]*model.GeneratedContent, error) {
	if _, _, err := access.OwnedAgent(ctx, a.repo, userID, agentID); err != nil {
		return nil, err
	}
	contents, err := a.repo.ListContents(ctx, agentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list contents", goerr.V("agent_id", agentID))
	}
	return contents, nil
}
