package chat

import (
	"time"

	"github.com/m-mizutani/aistaff/pkg/adapter"
	"github.com/m-mizutani/aistaff/pkg/repository"
	"github.com/m-mizutani/aistaff/pkg/usecase/memory"
	"github.com/m-mizutani/aistaff/pkg/utils/metrics"
)

const (
	DefaultTemperature     float32 = 0.7
	DefaultMaxOutputTokens         = 1000
	DefaultTimeout                 = 60 * time.Second
)

// UseCase provides the conversation turn of an agent
type UseCase struct {
	repo      repository.Repository
	assembler *memory.Assembler
	completer adapter.Completer
	metrics   *metrics.Metrics

	temperature     float32
	maxOutputTokens int
	timeout         time.Duration
	now             func() time.Time

	lanes *lanes
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCase) {
		uc.metrics = m
	}
}

// WithTimeout bounds a single provider call
func WithTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.timeout = d
	}
}

// WithClock sets the time source of message timestamps
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new chat UseCase instance
func New(
	repo repository.Repository,
	assembler *memory.Assembler,
	completer adapter.Completer,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:            repo,
		assembler:       assembler,
		completer:       completer,
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
		timeout:         DefaultTimeout,
		now:             time.Now,
		lanes:           newLanes(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
