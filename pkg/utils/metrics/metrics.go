package metrics

import (
	"net/http"
	"time"

	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aistaff"

// Turn kinds
const (
	KindChat    = "chat"
	KindContent = "content"
)

// Turn outcomes
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics holds the process collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	turns           *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	tokens          *prometheus.CounterVec
	tasksExtracted  prometheus.Counter
}

// New creates Metrics with its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Number of chat and content generation turns by outcome.",
		}, []string{"kind", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of completion provider calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"kind"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_tokens_total",
			Help:      "Tokens reported by the completion provider.",
		}, []string{"kind", "direction"}),
		tasksExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_extracted_total",
			Help:      "Tasks extracted from assistant replies.",
		}),
	}

	m.registry.MustRegister(
		m.turns,
		m.providerLatency,
		m.tokens,
		m.tasksExtracted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveTurn records the outcome of a turn and the provider latency
func (m *Metrics) ObserveTurn(kind, outcome string, providerDuration time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(kind, outcome).Inc()
	if providerDuration > 0 {
		m.providerLatency.WithLabelValues(kind).Observe(providerDuration.Seconds())
	}
}

// AddUsage records provider token usage
func (m *Metrics) AddUsage(kind string, usage *model.Usage) {
	if m == nil || usage == nil {
		return
	}
	m.tokens.WithLabelValues(kind, "prompt").Add(float64(usage.PromptTokens))
	m.tokens.WithLabelValues(kind, "completion").Add(float64(usage.CompletionTokens))
}

// AddExtractedTasks records tasks created from a reply
func (m *Metrics) AddExtractedTasks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tasksExtracted.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
