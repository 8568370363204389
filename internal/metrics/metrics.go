package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "argus"

// Metrics records pipeline activity. A nil *Metrics is valid and records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	documents     *prometheus.CounterVec
	stageAttempts *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	tokens        *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents processed, by final processing method and media type.",
		}, []string{"method", "media_type"}),
		stageAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_attempts_total",
			Help:      "Pipeline stage attempts, by stage and outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens reported by LLM providers.",
		}, []string{"provider"}),
		gatherer: gatherer,
	}

	reg.MustRegister(m.documents, m.stageAttempts, m.stageDuration, m.tokens)
	return m
}

func (m *Metrics) RecordDocument(method, mediaType string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(method, mediaType).Inc()
}

func (m *Metrics) RecordStage(stage, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageAttempts.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordTokens(provider string, tokens int64) {
	if m == nil || tokens <= 0 {
		return
	}
	m.tokens.WithLabelValues(provider).Add(float64(tokens))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
