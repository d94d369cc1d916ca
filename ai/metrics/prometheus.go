// Package metrics provides Prometheus metrics export for the matching engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports matching metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	matchRequests    *prometheus.CounterVec
	matchLatency     *prometheus.HistogramVec
	matchesReturned  prometheus.Histogram
	candidatePool    prometheus.Histogram
	semanticFailures prometheus.Counter
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{
		registry: registry,
		matchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tarotlink",
			Subsystem: "matching",
			Name:      "requests_total",
			Help:      "Match requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		matchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tarotlink",
			Subsystem: "matching",
			Name:      "request_duration_seconds",
			Help:      "End-to-end match request latency.",
			Buckets:   cfg.LatencyBuckets,
		}, []string{"mode"}),
		matchesReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tarotlink",
			Subsystem: "matching",
			Name:      "matches_returned",
			Help:      "Number of matches returned per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		}),
		candidatePool: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tarotlink",
			Subsystem: "matching",
			Name:      "candidate_pool_size",
			Help:      "Candidate records considered per request.",
			Buckets:   []float64{0, 10, 25, 50, 75, 100},
		}),
		semanticFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tarotlink",
			Subsystem: "matching",
			Name:      "semantic_scorer_failures_total",
			Help:      "Semantic scorer calls degraded to a zero score.",
		}),
	}

	registry.MustRegister(
		e.matchRequests,
		e.matchLatency,
		e.matchesReturned,
		e.candidatePool,
		e.semanticFailures,
	)
	return e
}

// ObserveMatchRequest records one completed match request.
func (e *PrometheusExporter) ObserveMatchRequest(mode, outcome string, matches int, duration time.Duration) {
	e.matchRequests.WithLabelValues(mode, outcome).Inc()
	e.matchLatency.WithLabelValues(mode).Observe(duration.Seconds())
	if outcome == "ok" {
		e.matchesReturned.Observe(float64(matches))
	}
}

// ObserveCandidatePool records the pool size of one request.
func (e *PrometheusExporter) ObserveCandidatePool(size int) {
	e.candidatePool.Observe(float64(size))
}

// IncSemanticFailure counts one degraded semantic-scorer call.
func (e *PrometheusExporter) IncSemanticFailure() {
	e.semanticFailures.Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
