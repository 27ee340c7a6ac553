// Package metrics exposes Prometheus instruments for lookups, redactions,
// pipeline runs and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nao1215/surveytriage/internal/scrub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "surveytriage"

// Run results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics groups all instruments. Each Metrics owns its registry, so several
// instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	LookupsTotal   *prometheus.CounterVec
	LookupDuration prometheus.Histogram
	Redactions     *prometheus.CounterVec
	RunsTotal      *prometheus.CounterVec
	RowsProcessed  prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// New creates a Metrics instance registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Content API lookups by outcome.",
		}, []string{"outcome"}),
		LookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "Content API lookup latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Redactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scrub",
			Name:      "redactions_total",
			Help:      "PII substitutions by kind.",
		}, []string{"kind"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by result.",
		}, []string{"result"}),
		RowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "rows_total",
			Help:      "Dataset rows processed by the pipeline.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the registry the instruments are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// LookupDone records one finished lookup.
func (m *Metrics) LookupDone(outcome string, seconds float64) {
	m.LookupsTotal.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.LookupDuration.Observe(seconds)
	}
}

// Redacted records the substitutions made in one cell or request.
func (m *Metrics) Redacted(counts map[scrub.Kind]int) {
	for kind, n := range counts {
		m.Redactions.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// RunDone records a finished pipeline run over rows rows.
func (m *Metrics) RunDone(rows int, failed bool) {
	result := ResultSuccess
	if failed {
		result = ResultFailure
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RowsProcessed.Add(float64(rows))
}

// HTTPDone records one served HTTP request.
func (m *Metrics) HTTPDone(route string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
