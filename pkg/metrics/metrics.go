// Package metrics defines the Prometheus collectors for indexing runs and the
// completion service, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	TablesIndexedTotal  *prometheus.CounterVec
	IndexBuildDuration  prometheus.Histogram
	IndexKeywords       prometheus.Histogram
	IndexTables         prometheus.Histogram
	ReindexRequestTotal *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec

	CompletionQueriesTotal *prometheus.CounterVec
	CompletionLatency      *prometheus.HistogramVec
	CompletionResults      prometheus.Histogram
	IndexCacheHitsTotal    *prometheus.CounterVec
	IndexCacheMissesTotal  prometheus.Counter
	CircuitBreakerState    *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		gatherer: prometheus.DefaultGatherer,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		TablesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyword_index_tables_indexed_total",
				Help: "Tables indexed by outcome (ok, error).",
			},
			[]string{"status"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyword_index_build_duration_seconds",
				Help:    "Time to build and persist one table index.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		IndexKeywords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyword_index_keywords",
				Help:    "Keywords contained in each persisted index.",
				Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		IndexTables: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keyword_index_tables",
				Help:    "Tables merged into each persisted index.",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		ReindexRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyword_index_reindex_requests_total",
				Help: "Reindex requests received by scope (table, all) and outcome.",
			},
			[]string{"scope", "status"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyword_index_events_published_total",
				Help: "Index events published to Kafka by outcome.",
			},
			[]string{"status"},
		),
		CompletionQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completion_queries_total",
				Help: "Completion queries by kind (keyword, variable) and result (hit, empty, error).",
			},
			[]string{"kind", "result"},
		),
		CompletionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "completion_latency_seconds",
				Help:    "Completion latency in seconds, including index loading.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"kind"},
		),
		CompletionResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "completion_results_count",
				Help:    "Candidates returned per completion query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		IndexCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "completion_index_cache_hits_total",
				Help: "Index loads served from a cache tier (memory, redis).",
			},
			[]string{"tier"},
		),
		IndexCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "completion_index_cache_misses_total",
				Help: "Index loads that had to read the index file.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.TablesIndexedTotal,
		m.IndexBuildDuration,
		m.IndexKeywords,
		m.IndexTables,
		m.ReindexRequestTotal,
		m.EventsPublished,
		m.CompletionQueriesTotal,
		m.CompletionLatency,
		m.CompletionResults,
		m.IndexCacheHitsTotal,
		m.IndexCacheMissesTotal,
		m.CircuitBreakerState,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveIndexed records one successfully persisted index.
func (m *Metrics) ObserveIndexed(keywords, tables int, took time.Duration) {
	m.TablesIndexedTotal.WithLabelValues("ok").Inc()
	m.IndexBuildDuration.Observe(took.Seconds())
	m.IndexKeywords.Observe(float64(keywords))
	m.IndexTables.Observe(float64(tables))
}

// ObserveCompletion records one answered completion query.
func (m *Metrics) ObserveCompletion(kind string, results int, took time.Duration) {
	result := "hit"
	if results == 0 {
		result = "empty"
	}
	m.CompletionQueriesTotal.WithLabelValues(kind, result).Inc()
	m.CompletionLatency.WithLabelValues(kind).Observe(took.Seconds())
	m.CompletionResults.Observe(float64(results))
}

// Handler serves the collectors of the registry m was built with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
