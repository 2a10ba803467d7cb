// Package metrics exposes Prometheus metrics for the API and the worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pageza/flavor-monk/backend/internal/llm"
	"github.com/pageza/flavor-monk/backend/internal/recommend"
	"github.com/pageza/flavor-monk/backend/internal/worker"
)

const namespace = "flavormonk"

// Collector handles Prometheus metrics collection. Each Collector owns its
// registry so tests and multiple processes never share global state.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Ranking metrics
	rankTotal        *prometheus.CounterVec
	rankDuration     prometheus.Histogram
	sourceFailures   *prometheus.CounterVec
	rankCacheLookups *prometheus.CounterVec

	// Assistant metrics
	llmQueriesTotal *prometheus.CounterVec
	llmCloudSpend   prometheus.Counter

	// Worker metrics
	tasksTotal    *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
	tasksRequeued prometheus.Counter
}

// NewCollector creates a collector with Go runtime and process metrics
// already registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		rankTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rank_requests_total",
				Help:      "Ranking requests by outcome",
			},
			[]string{"outcome"},
		),
		rankDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rank_duration_seconds",
				Help:      "Time to produce a ranking",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		sourceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retrieval_source_failures_total",
				Help:      "Candidate retrieval failures by source",
			},
			[]string{"source"},
		),
		rankCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rank_cache_lookups_total",
				Help:      "Ranking cache lookups by result",
			},
			[]string{"result"},
		),

		llmQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_queries_total",
				Help:      "Assistant queries by answering source",
			},
			[]string{"source", "cached"},
		),
		llmCloudSpend: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_cloud_spend_dollars_total",
				Help:      "Estimated spend on cloud model calls",
			},
		),

		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_tasks_total",
				Help:      "Background tasks by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_task_duration_seconds",
				Help:      "Background task processing time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		tasksRequeued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_tasks_requeued_total",
				Help:      "Reservations released after the visibility timeout",
			},
		),
	}
}

// Registry returns the collector's registry.
func (m *Collector) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection
func (m *Collector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// SourceFailed implements recommend.Observer.
func (m *Collector) SourceFailed(source string) {
	m.sourceFailures.WithLabelValues(source).Inc()
}

// CacheLookup implements recommend.Observer.
func (m *Collector) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.rankCacheLookups.WithLabelValues(result).Inc()
}

// RankCompleted implements recommend.Observer.
func (m *Collector) RankCompleted(outcome string, elapsed time.Duration) {
	m.rankTotal.WithLabelValues(outcome).Inc()
	m.rankDuration.Observe(elapsed.Seconds())
}

// LLMRouted implements llm.RouterObserver.
func (m *Collector) LLMRouted(source string, cached bool, cost float64) {
	m.llmQueriesTotal.WithLabelValues(source, strconv.FormatBool(cached)).Inc()
	if cost > 0 {
		m.llmCloudSpend.Add(cost)
	}
}

// TaskProcessed implements worker.Observer.
func (m *Collector) TaskProcessed(taskType, outcome string, elapsed time.Duration) {
	m.tasksTotal.WithLabelValues(taskType, outcome).Inc()
	m.taskDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
}

// TasksRequeued implements worker.Observer.
func (m *Collector) TasksRequeued(n int) {
	m.tasksRequeued.Add(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var (
	_ recommend.Observer = (*Collector)(nil)
	_ llm.RouterObserver = (*Collector)(nil)
	_ worker.Observer    = (*Collector)(nil)
)
