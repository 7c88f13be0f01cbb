package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "tutorhub"

// MetricsService owns a private Prometheus registry with the HTTP, cache and domain collectors.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	completions     *prometheus.CounterVec
	sweepRoutines   *prometheus.CounterVec
	sweepDuration   prometheus.Histogram

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMetricsService registers every collector on a fresh registry, so tests can build as many
// as they like.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	m := &MetricsService{registry: registry}

	m.requestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})
	m.requests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route template and status code.",
	}, []string{"method", "route", "status"})

	m.cacheLookups = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Dashboard cache lookups by result.",
	}, []string{"result"})
	m.cacheLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "operation_seconds",
		Help:      "Dashboard cache round trips.",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}, []string{"op"})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "hit_ratio",
		Help:      "Share of cache lookups served from the cache since start.",
	}, m.CacheHitRatio)

	m.completions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "task_completions_total",
		Help:      "Tasks completed by students, by resulting status.",
	}, []string{"status"})
	m.sweepRoutines = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "routine_sweep_routines_total",
		Help:      "Routines processed by sweeps, by outcome.",
	}, []string{"outcome"})
	m.sweepDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "routine_sweep_duration_seconds",
		Help:      "Wall time of one routine sweep.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler serves the registry in the exposition format. A nil service answers 503.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requests.WithLabelValues(method, route, code).Inc()
}

// RecordCacheOperation records a lookup and its latency.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
}

// ObserveCacheWrite records a cache write round trip.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// RecordTaskCompletion counts a completion by its resulting status (completed or overdue).
func (m *MetricsService) RecordTaskCompletion(status string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(status).Inc()
}

// RecordRoutineSweep records one sweep run.
func (m *MetricsService) RecordRoutineSweep(created, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepRoutines.WithLabelValues("created").Add(float64(created))
	m.sweepRoutines.WithLabelValues("failed").Add(float64(failed))
	m.sweepDuration.Observe(duration.Seconds())
}

// CacheHitRatio returns hits over lookups since start, or 0 before the first lookup.
func (m *MetricsService) CacheHitRatio() float64 {
	if m == nil {
		return 0
	}
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
