package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry. Every method is safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	txDuration      *prometheus.HistogramVec

	enrollmentsCreated  prometheus.Counter
	enrollmentDiscounts *prometheus.CounterVec
	codeCollisions      *prometheus.CounterVec

	requestCount   uint64
	cacheHitCount  uint64
	cacheMissCount uint64
}

// MetricsSnapshot is a cheap summary exposed on the health endpoint.
type MetricsSnapshot struct {
	RequestsTotal uint64  `json:"requests_total"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
	Goroutines    int     `json:"goroutines"`
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	m.cacheLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "cache_hits_total", Help: "Total cache hits"})
	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "cache_misses_total", Help: "Total cache misses"})
	m.txDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_transaction_duration_seconds",
		Help:    "Duration of mutating transactions by operation and outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	m.enrollmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollments_created_total",
		Help: "Enrollments successfully created",
	})
	m.enrollmentDiscounts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_discounts_total",
		Help: "Pricing evaluations by discount reason",
	}, []string{"reason"})
	m.codeCollisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generated_code_collisions_total",
		Help: "Server-generated codes that hit a unique constraint",
	}, []string{"entity"})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheHits, m.cacheMisses,
		m.txDuration, m.enrollmentsCreated, m.enrollmentDiscounts, m.codeCollisions, goroutines)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records a cache lookup outcome.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveTransaction records how long a mutating transaction took.
func (m *MetricsService) ObserveTransaction(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "commit"
	if err != nil {
		outcome = "rollback"
	}
	m.txDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// EnrollmentCreated counts a committed enrollment and its discount reason.
func (m *MetricsService) EnrollmentCreated(reason string) {
	if m == nil {
		return
	}
	m.enrollmentsCreated.Inc()
	m.enrollmentDiscounts.WithLabelValues(reason).Inc()
}

// EnrollmentRepriced counts a pricing evaluation done during an update.
func (m *MetricsService) EnrollmentRepriced(reason string) {
	if m == nil {
		return
	}
	m.enrollmentDiscounts.WithLabelValues(reason).Inc()
}

// CodeCollision counts a generated code rejected by a unique constraint.
func (m *MetricsService) CodeCollision(entity string) {
	if m == nil {
		return
	}
	m.codeCollisions.WithLabelValues(entity).Inc()
}

// Snapshot summarises the counters kept alongside Prometheus.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Goroutines: runtime.NumGoroutine()}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	return MetricsSnapshot{
		RequestsTotal: atomic.LoadUint64(&m.requestCount),
		CacheHitRatio: ratio,
		Goroutines:    runtime.NumGoroutine(),
	}
}
