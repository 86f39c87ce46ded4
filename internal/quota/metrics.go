// Package quota provides metrics instrumentation.
package quota

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records limiter activity.
type Metrics interface {
	IncAcquire(result string, class string)
	IncFallback(reason string)
	IncConflictRetry()
	IncStoreError(op string)
	ObserveAcquireLatency(d time.Duration)
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) IncAcquire(result string, class string) {}
func (NoopMetrics) IncFallback(reason string)              {}
func (NoopMetrics) IncConflictRetry()                      {}
func (NoopMetrics) IncStoreError(op string)                {}
func (NoopMetrics) ObserveAcquireLatency(d time.Duration)  {}

// PrometheusMetrics implements Metrics on a Prometheus registry.
type PrometheusMetrics struct {
	acquires    *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	conflicts   prometheus.Counter
	storeErrors *prometheus.CounterVec
	latency     prometheus.Histogram
}

// NewPrometheusMetrics creates and registers all metrics with the registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	return &PrometheusMetrics{
		acquires: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiquota",
				Name:      "acquire_total",
				Help:      "Acquisition outcomes by result and limit class",
			},
			[]string{"result", "class"},
		),
		fallbacks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiquota",
				Name:      "fallback_total",
				Help:      "Acquisitions served by the local fallback limiter",
			},
			[]string{"reason"},
		),
		conflicts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "apiquota",
				Name:      "conflict_retries_total",
				Help:      "Optimistic-concurrency conflicts retried internally",
			},
		),
		storeErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiquota",
				Name:      "store_errors_total",
				Help:      "Shared store round-trips that failed",
			},
			[]string{"op"},
		),
		latency: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "apiquota",
				Name:      "acquire_duration_seconds",
				Help:      "Acquire latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

func (m *PrometheusMetrics) IncAcquire(result string, class string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(result, class).Inc()
}

func (m *PrometheusMetrics) IncFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) IncConflictRetry() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *PrometheusMetrics) IncStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *PrometheusMetrics) ObserveAcquireLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}
