package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports store metrics through a prometheus
// registry: per-operation outcome counters, persist-failure counters, and an
// operation duration histogram.
type PrometheusMetricsRecorder struct {
	operations      *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	durations       *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder registers the store collectors with reg. A nil
// registerer falls back to the default registry.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliancecore",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation name and outcome.",
		}, []string{"operation", "outcome"}),
		persistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliancecore",
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Snapshot writes that failed after an applied mutation.",
		}, []string{"operation"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "compliancecore",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation, outcome string, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// PersistFailure implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) PersistFailure(operation string) {
	r.persistFailures.WithLabelValues(operation).Inc()
}
