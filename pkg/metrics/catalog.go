package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/casahub/casahub/pkg/catalog"
)

// catalogMetrics is the Prometheus implementation of the catalog.Metrics
// interface.
type catalogMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	resultCounts      *prometheus.HistogramVec
}

// NewCatalogMetrics creates a new Prometheus-backed catalog.Metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes catalog components to use their built-in no-op implementation.
func NewCatalogMetrics() catalog.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &catalogMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "casahub_catalog_operations_total",
				Help: "Total number of catalog operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "casahub_catalog_operation_duration_seconds",
				Help: "Duration of catalog operations in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
				},
			},
			[]string{"operation"},
		),
		resultCounts: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casahub_catalog_result_count",
				Help:    "Number of items returned by catalog operations",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
			[]string{"operation"},
		),
	}
}

// ObserveOperation implements catalog.Metrics.ObserveOperation
func (m *catalogMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordResultCount implements catalog.Metrics.RecordResultCount
func (m *catalogMetrics) RecordResultCount(operation string, count int) {
	m.resultCounts.WithLabelValues(operation).Observe(float64(count))
}
