package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/casahub/casahub/pkg/blob/upload"
)

// uploadMetrics is the Prometheus implementation of the upload.Metrics
// interface.
//
// This implementation collects metrics about media ingestion including:
//   - Upload counts and outcomes
//   - Upload latency
//   - Payload bytes accepted
//   - Rejection counts by reason
type uploadMetrics struct {
	uploadsTotal    *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	bytesAccepted   prometheus.Counter
	rejectionsTotal *prometheus.CounterVec
}

// NewUploadMetrics creates a new Prometheus-backed upload.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the upload pipeline to use its built-in no-op implementation.
func NewUploadMetrics() upload.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &uploadMetrics{
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "casahub_media_uploads_total",
				Help: "Total number of media uploads by status",
			},
			[]string{"status"},
		),
		uploadDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "casahub_media_upload_duration_seconds",
				Help: "Duration of media uploads in seconds",
				Buckets: []float64{
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
					10.0,  // 10s
					30.0,  // 30s
				},
			},
		),
		bytesAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "casahub_media_bytes_accepted_total",
				Help: "Total payload bytes accepted into the chunk store",
			},
		),
		rejectionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "casahub_media_rejections_total",
				Help: "Total number of uploads rejected by reason",
			},
			[]string{"reason"},
		),
	}
}

// ObserveUpload implements upload.Metrics.ObserveUpload
func (m *uploadMetrics) ObserveUpload(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.uploadsTotal.WithLabelValues(status).Inc()
	m.uploadDuration.Observe(duration.Seconds())
}

// RecordBytes implements upload.Metrics.RecordBytes
func (m *uploadMetrics) RecordBytes(bytes int64) {
	m.bytesAccepted.Add(float64(bytes))
}

// RecordRejection implements upload.Metrics.RecordRejection
func (m *uploadMetrics) RecordRejection(reason string) {
	m.rejectionsTotal.WithLabelValues(reason).Inc()
}
