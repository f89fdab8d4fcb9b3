package upload

import "time"

// Metrics provides observability for upload operations.
//
// Implementations can use this interface to collect metrics about uploads,
// latency, throughput, and rejections. This is optional; if not provided,
// metrics collection is skipped.
type Metrics interface {
	// ObserveUpload records a completed upload attempt with its duration
	// and outcome.
	ObserveUpload(duration time.Duration, err error)

	// RecordBytes records payload bytes accepted into the chunk store.
	RecordBytes(bytes int64)

	// RecordRejection records an upload rejected before any chunk was
	// written. reason can be: "size_limit", "media_type".
	RecordRejection(reason string)
}

// noopMetrics is a default no-op metrics implementation.
type noopMetrics struct{}

func (noopMetrics) ObserveUpload(duration time.Duration, err error) {}
func (noopMetrics) RecordBytes(bytes int64)                         {}
func (noopMetrics) RecordRejection(reason string)                   {}
