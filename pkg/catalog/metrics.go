package catalog

import "time"

// Metrics provides observability for catalog operations. Optional; if not
// provided, metrics collection is skipped.
type Metrics interface {
	// ObserveOperation records a catalog operation (query, search,
	// summarize, import) with its duration and outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordResultCount records how many items an operation returned.
	RecordResultCount(operation string, count int)
}

// noopMetrics is a default no-op metrics implementation.
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(operation string, duration time.Duration, err error) {}
func (noopMetrics) RecordResultCount(operation string, count int)                        {}
