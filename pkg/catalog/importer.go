package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/casahub/casahub/internal/logger"
)

// MaxImportBatch bounds how many candidates one import call may carry.
const MaxImportBatch = 100

// Import item outcomes.
const (
	OutcomeImported = "imported"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
)

// ItemResult is the outcome of one candidate in an import batch.
type ItemResult struct {
	// Index is the candidate's position in the submitted batch.
	Index int `json:"index"`

	// Outcome is one of OutcomeImported, OutcomeSkipped, OutcomeError.
	Outcome string `json:"outcome"`

	// ID is the stored listing ID when imported.
	ID string `json:"id,omitempty"`

	// Reason explains a skip or error.
	Reason string `json:"reason,omitempty"`
}

// ImportReport summarizes an import batch.
type ImportReport struct {
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Errored  int          `json:"errored"`
	Items    []ItemResult `json:"items"`
}

// Importer validates and stores listing batches.
//
// Thread safety: safe for concurrent use; duplicate detection is
// best-effort across concurrent batches (the natural-key snapshot is taken
// at batch start).
type Importer struct {
	source   MutableSource
	validate *validator.Validate
	metrics  Metrics
}

// NewImporter creates an importer over the given source. metrics may be nil
// to disable metrics collection.
func NewImporter(source MutableSource, metrics Metrics) *Importer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Importer{
		source:   source,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// Import validates each candidate independently, skips duplicates (matched
// by natural key against both the stored collection and earlier candidates
// in the batch), and stores the rest. One malformed item never aborts the
// batch; every item's outcome is reported.
//
// A batch larger than MaxImportBatch is rejected whole with a
// *ValidationError before any item is processed.
func (im *Importer) Import(ctx context.Context, candidates []*Listing) (*ImportReport, error) {
	start := time.Now()
	report, err := im.doImport(ctx, candidates)
	im.metrics.ObserveOperation("import", time.Since(start), err)
	if report != nil {
		im.metrics.RecordResultCount("import", report.Imported)
	}
	return report, err
}

func (im *Importer) doImport(ctx context.Context, candidates []*Listing) (*ImportReport, error) {
	if len(candidates) > MaxImportBatch {
		return nil, &ValidationError{
			Field:  "items",
			Reason: fmt.Sprintf("batch of %d exceeds maximum of %d", len(candidates), MaxImportBatch),
		}
	}

	existing, err := im.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}

	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, l := range existing {
		seen[l.NaturalKey()] = struct{}{}
	}

	report := &ImportReport{Items: make([]ItemResult, 0, len(candidates))}

	for i, candidate := range candidates {
		result := im.importOne(ctx, candidate, seen)
		result.Index = i

		switch result.Outcome {
		case OutcomeImported:
			report.Imported++
		case OutcomeSkipped:
			report.Skipped++
		default:
			report.Errored++
		}
		report.Items = append(report.Items, result)
	}

	logger.Info("Imported listing batch: %d imported, %d skipped, %d errored",
		report.Imported, report.Skipped, report.Errored)
	return report, nil
}

func (im *Importer) importOne(ctx context.Context, candidate *Listing, seen map[string]struct{}) ItemResult {
	if candidate == nil {
		return ItemResult{Outcome: OutcomeError, Reason: "item is null"}
	}

	listing := *candidate
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = time.Now().UTC()
	}

	if err := im.validate.Struct(&listing); err != nil {
		return ItemResult{Outcome: OutcomeError, Reason: validationReason(err)}
	}

	key := listing.NaturalKey()
	if _, dup := seen[key]; dup {
		return ItemResult{Outcome: OutcomeSkipped, Reason: "duplicate listing"}
	}

	if err := im.source.Put(ctx, &listing); err != nil {
		return ItemResult{Outcome: OutcomeError, Reason: fmt.Sprintf("store listing: %v", err)}
	}

	seen[key] = struct{}{}
	return ItemResult{Outcome: OutcomeImported, ID: listing.ID}
}

// validationReason flattens validator output into a single human-readable
// reason naming the first offending field.
func validationReason(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag())
	}
	return err.Error()
}
