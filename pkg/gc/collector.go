// Package gc provides garbage collection for orphaned blob chunks and
// abandoned upload drafts.
//
// Orphan chunk sets (chunks whose blob ID has neither a visible record nor
// a draft) can occur due to:
//   - Server crashes during delete operations
//   - Failed abort cleanup after an upload error
//   - Bugs in registry/chunk store coordination
//
// Stale drafts are uploads whose caller crashed or disconnected before
// finalizing; the collector aborts them, which removes their chunks and
// draft marker.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/pkg/blob"
	"github.com/casahub/casahub/pkg/blob/registry"
)

// Collector performs periodic garbage collection on the blob store.
//
// The collector runs in the background and periodically scans for orphaned
// chunk sets and stale drafts.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	registry *registry.Registry
	chunks   blob.ChunkStore
	config   Config
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether garbage collection is active
	Enabled bool

	// Interval is how often to run garbage collection (default: 10m)
	Interval time.Duration

	// DraftTTL is how old a draft must be before it counts as abandoned
	// (default: 1h)
	DraftTTL time.Duration

	// DryRun mode logs what would be deleted without actually deleting.
	// Useful for testing and validation.
	DryRun bool
}

// NewCollector creates a new garbage collector.
//
// The collector will be initialized but not started. Call Start() to begin
// background garbage collection.
//
// Parameters:
//   - reg: Registry used to resolve referenced blob IDs and abort drafts
//   - chunks: Chunk store to scan for orphaned chunk sets
//   - config: Garbage collection configuration
//
// Returns:
//   - *Collector: Initialized collector (not started)
//   - error: Returns error if the chunk store cannot enumerate blob IDs
func NewCollector(reg *registry.Registry, chunks blob.ChunkStore, config Config) (*Collector, error) {
	if _, ok := chunks.(blob.ChunkLister); !ok {
		return nil, fmt.Errorf("chunk store does not implement ChunkLister interface")
	}

	if config.Interval == 0 {
		config.Interval = 10 * time.Minute
	}
	if config.DraftTTL == 0 {
		config.DraftTTL = time.Hour
	}

	return &Collector{
		registry: reg,
		chunks:   chunks,
		config:   config,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins background garbage collection.
//
// This starts a goroutine that periodically runs garbage collection at the
// configured interval. The goroutine will run until Stop() is called.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	logger.Info("Starting garbage collector: interval=%s draft_ttl=%s dry_run=%v",
		c.config.Interval, c.config.DraftTTL, c.config.DryRun)

	go c.worker()
}

// Stop stops the garbage collector and waits for it to finish.
//
// This signals the worker goroutine to stop and waits for it to complete
// any in-progress collection.
//
// Parameters:
//   - ctx: Context for timeout (collection will be interrupted if the
//     context expires)
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	logger.Info("Stopping garbage collector...")

	close(c.stopCh)

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate garbage collection run.
//
// This is useful for testing, manual triggers, and initial cleanup on
// startup. The method blocks until collection completes or the context is
// cancelled.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running garbage collection (manual trigger)...")
	return c.collect(ctx)
}

// worker is the background goroutine that runs periodic garbage collection.
func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	logger.Info("Garbage collector worker started")

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			logger.Info("Garbage collector worker stopping...")
			return
		}
	}
}

// collect performs a single garbage collection run.
//
// The core algorithm:
//  1. Abort drafts older than DraftTTL (removes their chunks and markers)
//  2. Get all blob IDs referenced by the registry (records + live drafts)
//  3. Get all blob IDs with stored chunks
//  4. Compute orphaned = existing - referenced, delete their chunk sets
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	lister, ok := c.chunks.(blob.ChunkLister)
	if !ok {
		return stats, fmt.Errorf("chunk store does not support garbage collection")
	}

	// Phase 1: abandoned drafts. Abort them before computing orphans so
	// their chunks are reclaimed in the same run.
	stale, err := c.registry.StaleDrafts(ctx, c.config.DraftTTL)
	if err != nil {
		return stats, fmt.Errorf("failed to list stale drafts: %w", err)
	}
	stats.StaleDraftCount = uint64(len(stale))

	for _, id := range stale {
		if c.config.DryRun {
			logger.Info("GC: DRY RUN - would abort stale draft %s", id)
			continue
		}
		if err := c.registry.Abort(ctx, id); err != nil {
			logger.Warn("GC: Failed to abort stale draft %s: %v", id, err)
			stats.FailedCount++
			continue
		}
		stats.AbortedDraftCount++
	}

	// Phase 2: referenced blob IDs.
	referenced, err := c.registry.ReferencedBlobIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get referenced blobs: %w", err)
	}
	stats.ReferencedCount = uint64(len(referenced))

	// Phase 3: existing chunk sets.
	existing, err := lister.ListBlobIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list chunk sets: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	// Phase 4: orphans.
	var orphaned []blob.ID
	for _, id := range existing {
		if _, isReferenced := referenced[id]; !isReferenced {
			orphaned = append(orphaned, id)
		}
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		stats.EndTime = time.Now()
		return stats, nil
	}

	logger.Info("GC: Found %d orphaned chunk sets", stats.OrphanedCount)

	if c.config.DryRun {
		for _, id := range orphaned {
			logger.Info("GC: DRY RUN - would delete chunks of %s", id)
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	for _, id := range orphaned {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		if err := c.chunks.DeleteChunks(ctx, id); err != nil {
			logger.Warn("GC: Failed to delete chunks of %s: %v", id, err)
			stats.FailedCount++
			continue
		}
		stats.DeletedCount++
	}

	stats.EndTime = time.Now()

	logger.Info("GC: Completed - deleted %d chunk sets, aborted %d drafts, %d failed, duration=%s",
		stats.DeletedCount, stats.AbortedDraftCount, stats.FailedCount, stats.Duration())

	return stats, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime         time.Time // When collection started
	EndTime           time.Time // When collection ended
	StaleDraftCount   uint64    // Number of stale drafts found
	AbortedDraftCount uint64    // Number of stale drafts aborted
	ReferencedCount   uint64    // Number of blob IDs still referenced
	ExistingCount     uint64    // Number of blob IDs with stored chunks
	OrphanedCount     uint64    // Number of orphaned chunk sets found
	DeletedCount      uint64    // Number of chunk sets successfully deleted
	FailedCount       uint64    // Number of cleanup operations that failed
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("stale_drafts=%d aborted=%d referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.StaleDraftCount, s.AbortedDraftCount, s.ReferencedCount, s.ExistingCount,
		s.OrphanedCount, s.DeletedCount, s.FailedCount, s.Duration())
}
