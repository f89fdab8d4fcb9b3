package gc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casahub/casahub/pkg/blob"
	chunkmemory "github.com/casahub/casahub/pkg/blob/chunk/memory"
	"github.com/casahub/casahub/pkg/blob/registry"
)

func newTestCollector(t *testing.T, config Config) (*Collector, *registry.Registry, blob.ChunkStore) {
	t.Helper()

	chunks, err := chunkmemory.NewMemoryChunkStore(context.Background())
	require.NoError(t, err)

	reg := registry.New(chunks, registry.NewMemoryRecordStore(), registry.Config{ChunkSize: 4})

	collector, err := NewCollector(reg, chunks, config)
	require.NoError(t, err)

	return collector, reg, chunks
}

func TestCollectorRemovesOrphanedChunks(t *testing.T) {
	collector, reg, chunks := newTestCollector(t, Config{})
	ctx := context.Background()

	// A finalized blob that must survive.
	keepID, err := reg.Begin(ctx, "keep.png", "image/png", nil)
	require.NoError(t, err)
	require.NoError(t, reg.WriteChunk(ctx, keepID, 0, []byte("keep")))
	_, err = reg.Finalize(ctx, keepID, 4, 1)
	require.NoError(t, err)

	// Orphaned chunks written directly, bypassing the registry, as a crash
	// mid-delete would leave them.
	orphanID := blob.NewID()
	require.NoError(t, chunks.WriteChunk(ctx, orphanID, 0, []byte("lost")))

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Equal(t, uint64(1), stats.DeletedCount)
	assert.Zero(t, stats.FailedCount)

	_, err = chunks.ReadChunk(ctx, orphanID, 0)
	assert.ErrorIs(t, err, blob.ErrChunkNotFound)

	// The referenced blob is untouched.
	_, err = chunks.ReadChunk(ctx, keepID, 0)
	assert.NoError(t, err)
}

func TestCollectorAbortsStaleDrafts(t *testing.T) {
	// Zero draft age tolerance: every draft counts as abandoned.
	collector, reg, chunks := newTestCollector(t, Config{DraftTTL: time.Nanosecond})
	ctx := context.Background()

	draftID, err := reg.Begin(ctx, "stuck.png", "image/png", nil)
	require.NoError(t, err)
	require.NoError(t, reg.WriteChunk(ctx, draftID, 0, []byte("half")))

	time.Sleep(2 * time.Millisecond)

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.StaleDraftCount)
	assert.Equal(t, uint64(1), stats.AbortedDraftCount)

	_, err = chunks.ReadChunk(ctx, draftID, 0)
	assert.ErrorIs(t, err, blob.ErrChunkNotFound)
}

func TestCollectorKeepsFreshDrafts(t *testing.T) {
	collector, reg, chunks := newTestCollector(t, Config{DraftTTL: time.Hour})
	ctx := context.Background()

	draftID, err := reg.Begin(ctx, "inflight.png", "image/png", nil)
	require.NoError(t, err)
	require.NoError(t, reg.WriteChunk(ctx, draftID, 0, []byte("live")))

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)

	// An in-progress upload is referenced, not orphaned.
	assert.Zero(t, stats.StaleDraftCount)
	assert.Zero(t, stats.OrphanedCount)

	_, err = chunks.ReadChunk(ctx, draftID, 0)
	assert.NoError(t, err)
}

func TestCollectorDryRunDeletesNothing(t *testing.T) {
	collector, _, chunks := newTestCollector(t, Config{DryRun: true})
	ctx := context.Background()

	orphanID := blob.NewID()
	require.NoError(t, chunks.WriteChunk(ctx, orphanID, 0, []byte("lost")))

	stats, err := collector.RunNow(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Zero(t, stats.DeletedCount)

	_, err = chunks.ReadChunk(ctx, orphanID, 0)
	assert.NoError(t, err)
}

func TestCollectorStartStop(t *testing.T) {
	collector, _, _ := newTestCollector(t, Config{Enabled: true, Interval: time.Hour})

	collector.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, collector.Stop(ctx))
}
