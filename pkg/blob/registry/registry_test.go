package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casahub/casahub/pkg/blob"
	chunkmemory "github.com/casahub/casahub/pkg/blob/chunk/memory"
)

func newTestRegistry(t *testing.T) (*Registry, blob.ChunkStore) {
	t.Helper()

	chunks, err := chunkmemory.NewMemoryChunkStore(context.Background())
	require.NoError(t, err)

	reg := New(chunks, NewMemoryRecordStore(), Config{ChunkSize: 8})
	return reg, chunks
}

func TestRegistryDraftInvisibleUntilFinalize(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Begin(ctx, "photo.jpg", "image/jpeg", map[string]string{"owner_listing_id": "l-1"})
	require.NoError(t, err)

	// Draft must not be queryable.
	_, err = reg.Get(ctx, id)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)

	require.NoError(t, reg.WriteChunk(ctx, id, 0, []byte("12345678")))
	require.NoError(t, reg.WriteChunk(ctx, id, 1, []byte("abc")))

	// Still invisible while chunks exist but finalize has not run.
	_, err = reg.Get(ctx, id)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)

	record, err := reg.Finalize(ctx, id, 11, 2)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, int64(11), record.Length)
	assert.Equal(t, uint32(2), record.ChunkCount)
	assert.Equal(t, 8, record.ChunkSize)
	assert.Equal(t, "l-1", record.Metadata["owner_listing_id"])

	got, err := reg.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, record.Length, got.Length)
}

func TestRegistryAbortLeavesNoTrace(t *testing.T) {
	reg, chunks := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Begin(ctx, "broken.png", "image/png", nil)
	require.NoError(t, err)

	require.NoError(t, reg.WriteChunk(ctx, id, 0, []byte("partial")))
	require.NoError(t, reg.Abort(ctx, id))

	_, err = reg.Get(ctx, id)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)

	_, err = chunks.ReadChunk(ctx, id, 0)
	assert.ErrorIs(t, err, blob.ErrChunkNotFound)

	// Writing after abort must fail: the draft is gone.
	err = reg.WriteChunk(ctx, id, 1, []byte("late"))
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)

	// Abort is idempotent.
	require.NoError(t, reg.Abort(ctx, id))
}

func TestRegistryWriteChunkRequiresDraft(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	err := reg.WriteChunk(ctx, blob.NewID(), 0, []byte("orphan"))
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)
}

func TestRegistryDeleteIsIdempotentViaNotFound(t *testing.T) {
	reg, chunks := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Begin(ctx, "gone.png", "image/png", nil)
	require.NoError(t, err)
	require.NoError(t, reg.WriteChunk(ctx, id, 0, []byte("bytes")))
	_, err = reg.Finalize(ctx, id, 5, 1)
	require.NoError(t, err)

	// First delete succeeds and removes chunks together with the record.
	require.NoError(t, reg.Delete(ctx, id))
	_, err = chunks.ReadChunk(ctx, id, 0)
	assert.ErrorIs(t, err, blob.ErrChunkNotFound)

	// Second delete reports not-found, never resurrects.
	err = reg.Delete(ctx, id)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)
	_, err = reg.Get(ctx, id)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)
}

func TestRegistryFinalizeUnknownDraft(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Finalize(context.Background(), blob.NewID(), 10, 1)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)
}

func TestRegistryReferencedBlobIDs(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	draftID, err := reg.Begin(ctx, "a.png", "image/png", nil)
	require.NoError(t, err)

	doneID, err := reg.Begin(ctx, "b.png", "image/png", nil)
	require.NoError(t, err)
	require.NoError(t, reg.WriteChunk(ctx, doneID, 0, []byte("x")))
	_, err = reg.Finalize(ctx, doneID, 1, 1)
	require.NoError(t, err)

	referenced, err := reg.ReferencedBlobIDs(ctx)
	require.NoError(t, err)

	assert.Contains(t, referenced, draftID)
	assert.Contains(t, referenced, doneID)
	assert.Len(t, referenced, 2)
}

func TestRegistryStaleDrafts(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	oldID, err := reg.Begin(ctx, "old.png", "image/png", nil)
	require.NoError(t, err)

	freshID, err := reg.Begin(ctx, "fresh.png", "image/png", nil)
	require.NoError(t, err)

	// Nothing is stale with a generous TTL.
	stale, err := reg.StaleDrafts(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stale)

	// With a zero TTL both drafts are older than the cutoff.
	stale, err = reg.StaleDrafts(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []blob.ID{oldID, freshID}, stale)
}

func TestBadgerRecordStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := NewBadgerRecordStore(ctx, BadgerRecordStoreConfig{DBPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	draft := &Draft{
		ID:          blob.NewID(),
		Filename:    "pic.webp",
		ContentType: "image/webp",
		ChunkSize:   255 * 1024,
		Metadata:    map[string]string{"original_name": "pic.webp"},
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.PutDraft(ctx, draft))

	got, err := store.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.Filename, got.Filename)
	assert.Equal(t, draft.Metadata, got.Metadata)

	// Drafts are invisible to GetRecord.
	_, err = store.GetRecord(ctx, draft.ID)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)

	record := &blob.Record{
		ID:          draft.ID,
		Filename:    draft.Filename,
		ContentType: draft.ContentType,
		Length:      42,
		ChunkCount:  1,
		ChunkSize:   draft.ChunkSize,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.PutRecord(ctx, record))
	require.NoError(t, store.DeleteDraft(ctx, draft.ID))

	visible, drafts, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []blob.ID{record.ID}, visible)
	assert.Empty(t, drafts)

	require.NoError(t, store.DeleteRecord(ctx, record.ID))
	_, err = store.GetRecord(ctx, record.ID)
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)
}
