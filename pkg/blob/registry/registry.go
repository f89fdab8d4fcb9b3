// Package registry implements the blob metadata layer: it maps blob
// identifiers to records (filename, content type, length, chunk list size,
// arbitrary metadata, creation time) and coordinates chunk writes with
// record visibility.
//
// Lifecycle of a blob:
//
//	id, _ := reg.Begin(ctx, "photo.jpg", "image/jpeg", meta)
//	for seq, chunk := range chunks {
//	    if err := reg.WriteChunk(ctx, id, seq, chunk); err != nil {
//	        _ = reg.Abort(ctx, id) // removes every written chunk
//	        return err
//	    }
//	}
//	record, _ := reg.Finalize(ctx, id, total, count)
//
// A blob is visible to Get only after Finalize. A crash or error before
// Finalize leaves a draft marker and possibly chunks, both invisible to
// readers and reclaimable by Abort or the background sweeper.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/pkg/blob"
)

// Registry coordinates a ChunkStore and a RecordStore.
//
// Thread safety: safe for concurrent use. No mutual exclusion is needed
// because blob IDs are unique per upload, chunk writes are idempotent and
// addressed by (blobID, seq), and reads never mutate.
type Registry struct {
	chunks    blob.ChunkStore
	records   RecordStore
	chunkSize int
}

// Config contains registry configuration.
type Config struct {
	// ChunkSize is the fixed chunk size for new uploads in bytes.
	// Defaults to blob.DefaultChunkSize.
	ChunkSize int
}

// New creates a Registry over the given chunk and record stores.
func New(chunks blob.ChunkStore, records RecordStore, config Config) *Registry {
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = blob.DefaultChunkSize
	}

	return &Registry{
		chunks:    chunks,
		records:   records,
		chunkSize: chunkSize,
	}
}

// ChunkSize returns the chunk size new uploads are split with.
func (r *Registry) ChunkSize() int {
	return r.chunkSize
}

// Begin reserves a fresh blob identifier and stores a draft marker.
// The draft is invisible to Get until Finalize.
func (r *Registry) Begin(ctx context.Context, filename, contentType string, metadata map[string]string) (blob.ID, error) {
	draft := &Draft{
		ID:          blob.NewID(),
		Filename:    filename,
		ContentType: contentType,
		ChunkSize:   r.chunkSize,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.records.PutDraft(ctx, draft); err != nil {
		return "", fmt.Errorf("begin blob: %w", err)
	}

	return draft.ID, nil
}

// WriteChunk writes one chunk of a draft blob. The draft must exist;
// writing to an unknown or already-finalized blob is an error, which keeps
// chunk writes from resurrecting aborted uploads.
func (r *Registry) WriteChunk(ctx context.Context, id blob.ID, seq uint32, data []byte) error {
	if _, err := r.records.GetDraft(ctx, id); err != nil {
		return fmt.Errorf("write chunk: no draft for %s: %w", id, blob.ErrBlobNotFound)
	}

	return r.chunks.WriteChunk(ctx, id, seq, data)
}

// Finalize makes a draft blob visible. After Finalize the draft marker is
// gone and Get returns the record.
//
// The caller supplies the observed totals; the registry records them as the
// authoritative Length and ChunkCount.
func (r *Registry) Finalize(ctx context.Context, id blob.ID, length int64, chunkCount uint32) (*blob.Record, error) {
	draft, err := r.records.GetDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}

	record := &blob.Record{
		ID:          draft.ID,
		Filename:    draft.Filename,
		ContentType: draft.ContentType,
		Length:      length,
		ChunkCount:  chunkCount,
		ChunkSize:   draft.ChunkSize,
		Metadata:    draft.Metadata,
		CreatedAt:   time.Now().UTC(),
	}

	// Record first, then drop the draft: if the process dies between the
	// two writes, the blob stays visible and the stale draft marker is
	// harmless (the sweeper skips drafts whose ID has a visible record).
	if err := r.records.PutRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("finalize %s: %w", id, err)
	}
	if err := r.records.DeleteDraft(ctx, id); err != nil {
		logger.Warn("Failed to remove draft marker for finalized blob %s: %v", id, err)
	}

	return record, nil
}

// Abort removes a draft blob: every written chunk and the draft marker.
// Never leaves a visible partial record. Idempotent — aborting an unknown
// draft succeeds.
func (r *Registry) Abort(ctx context.Context, id blob.ID) error {
	if err := r.chunks.DeleteChunks(ctx, id); err != nil {
		return fmt.Errorf("abort %s: chunk cleanup failed: %w", id, err)
	}

	if err := r.records.DeleteDraft(ctx, id); err != nil {
		return fmt.Errorf("abort %s: draft cleanup failed: %w", id, err)
	}

	return nil
}

// Get returns the record of a finalized blob, or blob.ErrBlobNotFound.
// Drafts are never returned.
func (r *Registry) Get(ctx context.Context, id blob.ID) (*blob.Record, error) {
	return r.records.GetRecord(ctx, id)
}

// Delete removes a finalized blob: its chunks and its record, or
// blob.ErrBlobNotFound if the blob does not exist. The second delete of
// the same ID therefore reports not-found, never success.
//
// Ordering: chunks are deleted before the record. If the process dies
// mid-delete, the worst outcome is orphan chunks with no record — invisible
// to readers and reclaimable by the sweeper. The opposite order could leave
// a visible record pointing at missing chunks.
func (r *Registry) Delete(ctx context.Context, id blob.ID) error {
	if _, err := r.records.GetRecord(ctx, id); err != nil {
		return err
	}

	if err := r.chunks.DeleteChunks(ctx, id); err != nil {
		return fmt.Errorf("delete %s: chunk cleanup failed: %w", id, err)
	}

	if err := r.records.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete %s: record cleanup failed: %w", id, err)
	}

	return nil
}

// ReadChunk reads one chunk of a blob. Visibility is not checked here; the
// retrieval layer resolves the record first and then streams chunks.
func (r *Registry) ReadChunk(ctx context.Context, id blob.ID, seq uint32) ([]byte, error) {
	return r.chunks.ReadChunk(ctx, id, seq)
}

// ReferencedBlobIDs returns every blob ID the registry still references:
// visible records plus in-progress drafts. Chunk sets outside this set are
// orphans.
func (r *Registry) ReferencedBlobIDs(ctx context.Context) (map[blob.ID]struct{}, error) {
	visible, drafts, err := r.records.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referenced blobs: %w", err)
	}

	referenced := make(map[blob.ID]struct{}, len(visible)+len(drafts))
	for _, id := range visible {
		referenced[id] = struct{}{}
	}
	for _, id := range drafts {
		referenced[id] = struct{}{}
	}
	return referenced, nil
}

// StaleDrafts returns drafts older than maxAge whose ID has no visible
// record. These are abandoned uploads (caller crashed or disconnected
// before Finalize/Abort) and can be aborted by the sweeper.
func (r *Registry) StaleDrafts(ctx context.Context, maxAge time.Duration) ([]blob.ID, error) {
	visible, drafts, err := r.records.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	visibleSet := make(map[blob.ID]struct{}, len(visible))
	for _, id := range visible {
		visibleSet[id] = struct{}{}
	}

	cutoff := time.Now().UTC().Add(-maxAge)

	var stale []blob.ID
	for _, id := range drafts {
		if _, ok := visibleSet[id]; ok {
			continue
		}
		draft, err := r.records.GetDraft(ctx, id)
		if err != nil {
			continue // removed concurrently
		}
		if draft.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	return stale, nil
}
