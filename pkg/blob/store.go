package blob

import "context"

// ChunkStore provides durable storage of fixed-size binary chunks keyed by
// blob identifier and sequence number. It has no knowledge of HTTP, uploads,
// or listings; coordination of chunk writes with blob metadata is the
// registry's job.
//
// Write semantics:
// Writes are idempotent per (blobID, seq): retrying a write with identical
// bytes is a no-op success. A write with different bytes for an
// already-written sequence number must be rejected with ErrChunkConflict —
// chunks are immutable once written and are never silently overwritten.
// This makes retries after transient failures safe without locking: blob
// identifiers are unique per upload and every write is addressed by
// (blobID, seq).
//
// Thread safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writers never share a blobID (each upload owns a fresh draft),
// so per-blob serialization is not required.
//
// Context:
// All operations respect context cancellation and timeouts.
type ChunkStore interface {
	// WriteChunk stores one chunk. Idempotent for identical bytes; returns
	// ErrChunkConflict when (id, seq) exists with different content.
	WriteChunk(ctx context.Context, id ID, seq uint32, data []byte) error

	// ReadChunk returns the bytes of one chunk, or ErrChunkNotFound.
	// The returned slice is owned by the caller.
	ReadChunk(ctx context.Context, id ID, seq uint32) ([]byte, error)

	// DeleteChunks removes every chunk stored under the blob identifier.
	// Idempotent: deleting a blob with no chunks succeeds.
	DeleteChunks(ctx context.Context, id ID) error

	// Close releases backend resources. The store must not be used after
	// Close returns.
	Close() error
}

// ChunkLister is an optional interface for stores that can enumerate the
// blob identifiers they hold chunks for. The orphan sweeper (pkg/gc) uses it
// to find chunk sets no registry record references.
//
// For large stores enumeration may be slow; the sweeper runs it on a
// background interval, never on a request path.
type ChunkLister interface {
	ChunkStore

	// ListBlobIDs returns the distinct blob identifiers that currently have
	// at least one stored chunk.
	ListBlobIDs(ctx context.Context) ([]ID, error)
}
