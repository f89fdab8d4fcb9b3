// Package blob defines the core types and contracts of the media store:
// blob identifiers, blob records, and the ChunkStore interface that all
// storage backends implement.
//
// A blob is one stored binary object (typically an image) addressed by a
// generated identifier. Its bytes are persisted as a sequence of fixed-size
// chunks, the unit of storage and streaming. Blob metadata (filename,
// content type, length, chunk count) lives in the registry layer
// (pkg/blob/registry), which coordinates chunk writes with record
// visibility.
package blob

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChunkSize is the size of each stored chunk in bytes (255 KiB).
//
// The value bounds per-write memory and matches common chunked-storage
// defaults. Only the last chunk of a blob may be smaller.
const DefaultChunkSize = 255 * 1024

// ID identifies one blob. IDs are generated (UUID v4), globally unique,
// and never reused. Treat the value as opaque.
type ID string

// NewID generates a fresh blob identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// Record is the metadata describing one finalized blob.
//
// Invariants maintained by the registry:
//   - Length == sum of the sizes of all chunks with this ID
//   - ChunkCount == number of chunks stored under this ID
//   - A Record is visible to readers only after Finalize; a crash or error
//     before Finalize leaves no visible trace.
type Record struct {
	// ID is the unique blob identifier.
	ID ID `json:"id"`

	// Filename is the stored object name (derived from the original upload
	// name, sanitized).
	Filename string `json:"filename"`

	// ContentType is the declared MIME type (e.g. "image/png").
	ContentType string `json:"content_type"`

	// Length is the total payload size in bytes.
	Length int64 `json:"length"`

	// ChunkCount is the number of chunks the payload was split into.
	ChunkCount uint32 `json:"chunk_count"`

	// ChunkSize is the chunk size the blob was written with. Retrieval uses
	// this value so reads stay correct even if the configured chunk size
	// changes later.
	ChunkSize int `json:"chunk_size"`

	// Metadata is an open key/value bag attached at upload time
	// (e.g. original_name, owner_listing_id). The key set is documented but
	// deliberately not enumerated.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the blob was finalized.
	CreatedAt time.Time `json:"created_at"`
}
