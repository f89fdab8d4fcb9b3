package registry

import (
	"context"
	"time"

	"github.com/casahub/casahub/pkg/blob"
)

// Draft describes a blob whose chunks are being written but which has not
// been finalized. Drafts are never visible to readers; they exist so that
// Abort (and the background sweeper, for crashed uploads) can find and
// remove partially-written chunk sets.
type Draft struct {
	// ID is the blob identifier reserved for this upload.
	ID blob.ID `json:"id"`

	// Filename is the sanitized object name declared at Begin.
	Filename string `json:"filename"`

	// ContentType is the declared MIME type.
	ContentType string `json:"content_type"`

	// ChunkSize is the chunk size this upload writes with.
	ChunkSize int `json:"chunk_size"`

	// Metadata is the open key/value bag attached at Begin.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the draft was begun. Drafts older than the sweep
	// TTL are considered abandoned.
	CreatedAt time.Time `json:"created_at"`
}

// RecordStore persists blob records and drafts. It stores metadata only;
// chunk bytes live in the ChunkStore.
//
// Visibility rule: GetRecord must never return drafts, and GetDraft must
// never return finalized records. The registry moves a blob from draft to
// record exactly once, at Finalize.
//
// Thread safety: implementations must be safe for concurrent use.
type RecordStore interface {
	// PutDraft stores or replaces a draft marker.
	PutDraft(ctx context.Context, draft *Draft) error

	// GetDraft returns a draft, or blob.ErrBlobNotFound.
	GetDraft(ctx context.Context, id blob.ID) (*Draft, error)

	// DeleteDraft removes a draft marker. Idempotent.
	DeleteDraft(ctx context.Context, id blob.ID) error

	// PutRecord stores a finalized, visible blob record.
	PutRecord(ctx context.Context, record *blob.Record) error

	// GetRecord returns a visible record, or blob.ErrBlobNotFound.
	GetRecord(ctx context.Context, id blob.ID) (*blob.Record, error)

	// DeleteRecord removes a visible record. Idempotent.
	DeleteRecord(ctx context.Context, id blob.ID) error

	// ListIDs returns all visible record IDs and all draft IDs. Used by the
	// orphan sweeper to decide which chunk sets are still referenced.
	ListIDs(ctx context.Context) (visible []blob.ID, drafts []blob.ID, err error)

	// Close releases backend resources.
	Close() error
}
