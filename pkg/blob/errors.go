package blob

import "errors"

// Standard blob store errors.
//
// These sentinels provide a consistent way to classify failures across all
// chunk store and registry implementations. Callers should check with
// errors.Is and map them to transport-level responses:
//
//	record, err := reg.Get(ctx, id)
//	if err != nil {
//	    if errors.Is(err, blob.ErrBlobNotFound) {
//	        // 404-equivalent
//	    }
//	    // infrastructure fault
//	}
//
// Implementations wrap these errors with context:
//
//	return fmt.Errorf("blob %s: %w", id, blob.ErrBlobNotFound)
var (
	// ErrBlobNotFound indicates the blob identifier does not resolve to a
	// visible record. Drafts (begun but not finalized) also report this.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrChunkNotFound indicates the requested (blobID, sequence) chunk does
	// not exist in the chunk store.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrChunkConflict indicates an attempt to rewrite an already-written
	// chunk with different bytes. Chunks are immutable: a retried write with
	// identical bytes is a no-op success, but divergent content is a
	// consistency violation and is never silently overwritten. This error is
	// fatal to the operation and must not be retried.
	ErrChunkConflict = errors.New("chunk already written with different content")

	// ErrSizeLimitExceeded indicates an upload whose declared or observed
	// size is over the configured ceiling. User-correctable.
	ErrSizeLimitExceeded = errors.New("upload size limit exceeded")

	// ErrUnsupportedMediaType indicates a content type outside the allowed
	// set. User-correctable.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrStorageFailure indicates an underlying chunk read/write failure.
	// This distinguishes infrastructure faults from user error; upload
	// pipelines abort their draft before propagating it.
	ErrStorageFailure = errors.New("storage failure")

	// ErrInvalidOffset indicates a negative or otherwise unusable byte
	// offset for a range read.
	ErrInvalidOffset = errors.New("invalid offset")
)
