package catalog

import "context"

// Source provides read access to the listing collection. The query engine,
// aggregation, and search all operate on the snapshot List returns.
//
// Thread safety: implementations must be safe for concurrent use.
type Source interface {
	// List returns every listing in the collection. Callers own the
	// returned slice but must not mutate the listings.
	List(ctx context.Context) ([]*Listing, error)

	// Get returns one listing by ID, or ErrListingNotFound.
	Get(ctx context.Context, id string) (*Listing, error)

	// Close releases backend resources.
	Close() error
}

// MutableSource extends Source with write operations, used by bulk import.
type MutableSource interface {
	Source

	// Put stores or replaces a listing.
	Put(ctx context.Context, listing *Listing) error

	// Delete removes a listing. Returns ErrListingNotFound if absent.
	Delete(ctx context.Context, id string) error
}
