package catalog

import (
	"context"
	"fmt"
	"time"
)

// DefaultSearchLimit caps free-text search results. Search is a typeahead
// aid, not a paginated browse, so the cap is fixed rather than
// client-controlled.
const DefaultSearchLimit = 20

// Search returns listings matching keyword across title, description,
// location, and tags, capped at DefaultSearchLimit results.
//
// An empty keyword is a validation error: the caller should use a listing
// query for unfiltered browsing.
func (e *Engine) Search(ctx context.Context, keyword string) ([]*Listing, error) {
	start := time.Now()
	results, err := e.search(ctx, keyword)
	e.metrics.ObserveOperation("search", time.Since(start), err)
	e.metrics.RecordResultCount("search", len(results))
	return results, err
}

func (e *Engine) search(ctx context.Context, keyword string) ([]*Listing, error) {
	if keyword == "" {
		return nil, &ValidationError{Field: "q", Reason: "keyword must not be empty"}
	}

	listings, err := e.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}

	// Deterministic result order regardless of source iteration order.
	sortListings(listings, SortSpec{Field: DefaultSortField, Descending: true})

	results := make([]*Listing, 0, DefaultSearchLimit)
	for _, l := range listings {
		if !matchesFreeText(l, keyword) {
			continue
		}
		results = append(results, l)
		if len(results) == DefaultSearchLimit {
			break
		}
	}
	return results, nil
}
