package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Page is one window of query results together with totals computed over
// the full filtered set, so TotalPages stays consistent with TotalCount
// even when the requested page is past the end.
type Page struct {
	// Items are the listings in this window, in sort order. Empty when the
	// page number is beyond the last page.
	Items []*Listing `json:"items"`

	// TotalCount is the size of the full filtered set.
	TotalCount int `json:"total_count"`

	// TotalPages is ceil(TotalCount / PageSize).
	TotalPages int `json:"total_pages"`

	// PageNumber is the 1-based number of this page.
	PageNumber int `json:"page_number"`

	// PageSize is the window size the page was computed with.
	PageSize int `json:"page_size"`
}

// Engine executes built queries against a listing source.
//
// Thread safety: safe for concurrent use; execution never mutates the
// source.
type Engine struct {
	source  Source
	metrics Metrics
}

// NewEngine creates a query engine over the given source. metrics may be
// nil to disable metrics collection.
func NewEngine(source Source, metrics Metrics) *Engine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{source: source, metrics: metrics}
}

// Execute runs a query: filter, sort, then page.
func (e *Engine) Execute(ctx context.Context, query *Query) (*Page, error) {
	start := time.Now()
	page, err := e.execute(ctx, query)
	e.metrics.ObserveOperation("query", time.Since(start), err)
	if page != nil {
		e.metrics.RecordResultCount("query", len(page.Items))
	}
	return page, err
}

func (e *Engine) execute(ctx context.Context, query *Query) (*Page, error) {
	listings, err := e.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}

	matched := filterListings(listings, &query.Filter)
	sortListings(matched, query.Sort)

	total := len(matched)
	size := query.Page.Size
	totalPages := (total + size - 1) / size

	startIdx := (query.Page.Number - 1) * size
	items := []*Listing{}
	if startIdx < total {
		endIdx := startIdx + size
		if endIdx > total {
			endIdx = total
		}
		items = matched[startIdx:endIdx]
	}

	return &Page{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		PageNumber: query.Page.Number,
		PageSize:   size,
	}, nil
}

// filterListings returns the listings matching every set criterion.
func filterListings(listings []*Listing, filter *FilterCriteria) []*Listing {
	matched := make([]*Listing, 0, len(listings))
	for _, l := range listings {
		if matches(l, filter) {
			matched = append(matched, l)
		}
	}
	return matched
}

func matches(l *Listing, f *FilterCriteria) bool {
	if f.ExcludeID != "" && l.ID == f.ExcludeID {
		return false
	}
	if f.Category != "" && !strings.EqualFold(l.Category, f.Category) {
		return false
	}
	if f.Location != "" && !containsFold(l.Location, f.Location) {
		return false
	}
	if f.Available != nil {
		if l.Available == nil || *l.Available != *f.Available {
			return false
		}
	}
	for field, r := range f.Ranges {
		v, ok := l.NumericField(field)
		if !ok || !r.Contains(v) {
			return false
		}
	}
	if f.FreeText != "" && !matchesFreeText(l, f.FreeText) {
		return false
	}
	return true
}

// matchesFreeText matches the keyword across title, description, location,
// and tags.
func matchesFreeText(l *Listing, keyword string) bool {
	if containsFold(l.Title, keyword) ||
		containsFold(l.Description, keyword) ||
		containsFold(l.Location, keyword) {
		return true
	}
	for _, tag := range l.Tags {
		if containsFold(tag, keyword) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// sortListings orders listings by the sort spec, in place. The sort is
// deterministic: ties break on ascending ID.
func sortListings(listings []*Listing, spec SortSpec) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]

		cmp := compareListings(a, b, spec.Field)
		if cmp == 0 {
			return a.ID < b.ID
		}
		if spec.Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

// compareListings returns -1, 0, or 1 ordering a against b on field,
// ascending. Missing numeric fields compare as smaller than any present
// value in ascending order.
func compareListings(a, b *Listing, field string) int {
	switch field {
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	default:
		av, aok := a.NumericField(field)
		bv, bok := b.NumericField(field)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return -1
		case !bok:
			return 1
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
}
