package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// TopLocationCount is how many locations a FacetSummary reports, ranked by
// listing count.
const TopLocationCount = 10

// CategoryStats summarizes the price attribute within one category.
// Listings without a price are counted but excluded from the price stats.
type CategoryStats struct {
	Count    int     `json:"count"`
	AvgPrice float64 `json:"avg_price"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

// LocationCount is one entry of the top-locations ranking. AvgPrice
// averages the price attribute over the location's listings; listings
// without a price are excluded from the average only.
type LocationCount struct {
	Location string  `json:"location"`
	Count    int     `json:"count"`
	AvgPrice float64 `json:"avg_price"`
}

// FacetSummary is the aggregate view of a listing scope, used to populate
// filter UIs and stat dashboards.
type FacetSummary struct {
	// TotalCount is the number of listings in the scope.
	TotalCount int `json:"total_count"`

	// PriceMin and PriceMax bound the price attribute over the scope.
	// Both are zero when the scope is empty or no listing carries a price.
	PriceMin float64 `json:"price_min"`
	PriceMax float64 `json:"price_max"`

	// PerCategory holds one entry per category value present in the scope.
	PerCategory map[string]CategoryStats `json:"per_category"`

	// TopLocations ranks locations by listing count, at most
	// TopLocationCount entries, ties broken by lexicographic order of the
	// location string.
	TopLocations []LocationCount `json:"top_locations"`

	// Categories and Bedrooms are the distinct values observed in the
	// scope, sorted, for filter-option lists.
	Categories []string  `json:"categories"`
	Bedrooms   []float64 `json:"bedrooms"`
}

// Aggregator computes facet summaries over a listing source.
//
// Thread safety: safe for concurrent use.
type Aggregator struct {
	source  Source
	metrics Metrics
}

// NewAggregator creates an aggregator over the given source. metrics may be
// nil to disable metrics collection.
func NewAggregator(source Source, metrics Metrics) *Aggregator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Aggregator{source: source, metrics: metrics}
}

// Summarize computes the facet summary for the whole collection, or for one
// category when category is non-empty.
//
// An empty scope yields a summary with zero extrema and empty groupings,
// never an error. A listing missing an aggregated field is excluded from
// that stat only; the rest of the summary still covers it.
func (a *Aggregator) Summarize(ctx context.Context, category string) (*FacetSummary, error) {
	start := time.Now()
	summary, err := a.summarize(ctx, category)
	a.metrics.ObserveOperation("summarize", time.Since(start), err)
	return summary, err
}

func (a *Aggregator) summarize(ctx context.Context, category string) (*FacetSummary, error) {
	listings, err := a.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}

	if category != "" {
		scope := listings[:0:0]
		for _, l := range listings {
			if l.Category == category {
				scope = append(scope, l)
			}
		}
		listings = scope
	}

	summary := &FacetSummary{
		TotalCount:   len(listings),
		PerCategory:  make(map[string]CategoryStats),
		TopLocations: []LocationCount{},
		Categories:   []string{},
		Bedrooms:     []float64{},
	}

	locations := make(map[string]*locationAccum)
	categorySums := make(map[string]float64)
	categoryPriced := make(map[string]int)
	bedroomSet := make(map[float64]struct{})

	havePrice := false

	for _, l := range listings {
		stats := summary.PerCategory[l.Category]
		stats.Count++

		if price, ok := l.NumericField(FieldPrice); ok {
			if !havePrice || price < summary.PriceMin {
				summary.PriceMin = price
			}
			if !havePrice || price > summary.PriceMax {
				summary.PriceMax = price
			}
			havePrice = true

			if categoryPriced[l.Category] == 0 || price < stats.MinPrice {
				stats.MinPrice = price
			}
			if categoryPriced[l.Category] == 0 || price > stats.MaxPrice {
				stats.MaxPrice = price
			}
			categorySums[l.Category] += price
			categoryPriced[l.Category]++
		}
		summary.PerCategory[l.Category] = stats

		if l.Location != "" {
			acc := locations[l.Location]
			if acc == nil {
				acc = &locationAccum{}
				locations[l.Location] = acc
			}
			acc.count++
			if price, ok := l.NumericField(FieldPrice); ok {
				acc.priceSum += price
				acc.priced++
			}
		}
		if bedrooms, ok := l.NumericField(FieldBedrooms); ok {
			bedroomSet[bedrooms] = struct{}{}
		}
	}

	for cat, priced := range categoryPriced {
		stats := summary.PerCategory[cat]
		stats.AvgPrice = categorySums[cat] / float64(priced)
		summary.PerCategory[cat] = stats
	}

	summary.TopLocations = topLocations(locations, TopLocationCount)

	for cat := range summary.PerCategory {
		summary.Categories = append(summary.Categories, cat)
	}
	sort.Strings(summary.Categories)

	for bedrooms := range bedroomSet {
		summary.Bedrooms = append(summary.Bedrooms, bedrooms)
	}
	sort.Float64s(summary.Bedrooms)

	return summary, nil
}

// locationAccum accumulates per-location listing and price tallies.
type locationAccum struct {
	count    int
	priced   int
	priceSum float64
}

// topLocations ranks locations by count descending, ties broken by
// lexicographic order of the location string for determinism, truncated to
// n entries.
func topLocations(locations map[string]*locationAccum, n int) []LocationCount {
	ranked := make([]LocationCount, 0, len(locations))
	for loc, acc := range locations {
		entry := LocationCount{Location: loc, Count: acc.count}
		if acc.priced > 0 {
			entry.AvgPrice = acc.priceSum / float64(acc.priced)
		}
		ranked = append(ranked, entry)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Location < ranked[j].Location
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
