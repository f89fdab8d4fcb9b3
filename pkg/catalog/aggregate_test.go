package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmptyScope(t *testing.T) {
	agg := NewAggregator(NewMemorySource(), nil)

	summary, err := agg.Summarize(context.Background(), "")
	require.NoError(t, err)

	assert.Zero(t, summary.TotalCount)
	assert.Zero(t, summary.PriceMin)
	assert.Zero(t, summary.PriceMax)
	assert.Empty(t, summary.PerCategory)
	assert.Empty(t, summary.TopLocations)
	assert.Empty(t, summary.Categories)
	assert.Empty(t, summary.Bedrooms)
}

func TestSummarizeEmptyFilteredScope(t *testing.T) {
	source := seedSource(t, makeListing("a", 100, time.Now()))
	agg := NewAggregator(source, nil)

	// The category filter matches nothing; that degrades to zeros, not an
	// error.
	summary, err := agg.Summarize(context.Background(), "castle")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalCount)
	assert.Zero(t, summary.PriceMin)
	assert.Zero(t, summary.PriceMax)
}

func TestSummarizePriceExtremaAndPerCategory(t *testing.T) {
	now := time.Now()
	house := makeListing("h1", 500, now)
	house.Category = "house"

	source := seedSource(t,
		makeListing("a1", 100, now),
		makeListing("a2", 300, now),
		house,
	)
	agg := NewAggregator(source, nil)

	summary, err := agg.Summarize(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, 100.0, summary.PriceMin)
	assert.Equal(t, 500.0, summary.PriceMax)

	apartments := summary.PerCategory["apartment"]
	assert.Equal(t, 2, apartments.Count)
	assert.Equal(t, 100.0, apartments.MinPrice)
	assert.Equal(t, 300.0, apartments.MaxPrice)
	assert.Equal(t, 200.0, apartments.AvgPrice)

	houses := summary.PerCategory["house"]
	assert.Equal(t, 1, houses.Count)
	assert.Equal(t, 500.0, houses.AvgPrice)

	assert.Equal(t, []string{"apartment", "house"}, summary.Categories)
}

func TestSummarizeToleratesMissingPrice(t *testing.T) {
	now := time.Now()
	noPrice := makeListing("x", 0, now)
	noPrice.Numeric = map[string]float64{"bedrooms": 2}

	source := seedSource(t, makeListing("a", 150, now), noPrice)
	agg := NewAggregator(source, nil)

	summary, err := agg.Summarize(context.Background(), "")
	require.NoError(t, err)

	// The unpriced listing is counted but excluded from price stats.
	assert.Equal(t, 2, summary.TotalCount)
	assert.Equal(t, 150.0, summary.PriceMin)
	assert.Equal(t, 150.0, summary.PriceMax)
	assert.Equal(t, 2, summary.PerCategory["apartment"].Count)
	assert.Equal(t, 150.0, summary.PerCategory["apartment"].AvgPrice)
	assert.Equal(t, []float64{2}, summary.Bedrooms)
}

func TestSummarizeCategoryScope(t *testing.T) {
	now := time.Now()
	house := makeListing("h1", 900, now)
	house.Category = "house"

	source := seedSource(t, makeListing("a1", 100, now), house)
	agg := NewAggregator(source, nil)

	summary, err := agg.Summarize(context.Background(), "house")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalCount)
	assert.Equal(t, 900.0, summary.PriceMin)
	assert.Equal(t, 900.0, summary.PriceMax)
	assert.Equal(t, []string{"house"}, summary.Categories)
}

func TestSummarizeTopLocations(t *testing.T) {
	now := time.Now()
	var listings []*Listing
	id := 0
	add := func(location string, count int) {
		for i := 0; i < count; i++ {
			l := makeListing(fmt.Sprintf("l-%d", id), 100, now)
			l.Location = location
			listings = append(listings, l)
			id++
		}
	}

	// Twelve distinct locations so the top-10 cut drops two.
	add("Midtown", 5)
	add("Harbor", 3)
	// Equal counts: lexicographic order decides.
	add("Brookfield", 2)
	add("Ashville", 2)
	for i := 0; i < 8; i++ {
		add(fmt.Sprintf("Suburb-%d", i), 1)
	}

	// One more Midtown listing at a higher price and one with no price at
	// all: the per-location average covers priced listings only.
	pricey := makeListing("l-pricey", 700, now)
	pricey.Location = "Midtown"
	unpriced := makeListing("l-unpriced", 0, now)
	unpriced.Location = "Midtown"
	delete(unpriced.Numeric, FieldPrice)
	listings = append(listings, pricey, unpriced)

	agg := NewAggregator(seedSource(t, listings...), nil)

	summary, err := agg.Summarize(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, summary.TopLocations, TopLocationCount)
	assert.Equal(t, LocationCount{Location: "Midtown", Count: 7, AvgPrice: 200}, summary.TopLocations[0])
	assert.Equal(t, LocationCount{Location: "Harbor", Count: 3, AvgPrice: 100}, summary.TopLocations[1])
	assert.Equal(t, LocationCount{Location: "Ashville", Count: 2, AvgPrice: 100}, summary.TopLocations[2])
	assert.Equal(t, LocationCount{Location: "Brookfield", Count: 2, AvgPrice: 100}, summary.TopLocations[3])
	// The singleton tail is also lexicographically ordered.
	assert.Equal(t, "Suburb-0", summary.TopLocations[4].Location)
	assert.Equal(t, "Suburb-5", summary.TopLocations[9].Location)
}
