package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	query, err := b.Build(map[string]string{})
	require.NoError(t, err)

	assert.Empty(t, query.Filter.Category)
	assert.Nil(t, query.Filter.Ranges)
	assert.Nil(t, query.Filter.Available)
	assert.Equal(t, SortSpec{Field: "created_at", Descending: true}, query.Sort)
	assert.Equal(t, PageSpec{Number: 1, Size: DefaultPageSize}, query.Page)
}

func TestBuildFilters(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	query, err := b.Build(map[string]string{
		"category":   "apartment",
		"location":   "lake",
		"available":  "true",
		"exclude_id": "l-3",
		"q":          "balcony",
	})
	require.NoError(t, err)

	assert.Equal(t, "apartment", query.Filter.Category)
	assert.Equal(t, "lake", query.Filter.Location)
	require.NotNil(t, query.Filter.Available)
	assert.True(t, *query.Filter.Available)
	assert.Equal(t, "l-3", query.Filter.ExcludeID)
	assert.Equal(t, "balcony", query.Filter.FreeText)
}

func TestBuildNumericRanges(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	query, err := b.Build(map[string]string{
		"min_price":    "150",
		"max_price":    "250.5",
		"min_bedrooms": "2",
	})
	require.NoError(t, err)

	price := query.Filter.Ranges["price"]
	require.NotNil(t, price.Min)
	require.NotNil(t, price.Max)
	assert.Equal(t, 150.0, *price.Min)
	assert.Equal(t, 250.5, *price.Max)

	bedrooms := query.Filter.Ranges["bedrooms"]
	require.NotNil(t, bedrooms.Min)
	assert.Nil(t, bedrooms.Max)
}

func TestBuildNonNumericRangeIsValidationError(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	_, err := b.Build(map[string]string{"min_price": "cheap"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "min_price")
}

func TestBuildBadBooleanIsValidationError(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	_, err := b.Build(map[string]string{"available": "maybe"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestBuildUnknownSortFieldFallsBack(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	query, err := b.Build(map[string]string{"sort": "shoe_size", "direction": "asc"})
	require.NoError(t, err)
	assert.Equal(t, "created_at", query.Sort.Field)
	assert.False(t, query.Sort.Descending)
}

func TestBuildKnownSortFields(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	for _, field := range []string{"price", "bedrooms", "rating", "title", "created_at"} {
		query, err := b.Build(map[string]string{"sort": field})
		require.NoError(t, err)
		assert.Equal(t, field, query.Sort.Field)
	}
}

func TestBuildPageClamping(t *testing.T) {
	b := NewBuilder(BuilderConfig{MaxPageSize: 50})

	tests := []struct {
		name     string
		params   map[string]string
		expected PageSpec
	}{
		{"negative page", map[string]string{"page": "-2"}, PageSpec{Number: 1, Size: DefaultPageSize}},
		{"zero limit", map[string]string{"limit": "0"}, PageSpec{Number: 1, Size: 1}},
		{"oversized limit", map[string]string{"limit": "500"}, PageSpec{Number: 1, Size: 50}},
		{"valid", map[string]string{"page": "3", "limit": "10"}, PageSpec{Number: 3, Size: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := b.Build(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, query.Page)
		})
	}
}

func TestBuildNonIntegerPageIsValidationError(t *testing.T) {
	b := NewBuilder(BuilderConfig{})

	_, err := b.Build(map[string]string{"page": "first"})
	assert.True(t, IsValidation(err))

	_, err = b.Build(map[string]string{"limit": "lots"})
	assert.True(t, IsValidation(err))
}
