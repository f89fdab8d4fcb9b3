package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerSourceRoundTrip(t *testing.T) {
	ctx := context.Background()

	source, err := NewBadgerSource(ctx, BadgerSourceConfig{DBPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = source.Close() })

	listing := &Listing{
		ID:        "l-1",
		Category:  "apartment",
		Title:     "Persisted listing",
		Location:  "Springfield",
		Available: boolPtr(true),
		Numeric:   map[string]float64{"price": 120, "bedrooms": 2},
		Tags:      []string{"garden"},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, source.Put(ctx, listing))

	got, err := source.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, listing.Title, got.Title)
	assert.Equal(t, listing.Numeric, got.Numeric)
	require.NotNil(t, got.Available)
	assert.True(t, *got.Available)

	all, err := source.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, source.Delete(ctx, "l-1"))
	_, err = source.Get(ctx, "l-1")
	assert.ErrorIs(t, err, ErrListingNotFound)

	err = source.Delete(ctx, "l-1")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestBadgerSourceMissingPath(t *testing.T) {
	_, err := NewBadgerSource(context.Background(), BadgerSourceConfig{})
	assert.Error(t, err)
}
