package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(title string) *Listing {
	return &Listing{
		Category: "apartment",
		Title:    title,
		Location: "Springfield",
		Numeric:  map[string]float64{"price": 100},
	}
}

func TestImportStoresValidCandidates(t *testing.T) {
	source := NewMemorySource()
	importer := NewImporter(source, nil)
	ctx := context.Background()

	report, err := importer.Import(ctx, []*Listing{
		candidate("Two bed flat"),
		candidate("Lake house"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Imported)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Errored)
	require.Len(t, report.Items, 2)

	for i, item := range report.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, OutcomeImported, item.Outcome)
		require.NotEmpty(t, item.ID)

		stored, err := source.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.False(t, stored.CreatedAt.IsZero())
	}
}

func TestImportRejectsOversizedBatch(t *testing.T) {
	importer := NewImporter(NewMemorySource(), nil)

	batch := make([]*Listing, MaxImportBatch+1)
	for i := range batch {
		batch[i] = candidate(fmt.Sprintf("Listing %d", i))
	}

	_, err := importer.Import(context.Background(), batch)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestImportSkipsDuplicates(t *testing.T) {
	source := NewMemorySource()
	importer := NewImporter(source, nil)
	ctx := context.Background()

	existing := candidate("Two bed flat")
	existing.ID = "pre-existing"
	existing.CreatedAt = time.Now()
	require.NoError(t, source.Put(ctx, existing))

	// Category case must not split the natural key either.
	upperCategory := candidate("Two bed flat")
	upperCategory.Category = strings.ToUpper(upperCategory.Category)

	report, err := importer.Import(ctx, []*Listing{
		candidate("Two bed flat"), // duplicate of stored listing
		candidate("TWO BED FLAT"), // natural key matching is case-insensitive
		upperCategory,
		candidate("Fresh townhouse"), // new
		candidate("Fresh townhouse"), // duplicate within the batch
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 4, report.Skipped)
	assert.Zero(t, report.Errored)

	listings, err := source.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestImportIsolatesInvalidItems(t *testing.T) {
	source := NewMemorySource()
	importer := NewImporter(source, nil)

	missingLocation := candidate("Valid title here")
	missingLocation.Location = ""

	report, err := importer.Import(context.Background(), []*Listing{
		candidate("Good listing one"),
		missingLocation,
		nil,
		candidate("Good listing two"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 2, report.Errored)
	assert.Zero(t, report.Skipped)

	assert.Equal(t, OutcomeError, report.Items[1].Outcome)
	assert.Contains(t, report.Items[1].Reason, "Location")
	assert.Equal(t, OutcomeError, report.Items[2].Outcome)
}

func TestImportValidatesTitleLength(t *testing.T) {
	importer := NewImporter(NewMemorySource(), nil)

	short := candidate("ab")
	report, err := importer.Import(context.Background(), []*Listing{short})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Errored)
	assert.Equal(t, OutcomeError, report.Items[0].Outcome)
	assert.Contains(t, report.Items[0].Reason, "Title")
}
