package http

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casahub/casahub/pkg/catalog"
)

func seedListings(t *testing.T, adapter *HTTPAdapter, listings []*catalog.Listing) {
	t.Helper()

	payload, err := json.Marshal(listings)
	require.NoError(t, err)

	rec := doRequest(t, adapter, "POST", "/api/listings/import", bytes.NewReader(payload), "application/json")
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	var report catalog.ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, len(listings), report.Imported)
}

func sampleListings() []*catalog.Listing {
	available := true
	return []*catalog.Listing{
		{
			Category: "apartment",
			Title:    "Bright two-room flat",
			Location: "Lisbon",
			Numeric:  map[string]float64{catalog.FieldPrice: 1200, catalog.FieldBedrooms: 2},
		},
		{
			Category: "apartment",
			Title:    "Compact studio near the river",
			Location: "Porto",
			Numeric:  map[string]float64{catalog.FieldPrice: 700, catalog.FieldBedrooms: 1},
		},
		{
			Category:  "house",
			Title:     "Seaside villa with garden",
			Location:  "Lisbon",
			Available: &available,
			Numeric:   map[string]float64{catalog.FieldPrice: 4500, catalog.FieldBedrooms: 5},
		},
	}
}

func TestListingsQuery(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	seedListings(t, adapter, sampleListings())

	rec := doRequest(t, adapter, "GET", "/api/listings?category=apartment&min_price=1000", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var page catalog.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "Bright two-room flat", page.Items[0].Title)
	assert.Equal(t, 1, page.PageNumber)
}

func TestListingsCarriesGlobalFacets(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	seedListings(t, adapter, sampleListings())

	// A narrow filter must not shrink the facets: they describe the whole
	// catalog so a filter UI can keep offering every option.
	rec := doRequest(t, adapter, "GET", "/api/listings?category=house", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var resp listingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, float64(700), resp.PriceMin)
	assert.Equal(t, float64(4500), resp.PriceMax)
	assert.Equal(t, []string{"apartment", "house"}, resp.Categories)
	assert.Equal(t, []float64{1, 2, 5}, resp.Bedrooms)
}

func TestListingsPagination(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	seedListings(t, adapter, sampleListings())

	rec := doRequest(t, adapter, "GET", "/api/listings?limit=2&page=2", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var page catalog.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.PageNumber)
	assert.Len(t, page.Items, 1)
}

func TestListingsRejectsMalformedRange(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	rec := doRequest(t, adapter, "GET", "/api/listings?min_price=cheap", nil, "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "min_price")
}

func TestSearch(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	seedListings(t, adapter, sampleListings())

	rec := doRequest(t, adapter, "GET", "/api/listings/search?q=villa", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Seaside villa with garden", resp.Items[0].Title)

	// A keyword is mandatory.
	rec = doRequest(t, adapter, "GET", "/api/listings/search", nil, "")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	seedListings(t, adapter, sampleListings())

	rec := doRequest(t, adapter, "GET", "/api/listings/stats", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var summary catalog.FacetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalCount)
	assert.Equal(t, float64(700), summary.PriceMin)
	assert.Equal(t, float64(4500), summary.PriceMax)
	assert.Len(t, summary.PerCategory, 2)

	rec = doRequest(t, adapter, "GET", "/api/listings/stats?category=house", nil, "")
	require.Equal(t, nethttp.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalCount)
}

func TestImportReportsPerItemOutcomes(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	// One valid listing, one with a too-short title, one duplicate of the
	// first.
	listings := []*catalog.Listing{
		{Category: "apartment", Title: "Valid listing one", Location: "Faro"},
		{Category: "apartment", Title: "ab", Location: "Faro"},
		{Category: "apartment", Title: "Valid listing one", Location: "Faro"},
	}
	payload, err := json.Marshal(listings)
	require.NoError(t, err)

	rec := doRequest(t, adapter, "POST", "/api/listings/import", bytes.NewReader(payload), "application/json")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var report catalog.ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Errored)
	require.Len(t, report.Items, 3)
	assert.Equal(t, catalog.OutcomeImported, report.Items[0].Outcome)
	assert.Equal(t, catalog.OutcomeError, report.Items[1].Outcome)
	assert.Equal(t, catalog.OutcomeSkipped, report.Items[2].Outcome)
}

func TestImportRejectsMalformedBody(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	rec := doRequest(t, adapter, "POST", "/api/listings/import", bytes.NewReader([]byte(`{"not":"an array"}`)), "application/json")
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	rec := doRequest(t, adapter, "GET", "/healthz", nil, "")
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}
