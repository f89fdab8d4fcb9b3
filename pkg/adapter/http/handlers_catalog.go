package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/casahub/casahub/pkg/catalog"
)

// maxImportBodyBytes caps the JSON payload of a bulk import request.
const maxImportBodyBytes = 10 * 1024 * 1024

// flattenParams reduces URL query values to the single-value map the query
// builder consumes. Repeated keys keep their first value.
func flattenParams(r *http.Request) map[string]string {
	values := r.URL.Query()
	params := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	return params
}

// listingsResponse joins the result page with the catalog-wide facet
// values filter UIs need to render range and option controls. The facets
// always describe the full catalog, not the filtered window.
type listingsResponse struct {
	*catalog.Page
	PriceMin   float64   `json:"price_min"`
	PriceMax   float64   `json:"price_max"`
	Categories []string  `json:"categories"`
	Bedrooms   []float64 `json:"bedrooms"`
}

// handleListings executes a filtered, sorted, paginated catalog query.
func (a *HTTPAdapter) handleListings(w http.ResponseWriter, r *http.Request) {
	engine, err := a.app.Engine()
	if err != nil {
		writeError(w, err)
		return
	}
	aggregator, err := a.app.Aggregator()
	if err != nil {
		writeError(w, err)
		return
	}

	query, err := a.builder.Build(flattenParams(r))
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := engine.Execute(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := aggregator.Summarize(r.Context(), "")
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listingsResponse{
		Page:       page,
		PriceMin:   summary.PriceMin,
		PriceMax:   summary.PriceMax,
		Categories: summary.Categories,
		Bedrooms:   summary.Bedrooms,
	})
}

// searchResponse wraps free-text search hits.
type searchResponse struct {
	Items []*catalog.Listing `json:"items"`
	Count int                `json:"count"`
}

// handleSearch runs a capped free-text search over all listings.
func (a *HTTPAdapter) handleSearch(w http.ResponseWriter, r *http.Request) {
	engine, err := a.app.Engine()
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := engine.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Items: items, Count: len(items)})
}

// handleStats returns the facet summary for the whole catalog or for one
// category when the "category" parameter is present.
func (a *HTTPAdapter) handleStats(w http.ResponseWriter, r *http.Request) {
	aggregator, err := a.app.Aggregator()
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := aggregator.Summarize(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleImport ingests a JSON array of listing candidates.
func (a *HTTPAdapter) handleImport(w http.ResponseWriter, r *http.Request) {
	importer, err := a.app.Importer()
	if err != nil {
		writeError(w, err)
		return
	}

	var candidates []*catalog.Listing
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBodyBytes))
	if err := decoder.Decode(&candidates); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "import payload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "expected a JSON array of listings"})
		return
	}

	report, err := importer.Import(r.Context(), candidates)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleHealth reports process readiness.
func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !a.app.IsReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
