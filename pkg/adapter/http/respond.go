package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/casahub/casahub/internal/logger"
	"github.com/casahub/casahub/pkg/blob"
	"github.com/casahub/casahub/pkg/catalog"
	"github.com/casahub/casahub/pkg/facade"
)

// errorBody is the JSON envelope for every error response.
type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a component error to an HTTP status code.
//
// The mapping mirrors the error taxonomy: validation failures are client
// errors, missing resources are 404, limit and media-type rejections get
// their dedicated codes, a closed application is an outage, and anything
// else is a storage-side failure the client cannot fix.
func statusFor(err error) int {
	switch {
	case errors.Is(err, facade.ErrNotReady):
		return http.StatusServiceUnavailable
	case catalog.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, blob.ErrBlobNotFound),
		errors.Is(err, blob.ErrChunkNotFound),
		errors.Is(err, catalog.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, blob.ErrSizeLimitExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, blob.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, blob.ErrInvalidOffset):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON marshals v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("HTTP: failed to encode response: %v", err)
	}
}

// writeError sends an error response with the mapped status code.
//
// Server-side failures are logged with the underlying cause but reported
// to the client as a generic message so backend details never leak.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("HTTP: internal error: %v", err)
		msg = "internal error"
	}

	writeJSON(w, status, errorBody{Error: msg})
}
