package catalog

import (
	"errors"
	"fmt"
)

// ErrListingNotFound indicates the requested listing ID does not resolve.
var ErrListingNotFound = errors.New("listing not found")

// ValidationError reports a malformed or missing request field. It is
// user-correctable: callers map it to a client error, and it never causes a
// storage-level side effect.
type ValidationError struct {
	// Field is the offending parameter name.
	Field string

	// Reason describes what is wrong with the value.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
