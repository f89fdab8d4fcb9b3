// Package catalog implements the listing catalog: typed listings over a
// pluggable source, a query builder that turns loosely-typed request
// parameters into validated filter/sort/page specs, a query engine with
// consistent pagination, faceted aggregation, free-text search, and bulk
// import.
package catalog

import (
	"strings"
	"time"
)

// Well-known numeric field names. The Numeric bag is open; these are the
// fields the rest of the system sorts and aggregates on.
const (
	FieldPrice    = "price"
	FieldBedrooms = "bedrooms"
	FieldRating   = "rating"
)

// Listing is one catalog entity: a housing unit or institution subject to
// filtered search.
type Listing struct {
	// ID is the unique listing identifier.
	ID string `json:"id" validate:"required"`

	// Category is the listing kind (e.g. "apartment", "house", "pg").
	// Free-form: facets reflect whatever values are present.
	Category string `json:"category" validate:"required"`

	// Title is the display name.
	Title string `json:"title" validate:"required,min=3,max=200"`

	// Description is free text, searchable.
	Description string `json:"description,omitempty" validate:"max=5000"`

	// Location is the human-readable place name, matched by substring.
	Location string `json:"location" validate:"required"`

	// Available reports whether the listing can currently be booked.
	// nil means unknown.
	Available *bool `json:"available,omitempty"`

	// Numeric holds the numeric attributes (price, bedrooms, rating, and
	// whatever else an importer supplies). A missing key means the listing
	// lacks that attribute; aggregation skips it for that stat.
	Numeric map[string]float64 `json:"numeric,omitempty" validate:"dive,gte=0"`

	// Tags are free-form labels, searchable.
	Tags []string `json:"tags,omitempty"`

	// ImageRefs are blob IDs of the listing's media.
	ImageRefs []string `json:"image_refs,omitempty"`

	// CreatedAt is when the listing entered the catalog.
	CreatedAt time.Time `json:"created_at"`
}

// NumericField returns the named numeric attribute and whether it is
// present.
func (l *Listing) NumericField(name string) (float64, bool) {
	v, ok := l.Numeric[name]
	return v, ok
}

// NaturalKey identifies a listing by content rather than ID. Bulk import
// uses it to skip duplicates: two listings with the same category, title,
// and location (case-insensitive) describe the same property.
func (l *Listing) NaturalKey() string {
	return strings.ToLower(l.Category) + "|" + strings.ToLower(l.Title) + "|" + strings.ToLower(l.Location)
}
