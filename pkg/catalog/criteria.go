package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Pagination and sort defaults.
const (
	// DefaultPageSize is the page size when the request does not name one.
	DefaultPageSize = 20

	// DefaultMaxPageSize caps the page size a request may ask for. Larger
	// requests are clamped, not rejected.
	DefaultMaxPageSize = 100

	// DefaultSortField is used when the requested sort field is unknown,
	// keeping listing pages renderable instead of failing.
	DefaultSortField = "created_at"
)

// sortFields is the set of sortable field names. "created_at" and "title"
// sort on the listing itself; the rest sort on the Numeric bag.
var sortFields = map[string]struct{}{
	"created_at":  {},
	"title":       {},
	FieldPrice:    {},
	FieldBedrooms: {},
	FieldRating:   {},
}

// NumericRange bounds one numeric attribute. A nil bound is unconstrained;
// present bounds are inclusive.
type NumericRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether v satisfies both bounds.
func (r NumericRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// FilterCriteria is the structured predicate a query runs with. Zero-valued
// fields do not constrain.
type FilterCriteria struct {
	// Category matches the listing category exactly (case-insensitive).
	Category string

	// Location matches by case-insensitive substring.
	Location string

	// Ranges bounds numeric attributes by field name. A listing missing a
	// constrained field does not match.
	Ranges map[string]NumericRange

	// Available, when set, matches only listings with a known, equal
	// availability.
	Available *bool

	// FreeText matches by case-insensitive substring across title,
	// description, location, and tags.
	FreeText string

	// ExcludeID removes one specific listing from results, used for
	// "similar items" queries.
	ExcludeID string
}

// SortSpec is the requested result order.
type SortSpec struct {
	// Field is one of sortFields.
	Field string

	// Descending reverses the order.
	Descending bool
}

// PageSpec is the requested page window, already clamped to valid bounds.
type PageSpec struct {
	// Number is the 1-based page number.
	Number int

	// Size is the number of items per page.
	Size int
}

// Query is a fully-built catalog query.
type Query struct {
	Filter FilterCriteria
	Sort   SortSpec
	Page   PageSpec
}

// Builder translates flat request parameters into a Query.
//
// Thread safety: safe for concurrent use; a Builder is immutable after
// construction.
type Builder struct {
	defaultPageSize int
	maxPageSize     int
}

// BuilderConfig contains query builder configuration. Zero values select
// the package defaults.
type BuilderConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// NewBuilder creates a query builder.
func NewBuilder(config BuilderConfig) *Builder {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = DefaultPageSize
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = DefaultMaxPageSize
	}
	return &Builder{
		defaultPageSize: config.DefaultPageSize,
		maxPageSize:     config.MaxPageSize,
	}
}

// Build coerces raw string parameters into a Query.
//
// Recognized keys: "category", "location", "available", "exclude_id", "q",
// "page", "limit", "sort", "direction", and "min_<field>"/"max_<field>"
// pairs for numeric ranges. Unrecognized keys are ignored.
//
// Malformed numeric values return a *ValidationError rather than being
// silently dropped. Out-of-range page and limit values are clamped.
func (b *Builder) Build(params map[string]string) (*Query, error) {
	query := &Query{
		Filter: FilterCriteria{
			Category:  strings.TrimSpace(params["category"]),
			Location:  strings.TrimSpace(params["location"]),
			FreeText:  strings.TrimSpace(params["q"]),
			ExcludeID: strings.TrimSpace(params["exclude_id"]),
		},
	}

	if raw, ok := params["available"]; ok && raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &ValidationError{Field: "available", Reason: fmt.Sprintf("%q is not a boolean", raw)}
		}
		query.Filter.Available = &v
	}

	ranges, err := parseRanges(params)
	if err != nil {
		return nil, err
	}
	query.Filter.Ranges = ranges

	query.Sort = parseSort(params)

	query.Page, err = b.parsePage(params)
	if err != nil {
		return nil, err
	}

	return query, nil
}

// parseRanges collects min_/max_ bounds into per-field NumericRanges.
func parseRanges(params map[string]string) (map[string]NumericRange, error) {
	ranges := make(map[string]NumericRange)

	for key, raw := range params {
		var field string
		var isMin bool

		switch {
		case strings.HasPrefix(key, "min_"):
			field, isMin = key[len("min_"):], true
		case strings.HasPrefix(key, "max_"):
			field, isMin = key[len("max_"):], false
		default:
			continue
		}
		if field == "" || raw == "" {
			continue
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("%q is not a number", raw)}
		}

		r := ranges[field]
		if isMin {
			r.Min = &v
		} else {
			r.Max = &v
		}
		ranges[field] = r
	}

	if len(ranges) == 0 {
		return nil, nil
	}
	return ranges, nil
}

// parseSort resolves the sort field and direction. Unknown fields fall back
// to DefaultSortField; unknown directions fall back to descending, which
// puts the newest listings first under the default field.
func parseSort(params map[string]string) SortSpec {
	field := strings.ToLower(strings.TrimSpace(params["sort"]))
	if _, ok := sortFields[field]; !ok {
		field = DefaultSortField
	}

	descending := true
	if strings.EqualFold(strings.TrimSpace(params["direction"]), "asc") {
		descending = false
	}

	return SortSpec{Field: field, Descending: descending}
}

// parsePage clamps page number and size into valid bounds.
func (b *Builder) parsePage(params map[string]string) (PageSpec, error) {
	page := 1
	if raw, ok := params["page"]; ok && raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return PageSpec{}, &ValidationError{Field: "page", Reason: fmt.Sprintf("%q is not an integer", raw)}
		}
		page = v
	}
	if page < 1 {
		page = 1
	}

	size := b.defaultPageSize
	if raw, ok := params["limit"]; ok && raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return PageSpec{}, &ValidationError{Field: "limit", Reason: fmt.Sprintf("%q is not an integer", raw)}
		}
		size = v
	}
	if size < 1 {
		size = 1
	}
	if size > b.maxPageSize {
		size = b.maxPageSize
	}

	return PageSpec{Number: page, Size: size}, nil
}
