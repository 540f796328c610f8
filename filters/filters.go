// Package filters builds search-filter payloads for the Stratus data
// API. Every builder is a pure function producing a JSON-marshalable
// map in the shape the service expects; the package performs no I/O.
package filters

import (
	"errors"
	"time"
)

// Filter is one JSON-marshalable filter clause.
type Filter map[string]any

// Errors returned by the range builders.
var (
	// ErrNoBounds indicates a range filter was given no bounds at all.
	ErrNoBounds = errors.New("must specify at least one of gt, gte, lt, or lte")

	// ErrNoLowerBound indicates an update filter was given neither gt
	// nor gte.
	ErrNoLowerBound = errors.New("must specify one of gt or gte")
)

func newFilter(filterType string, config any, field string) Filter {
	f := Filter{
		"type":   filterType,
		"config": config,
	}
	if field != "" {
		f["field_name"] = field
	}
	return f
}

// DateBounds bounds a date range. Zero values are omitted.
type DateBounds struct {
	GT  time.Time
	GTE time.Time
	LT  time.Time
	LTE time.Time
}

func (b DateBounds) config() map[string]any {
	config := make(map[string]any)
	for k, t := range map[string]time.Time{"gt": b.GT, "gte": b.GTE, "lt": b.LT, "lte": b.LTE} {
		if !t.IsZero() {
			config[k] = t.Format(time.RFC3339)
		}
	}
	return config
}

// NumericBounds bounds a numeric range. Nil values are omitted; use
// Number to build the pointers.
type NumericBounds struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

// Number returns a pointer for use in NumericBounds.
func Number(v float64) *float64 {
	return &v
}

func (b NumericBounds) config() map[string]any {
	config := make(map[string]any)
	for k, v := range map[string]*float64{"gt": b.GT, "gte": b.GTE, "lt": b.LT, "lte": b.LTE} {
		if v != nil {
			config[k] = *v
		}
	}
	return config
}

// DateRange matches items whose timestamp property named by field
// falls within the given bounds. Timestamps are rendered as RFC 3339.
func DateRange(field string, bounds DateBounds) (Filter, error) {
	config := bounds.config()
	if len(config) == 0 {
		return nil, ErrNoBounds
	}
	return newFilter("DateRangeFilter", config, field), nil
}

// Update matches items whose named property was republished after the
// given date. Only lower bounds apply.
func Update(field string, bounds DateBounds) (Filter, error) {
	bounds.LT, bounds.LTE = time.Time{}, time.Time{}
	config := bounds.config()
	if len(config) == 0 {
		return nil, ErrNoLowerBound
	}
	return newFilter("UpdateFilter", config, field), nil
}

// Range matches items whose numeric property named by field falls
// within the given bounds. Useful for continuous properties such as
// cloud_cover or view_angle.
func Range(field string, bounds NumericBounds) (Filter, error) {
	config := bounds.config()
	if len(config) == 0 {
		return nil, ErrNoBounds
	}
	return newFilter("RangeFilter", config, field), nil
}

// NumberIn matches items whose numeric property equals one of the
// given values.
func NumberIn(field string, values []float64) Filter {
	return newFilter("NumberInFilter", values, field)
}

// StringIn matches items whose string property equals one of the
// given values.
func StringIn(field string, values []string) Filter {
	return newFilter("StringInFilter", values, field)
}

// Asset matches items that have published at least one of the given
// asset types.
func Asset(assetTypes []string) Filter {
	return newFilter("AssetFilter", assetTypes, "")
}

// Permission limits results to items the caller may download.
func Permission() Filter {
	return newFilter("PermissionFilter", []string{"assets:download"}, "")
}

// Geometry matches items whose footprint intersects the given GeoJSON
// geometry. The geometry is passed through untouched.
func Geometry(geom map[string]any) Filter {
	return newFilter("GeometryFilter", geom, "geometry")
}

// And matches items that satisfy every nested filter. It is commonly
// the top-level filter of a search.
func And(clauses ...Filter) Filter {
	return newFilter("AndFilter", clauses, "")
}

// Or matches items that satisfy at least one nested filter.
func Or(clauses ...Filter) Filter {
	return newFilter("OrFilter", clauses, "")
}

// Not matches items that do not satisfy the nested filter.
func Not(clause Filter) Filter {
	return newFilter("NotFilter", clause, "")
}
