// Package query turns an optional product filter into a parameterized SQL
// statement for the primary store and into an equivalent in-process
// predicate for the fallback dataset.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// ProductFilter holds the optional product filters. Nil pointers and an
// empty Search mean "no constraint". Limit and Offset are only meaningful
// after Normalize.
type ProductFilter struct {
	CategoryID *int64
	Featured   *bool
	Search     string
	Limit      int
	Offset     int
}

// Normalize applies defaults and clamps: Limit 0 or below becomes
// DefaultLimit, above MaxLimit becomes MaxLimit, a negative Offset becomes 0.
func (f ProductFilter) Normalize() ProductFilter {
	f.Search = strings.TrimSpace(f.Search)
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// CacheKey is endpoint plus the sorted, normalized parameters, so equal
// filters always produce equal keys.
func (f ProductFilter) CacheKey(endpoint string) string {
	f = f.Normalize()
	v := url.Values{}
	if f.CategoryID != nil {
		v.Set("categoryId", strconv.FormatInt(*f.CategoryID, 10))
	}
	if f.Featured != nil {
		v.Set("featured", strconv.FormatBool(*f.Featured))
	}
	if f.Search != "" {
		v.Set("search", strings.ToLower(f.Search))
	}
	v.Set("limit", strconv.Itoa(f.Limit))
	v.Set("offset", strconv.Itoa(f.Offset))
	// Encode sorts by key
	return endpoint + "?" + v.Encode()
}

// FromValues reads categoryId, featured, search, limit and offset from a
// query string. Unknown parameters are ignored.
func FromValues(values url.Values) (ProductFilter, error) {
	var f ProductFilter

	if raw := strings.TrimSpace(values.Get("categoryId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, fmt.Errorf("categoryId: %w", err)
		}
		f.CategoryID = &id
	}
	if raw := strings.TrimSpace(values.Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("featured: %w", err)
		}
		f.Featured = &featured
	}
	f.Search = values.Get("search")

	var err error
	if f.Limit, err = intParam(values, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(values, "offset"); err != nil {
		return f, err
	}
	return f.Normalize(), nil
}

func intParam(values url.Values, name string) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
