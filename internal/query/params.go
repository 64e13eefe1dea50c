// Package query implements the invoice list pipeline: status filter,
// free-text search, typed sort and pagination.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/invoice-intake/backend/internal/models"
)

// ErrInvalidParam is wrapped by every ParamError.
var ErrInvalidParam = errors.New("invalid query parameter")

// ParamError describes a rejected query parameter.
type ParamError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParam }

// SortOrder is the direction of the primary sort key.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Defaults controls values applied when a parameter is missing.
type Defaults struct {
	Limit    int
	MaxLimit int
}

// DefaultDefaults matches the list view's initial state.
var DefaultDefaults = Defaults{Limit: 10, MaxLimit: 100}

// Params is a normalised list query.
type Params struct {
	Status *models.InvoiceStatus
	Search string
	SortBy SortField
	Order  SortOrder
	Page   int
	Limit  int
}

// ParseParams reads the list query string. Missing values fall back to
// defaults; malformed values are rejected with a *ParamError.
func ParseParams(v url.Values, d Defaults) (Params, error) {
	d = d.withFallbacks()
	p := Params{
		SortBy: SortByUploadDate,
		Order:  Descending,
		Page:   1,
		Limit:  d.Limit,
	}

	if raw := v.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, &ParamError{Field: "page", Value: raw, Reason: "must be an integer"}
		}
		if page > 1 {
			p.Page = page
		}
	}

	if raw := v.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, &ParamError{Field: "limit", Value: raw, Reason: "must be an integer"}
		}
		if limit < 1 {
			return Params{}, &ParamError{Field: "limit", Value: raw, Reason: "must be at least 1"}
		}
		p.Limit = min(limit, d.MaxLimit)
	}

	if raw := v.Get("sortBy"); raw != "" {
		field, ok := ParseSortField(raw)
		if !ok {
			return Params{}, &ParamError{Field: "sortBy", Value: raw, Reason: "unknown sort field"}
		}
		p.SortBy = field
	}

	if raw := v.Get("sortOrder"); raw != "" {
		switch SortOrder(raw) {
		case Ascending, Descending:
			p.Order = SortOrder(raw)
		default:
			return Params{}, &ParamError{Field: "sortOrder", Value: raw, Reason: "must be asc or desc"}
		}
	}

	if raw := v.Get("status"); raw != "" {
		st, err := models.ParseInvoiceStatus(raw)
		if err != nil {
			return Params{}, &ParamError{Field: "status", Value: raw, Reason: "unknown status"}
		}
		p.Status = &st
	}

	p.Search = strings.TrimSpace(v.Get("search"))
	return p, nil
}

// Normalize repairs values a caller may have built by hand: page below 1
// becomes 1, a non-positive limit takes the default, and unknown sort keys
// fall back to uploadDate descending.
func (p Params) Normalize(d Defaults) Params {
	d = d.withFallbacks()
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = d.Limit
	}
	if _, ok := sortFields[p.SortBy]; !ok {
		p.SortBy = SortByUploadDate
	}
	if p.Order != Ascending {
		p.Order = Descending
	}
	return p
}

// Offset is the index of the first record on the page. It overflows for
// pages where Beyond is true.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Beyond reports whether the page starts after the last of total records.
// It compares page counts so that no multiplication can overflow.
func (p Params) Beyond(total int) bool {
	pages := total / p.Limit
	if total%p.Limit != 0 {
		pages++
	}
	return p.Page-1 >= pages
}

// Key is a canonical encoding of p, stable across equal parameter sets.
func (p Params) Key() string {
	v := url.Values{}
	if p.Status != nil {
		v.Set("status", string(*p.Status))
	}
	v.Set("search", p.Search)
	v.Set("sortBy", string(p.SortBy))
	v.Set("sortOrder", string(p.Order))
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v.Encode()
}

func (d Defaults) withFallbacks() Defaults {
	if d.Limit < 1 {
		d.Limit = DefaultDefaults.Limit
	}
	if d.MaxLimit < d.Limit {
		d.MaxLimit = max(d.Limit, DefaultDefaults.MaxLimit)
	}
	return d
}
