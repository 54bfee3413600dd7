// Package pagination parses page-based query parameters and builds
// paginated response envelopes.
package pagination

import (
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/reviewregistry/pkg/errors"
)

// Limits applied by FromRequest.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params is a validated page request.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Offset is the number of items preceding the requested page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// FromRequest reads page and per_page from the query string. Missing values
// take defaults; malformed or out-of-range values are rejected with an
// invalid input error rather than silently replaced.
func FromRequest(r *http.Request) (Params, error) {
	q := r.URL.Query()
	p := Params{Page: 1, PerPage: DefaultPerPage}

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return Params{}, apperrors.InvalidInput("page must be a positive integer")
		}
		p.Page = v
	}
	if raw := q.Get("per_page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > MaxPerPage {
			return Params{}, apperrors.InvalidInput("per_page must be between 1 and " + strconv.Itoa(MaxPerPage))
		}
		p.PerPage = v
	}
	return p, nil
}

// Result is a single page of items.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult wraps one page of data. A nil slice is encoded as an empty list.
func NewResult[T any](data []T, total int, p Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Result[T]{
		Data:       data,
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}

// Map converts the items of a page, keeping its counters.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := make([]U, len(r.Data))
	for i, v := range r.Data {
		out[i] = fn(v)
	}
	return Result[U]{
		Data:       out,
		TotalCount: r.TotalCount,
		Page:       r.Page,
		PerPage:    r.PerPage,
		TotalPages: r.TotalPages,
		HasNext:    r.HasNext,
		HasPrev:    r.HasPrev,
	}
}
