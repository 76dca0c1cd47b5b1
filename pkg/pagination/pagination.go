package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
	MaxLimit     = 100
)

// Params holds the page/limit/search tuple extracted from a request.
type Params struct {
	Page   int
	Limit  int
	Search string
}

// FromContext extracts pagination parameters from the echo context. Absent,
// non-numeric or non-positive values fall back to the defaults.
func FromContext(c echo.Context) Params {
	return Parse(c.QueryParam("page"), c.QueryParam("limit"), c.QueryParam("search"))
}

// Parse builds Params from raw query values.
func Parse(page, limit, search string) Params {
	p, _ := strconv.Atoi(page)
	if p < 1 {
		p = DefaultPage
	}

	l, _ := strconv.Atoi(limit)
	if l < 1 {
		l = DefaultLimit
	}
	if l > MaxLimit {
		l = MaxLimit
	}

	return Params{Page: p, Limit: l, Search: search}
}

// Offset returns the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is the paginated response envelope shared by every list endpoint.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPage wraps data in a Page. A nil data slice is replaced with an empty
// one so the envelope always encodes an array.
func NewPage[T any](data []T, total int, p Params) *Page[T] {
	if data == nil {
		data = []T{}
	}
	return &Page[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(total, p.Limit),
	}
}

// TotalPages returns ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ExpectedLen returns how many rows a page should hold:
// min(limit, max(0, total-(page-1)*limit)).
func (p Params) ExpectedLen(total int) int {
	remaining := total - p.Offset()
	if remaining < 0 {
		remaining = 0
	}
	if remaining > p.Limit {
		return p.Limit
	}
	return remaining
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.Limit < total
}

// HasPrevious returns true if the current page is not the first one.
func (p Params) HasPrevious() bool {
	return p.Page > 1
}
