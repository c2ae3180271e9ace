package common

import (
	"net/http"
	"strconv"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// Limit returns the page size for SQL, defaulting to 20.
func (p Pagination) Limit() int32 {
	if p.PerPage <= 0 {
		return 20
	}
	return int32(p.PerPage)
}

// Offset returns the row offset implied by the page number.
func (p Pagination) Offset() int32 {
	if p.Page <= 1 {
		return 0
	}
	return int32(p.Page-1) * p.Limit()
}

// ParsePagination extracts page and per-page parameters from query values.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	return
}
