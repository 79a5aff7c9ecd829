package pagination

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps the page size a client may request.
const MaxPerPage = 100

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// FromRequest reads page and per_page from the query string. The catalog
// clients send limit instead of per_page, so limit is accepted as an alias.
// Missing or invalid values fall back to page 1 and defaultPerPage.
func FromRequest(r *http.Request, defaultPerPage int) Params {
	q := r.URL.Query()
	p := Params{Page: 1, PerPage: defaultPerPage}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}

	size := q.Get("per_page")
	if size == "" {
		size = q.Get("limit")
	}
	if v, err := strconv.Atoi(size); err == nil && v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}

	return p
}

// TotalPages returns the number of pages needed for total items.
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
