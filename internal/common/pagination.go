package common

import (
	"net/http"
)

// Page is a resolved page request plus the metadata echoed in list responses.
type Page struct {
	Number     int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// ParsePage reads the page and limit query parameters. limit falls back to
// def and is capped at max when max is positive.
func ParsePage(r *http.Request, def, max int) Page {
	q := r.URL.Query()
	p := Page{Number: AtoiDefault(q.Get("page"), 1), PerPage: AtoiDefault(q.Get("limit"), def)}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = def
	}
	if max > 0 && p.PerPage > max {
		p.PerPage = max
	}
	return p
}
