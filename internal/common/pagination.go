package common

import (
	"net/http"
	"strconv"
)

// MaxPerPage caps page sizes requested by clients.
const MaxPerPage = 100

// Page is a 1-based window over a list, echoed back next to the data.
type Page struct {
	Number  int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
}

// Offset is the zero-based index of the first item on the page.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// ParsePage reads ?page= and ?limit=, defaulting to page 1 of defaultPerPage
// and clamping limit to MaxPerPage.
func ParsePage(r *http.Request, defaultPerPage int) Page {
	q := r.URL.Query()
	p := Page{Number: 1, PerPage: defaultPerPage}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.PerPage = min(n, MaxPerPage)
	}
	return p
}
