package pagination

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrInvalidPage  = errors.New("page must be a positive integer")
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads "page" and "limit". Missing values take the defaults; limits
// above maxLimit are clamped. Pages whose offset would overflow int are
// rejected.
func Parse(values url.Values, defaultLimit, maxLimit int) (Page, error) {
	page := Page{Page: 1, Limit: defaultLimit}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPage(defaultLimit, maxLimit) {
			return Page{}, ErrInvalidPage
		}
		page.Page = n
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, ErrInvalidLimit
		}
		page.Limit = n
	}

	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page, nil
}

// Envelope is the pagination block of list responses.
type Envelope struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewEnvelope(p Page, total int) Envelope {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Envelope{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

// maxPage is the largest page whose offset fits in an int at the widest limit.
func maxPage(defaultLimit, maxLimit int) int {
	widest := max(defaultLimit, maxLimit, 1)
	return math.MaxInt / widest
}
