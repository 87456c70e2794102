package events

import (
	"net/url"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Filters drives listEvents. Page is 1-based.
type Filters struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// Offset is the number of rows skipped before the current page.
func (f Filters) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// CategoryFilter returns the category to match, or "" for no filter.
func (f Filters) CategoryFilter() string {
	if f.Category == CategoryAll {
		return ""
	}
	return f.Category
}

// ParseFilters reads category and search from the query string. Paging is
// parsed by the caller.
func ParseFilters(values url.Values) Filters {
	return Filters{
		Category: strings.TrimSpace(values.Get("category")),
		Search:   strings.TrimSpace(values.Get("search")),
		Page:     1,
		Limit:    DefaultPageSize,
	}
}

// EscapeLike escapes LIKE metacharacters so search text matches literally.
// Backends use '\' as the escape character.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
