// Package domain holds the types shared by every retailcore domain package.
package domain

// Pagination bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Page selects a window of a list result.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResult builds a ListResult for the given page.
func NewListResult[T any](items []T, total int64, page Page) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}
}
