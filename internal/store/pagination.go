package store

import "math"

// Pagination limits.
const (
	DefaultBookLimit   = 10
	DefaultReviewLimit = 5
	MaxLimit           = 50

	// MaxPage keeps (page-1)*limit within an int for any limit up to MaxLimit.
	MaxPage = math.MaxInt / MaxLimit
)

// Page selects a window of a newest-first listing. Page numbers start at 1.
type Page struct {
	Page  int
	Limit int
}

// NewPage builds a Page, clamping out-of-range values: a page below 1 becomes 1,
// a page above MaxPage becomes MaxPage and a limit outside [1, MaxLimit]
// becomes defaultLimit.
func NewPage(page, limit, defaultLimit int) Page {
	page = max(1, min(page, MaxPage))
	if limit < 1 || limit > MaxLimit {
		limit = defaultLimit
	}
	return Page{Page: page, Limit: limit}
}

// Offset returns the number of items to skip. It saturates at math.MaxInt
// instead of overflowing.
func (p Page) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Window returns the [start, end) slice bounds of this page within total items.
// Pages past the end yield an empty window at total.
func (p Page) Window(total int) (int, int) {
	start := min(p.Offset(), total)
	end := start + min(max(p.Limit, 0), total-start)
	return start, end
}

// TotalPages returns how many pages total items span.
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 || total == 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Paginated is one page of results with the metadata clients need to walk the rest.
type Paginated[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// NewPaginated wraps items fetched for page p out of total matches.
func NewPaginated[T any](items []T, p Page, total int) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Items:      items,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: p.TotalPages(total),
		HasMore:    p.Offset()+len(items) < total,
	}
}
