// Package dto provides request and response types for the Shelfwise API.
// These types are used by huma to generate OpenAPI documentation and perform validation.
package dto

import "github.com/shelfwise/shelfwise-server/internal/store"

// ListResponse is a generic paginated list response.
type ListResponse[T any] struct {
	Items      []T  `json:"items" doc:"List of items"`
	Page       int  `json:"page" doc:"Current page number"`
	Limit      int  `json:"limit" doc:"Items per page"`
	Total      int  `json:"total" doc:"Total count across all pages"`
	TotalPages int  `json:"total_pages" doc:"Number of pages"`
	HasMore    bool `json:"has_more" doc:"Whether more pages exist"`
}

// NewListResponse maps a store page, converting each item with conv.
func NewListResponse[S, T any](p *store.Paginated[S], conv func(S) T) ListResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, conv(item))
	}
	return ListResponse[T]{
		Items:      items,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasMore:    p.HasMore,
	}
}

// PaginationParams defines common pagination query parameters. Out-of-range
// values are not rejected: a page below 1 becomes 1, a page beyond
// store.MaxPage becomes store.MaxPage and a limit outside 1..50 becomes the
// endpoint's default.
type PaginationParams struct {
	Page  int `query:"page" doc:"Page number, starting at 1"`
	Limit int `query:"limit" doc:"Items per page (1-50)"`
}

// IDParam is a path parameter for resource IDs.
type IDParam struct {
	ID string `path:"id" maxLength:"64" doc:"Resource identifier"`
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for huma.
type MessageOutput struct {
	Body MessageResponse
}
