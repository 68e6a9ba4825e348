package dto

import (
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Book is the public view of a catalog entry.
type Book struct {
	ID            string    `json:"id" doc:"Book ID"`
	ISBN          string    `json:"isbn" doc:"13-digit ISBN"`
	Title         string    `json:"title" doc:"Title"`
	Author        string    `json:"author" doc:"Author"`
	Genre         string    `json:"genre,omitempty" doc:"Genre"`
	Description   string    `json:"description,omitempty" doc:"Description (markdown)"`
	AverageRating float64   `json:"average_rating" doc:"Mean review rating, two decimals"`
	TotalReviews  int       `json:"total_reviews" doc:"Number of reviews"`
	CreatedBy     string    `json:"created_by" doc:"ID of the user who added the book"`
	CreatedAt     time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt     time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// NewBook maps a domain book.
func NewBook(b *domain.Book) Book {
	return Book{
		ID:            b.ID,
		ISBN:          b.ISBN,
		Title:         b.Title,
		Author:        b.Author,
		Genre:         b.Genre,
		Description:   b.Description,
		AverageRating: b.AverageRating,
		TotalReviews:  b.TotalReviews,
		CreatedBy:     b.CreatedBy,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// CreateBookRequest is the request body for adding a book.
type CreateBookRequest struct {
	ISBN        string `json:"isbn" doc:"13-digit ISBN, unique across the catalog"`
	Title       string `json:"title" maxLength:"255" doc:"Title"`
	Author      string `json:"author" maxLength:"255" doc:"Author"`
	Genre       string `json:"genre,omitempty" maxLength:"100" doc:"Genre"`
	Description string `json:"description,omitempty" maxLength:"20000" doc:"Description; HTML is converted to markdown"`
}

// ToService converts the request for the book service.
func (r CreateBookRequest) ToService() service.CreateBookRequest {
	return service.CreateBookRequest{
		ISBN:        r.ISBN,
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		Description: r.Description,
	}
}

// CreateBookInput wraps the create request for huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// UpdateBookRequest is a partial update; omitted fields keep their value.
type UpdateBookRequest struct {
	ISBN        *string `json:"isbn,omitempty" doc:"13-digit ISBN"`
	Title       *string `json:"title,omitempty" maxLength:"255" doc:"Title"`
	Author      *string `json:"author,omitempty" maxLength:"255" doc:"Author"`
	Genre       *string `json:"genre,omitempty" maxLength:"100" doc:"Genre"`
	Description *string `json:"description,omitempty" maxLength:"20000" doc:"Description"`
}

// ToService converts the request for the book service.
func (r UpdateBookRequest) ToService() service.UpdateBookRequest {
	return service.UpdateBookRequest{
		ISBN:        r.ISBN,
		Title:       r.Title,
		Author:      r.Author,
		Genre:       r.Genre,
		Description: r.Description,
	}
}

// UpdateBookInput wraps the update request for huma.
type UpdateBookInput struct {
	IDParam
	Body UpdateBookRequest
}

// ListBooksInput filters and pages the catalog.
type ListBooksInput struct {
	PaginationParams
	Author string `query:"author" maxLength:"255" doc:"Case-insensitive author substring"`
	Genre  string `query:"genre" maxLength:"100" doc:"Case-insensitive genre substring"`
}

// SearchBooksInput is a text search over title, author and ISBN.
type SearchBooksInput struct {
	PaginationParams
	Query string `query:"q" doc:"Case-insensitive substring of title, author or ISBN"`
}

// GetBookInput selects a book and a page of its reviews. The review page is
// clamped like PaginationParams.
type GetBookInput struct {
	IDParam
	ReviewPage  int `query:"review_page" doc:"Page of reviews to embed, starting at 1"`
	ReviewLimit int `query:"review_limit" doc:"Reviews per page (1-50, default 5)"`
}

// BookOutput wraps a single book for huma.
type BookOutput struct {
	Body Book
}

// BookListOutput wraps a page of books for huma.
type BookListOutput struct {
	Body ListResponse[Book]
}

// NewBookList maps a page of books.
func NewBookList(p *store.Paginated[*domain.Book]) ListResponse[Book] {
	return NewListResponse(p, NewBook)
}

// BookDetails is a book with one page of its reviews.
type BookDetails struct {
	Book
	Reviews ListResponse[Review] `json:"reviews" doc:"Reviews, newest first"`
}

// NewBookDetails maps a book with its reviews.
func NewBookDetails(d *service.BookDetails) BookDetails {
	return BookDetails{
		Book:    NewBook(d.Book),
		Reviews: NewReviewList(d.Reviews),
	}
}

// BookDetailsOutput wraps book details for huma.
type BookDetailsOutput struct {
	Body BookDetails
}
