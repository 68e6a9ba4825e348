// Package search maintains a Bleve index over the book catalog that answers
// case-insensitive substring queries on title, author and ISBN.
package search

import (
	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// BookDocument is the indexed projection of a book. The store remains the
// source of truth; hits are hydrated from it by ID.
type BookDocument struct {
	ID        string
	Title     string
	Author    string
	ISBN      string
	Genre     string
	CreatedAt int64 // Unix microseconds, exact as a float64
}

// NewBookDocument projects a book into its index document.
func NewBookDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		Genre:     b.Genre,
		CreatedAt: b.CreatedAt.UnixMicro(),
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *BookDocument) ToMap() map[string]any {
	return map[string]any{
		fieldTitle:     d.Title,
		fieldAuthor:    d.Author,
		fieldISBN:      d.ISBN,
		fieldGenre:     d.Genre,
		fieldCreatedAt: float64(d.CreatedAt),
	}
}
