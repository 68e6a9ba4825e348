package badgerdb

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// CreateBook inserts a new book. ISBNs are unique.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	return s.books.Create(ctx, book)
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return s.books.Get(ctx, id)
}

// GetBooksByIDs returns existing books in the order of ids.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*domain.Book, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			b, err := s.books.getTxn(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBook writes the editable fields, preserving the derived rating fields
// of the stored document.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	return s.books.Mutate(ctx, book.ID, func(current *domain.Book) error {
		current.ISBN = book.ISBN
		current.Title = book.Title
		current.Author = book.Author
		current.Genre = book.Genre
		current.Description = book.Description
		current.UpdatedAt = book.UpdatedAt
		return nil
	})
}

// DeleteBook removes the book and all of its reviews in one transaction.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return retryOnConflict(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			reviewIDs, err := s.reviews.idsByIndexTxn(txn, indexBook, id)
			if err != nil {
				return err
			}
			for _, reviewID := range reviewIDs {
				if err := s.reviews.deleteTxn(txn, reviewID); err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			return s.books.deleteTxn(txn, id)
		})
	})
}

// ListBooks scans the catalog, filters in memory and returns one newest-first page.
func (s *Store) ListBooks(ctx context.Context, q store.BookQuery, page store.Page) ([]*domain.Book, int, error) {
	author := strings.ToLower(q.Author)
	genre := strings.ToLower(q.Genre)
	text := strings.ToLower(q.Text)

	var matched []*domain.Book
	for b, err := range s.books.List(ctx) {
		if err != nil {
			return nil, 0, err
		}
		if author != "" && !strings.Contains(strings.ToLower(b.Author), author) {
			continue
		}
		if genre != "" && !strings.Contains(strings.ToLower(b.Genre), genre) {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(b.Title), text) &&
			!strings.Contains(strings.ToLower(b.Author), text) &&
			!strings.Contains(b.ISBN, text) {
			continue
		}
		matched = append(matched, b)
	}

	sortNewestFirst(matched, func(b *domain.Book) domain.Timestamps { return b.Timestamps })

	start, end := page.Window(len(matched))
	return matched[start:end], len(matched), nil
}

// SetBookRating writes the derived rating fields.
func (s *Store) SetBookRating(ctx context.Context, bookID string, stats domain.RatingStats) error {
	return s.books.Mutate(ctx, bookID, func(b *domain.Book) error {
		b.AverageRating = stats.AverageRating
		b.TotalReviews = stats.TotalReviews
		return nil
	})
}

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	n := 0
	for _, err := range s.books.List(ctx) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// sortNewestFirst orders by creation time descending, breaking ties by ID so pages are stable.
func sortNewestFirst[T any](items []*T, ts func(*T) domain.Timestamps) {
	slices.SortStableFunc(items, func(a, b *T) int {
		ta, tb := ts(a), ts(b)
		if c := tb.CreatedAt.Compare(ta.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(tb.ID, ta.ID)
	})
}
