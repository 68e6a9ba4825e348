package badgerdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// CreateReview inserts a review; a second review by the same user for the same book is rejected.
// The book is read in the same transaction, so a concurrent DeleteBook either
// conflicts with the insert or makes it fail with store.ErrNotFound.
func (s *Store) CreateReview(ctx context.Context, review *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return retryOnConflict(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if _, err := s.books.getTxn(txn, review.BookID); err != nil {
				return err
			}

			_, err := txn.Get(s.reviews.key(review.ID))
			if err == nil {
				return store.ErrAlreadyExists
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check existing key: %w", err)
			}
			return s.reviews.putTxn(txn, nil, review)
		})
	})
}

// GetReview retrieves a review by ID.
func (s *Store) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	return s.reviews.Get(ctx, id)
}

// UpdateReview writes the rating, comment and update time.
func (s *Store) UpdateReview(ctx context.Context, review *domain.Review) error {
	return s.reviews.Mutate(ctx, review.ID, func(current *domain.Review) error {
		current.Rating = review.Rating
		current.Comment = review.Comment
		current.UpdatedAt = review.UpdatedAt
		return nil
	})
}

// DeleteReview removes a review.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return s.reviews.Delete(ctx, id)
}

// ListReviewsByBook returns one newest-first page of the book's reviews.
func (s *Store) ListReviewsByBook(ctx context.Context, bookID string, page store.Page) ([]*domain.Review, int, error) {
	reviews, err := s.reviews.ListByIndex(ctx, indexBook, bookID)
	if err != nil {
		return nil, 0, err
	}
	sortNewestFirst(reviews, func(r *domain.Review) domain.Timestamps { return r.Timestamps })

	start, end := page.Window(len(reviews))
	return reviews[start:end], len(reviews), nil
}

// RatingsForBook returns the ratings of all current reviews of the book.
func (s *Store) RatingsForBook(ctx context.Context, bookID string) ([]float64, error) {
	reviews, err := s.reviews.ListByIndex(ctx, indexBook, bookID)
	if err != nil {
		return nil, err
	}
	ratings := make([]float64, 0, len(reviews))
	for _, r := range reviews {
		ratings = append(ratings, r.Rating)
	}
	return ratings, nil
}
