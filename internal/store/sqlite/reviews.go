package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// reviewColumns must match the scan order in scanReview.
const reviewColumns = `id, created_at, updated_at, book_id, user_id, rating, comment`

func scanReview(row scanner) (*domain.Review, error) {
	var (
		r         domain.Review
		createdAt string
		updatedAt string
	)

	err := row.Scan(&r.ID, &createdAt, &updatedAt, &r.BookID, &r.UserID, &r.Rating, &r.Comment)
	if err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReview inserts a review. A duplicate (user, book) pair returns store.ErrAlreadyExists;
// an unknown book or user returns store.ErrNotFound.
func (s *Store) CreateReview(ctx context.Context, review *domain.Review) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, created_at, updated_at, book_id, user_id, rating, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		formatTime(review.CreatedAt),
		formatTime(review.UpdatedAt),
		review.BookID,
		review.UserID,
		review.Rating,
		review.Comment,
	)
	return mapWriteError(err)
}

// GetReview retrieves a review by ID.
func (s *Store) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateReview writes the rating, comment and update time.
func (s *Store) UpdateReview(ctx context.Context, review *domain.Review) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`,
		review.Rating, review.Comment, formatTime(review.UpdatedAt), review.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteReview removes a review.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListReviewsByBook returns one newest-first page of the book's reviews.
func (s *Store) ListReviewsByBook(ctx context.Context, bookID string, page store.Page) ([]*domain.Review, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE book_id = ?`, bookID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE book_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		bookID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// RatingsForBook returns the ratings of all current reviews of the book.
func (s *Store) RatingsForBook(ctx context.Context, bookID string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rating FROM reviews WHERE book_id = ?`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := []float64{}
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}
