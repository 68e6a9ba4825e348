// Package store defines the persistence contract for Shelfwise. Two
// implementations live in subpackages: badgerdb (the default embedded
// document store) and sqlite.
package store

import (
	"context"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// Store is the single source of truth for users, books and reviews.
// Every method is safe for concurrent use.
type Store interface {
	UserStore
	BookStore
	ReviewStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// UserStore persists accounts and their single active refresh token.
type UserStore interface {
	// CreateUser inserts a user. Returns ErrAlreadyExists when the ID or the
	// case-insensitive email is taken.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetUserByEmail looks up by case-insensitive email.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetUsersByIDs returns the users that exist among ids, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)

	// RecordLogin stores the new refresh token hash unconditionally and stamps the login time.
	RecordLogin(ctx context.Context, userID, refreshTokenHash string, at time.Time) error
	// SwapRefreshToken atomically replaces the stored refresh token hash with next
	// if and only if it currently equals expected. next may be nil to clear it.
	// Returns ErrTokenMismatch when the stored hash differs.
	SwapRefreshToken(ctx context.Context, userID, expected string, next *string) error
	// UpdatePassword replaces the password hash and clears the refresh token.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// BookStore persists the catalog.
type BookStore interface {
	// CreateBook inserts a book. Returns ErrAlreadyExists on a duplicate ISBN.
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	// GetBooksByIDs returns existing books in the order of ids, skipping unknown IDs.
	GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error)
	// UpdateBook writes the editable fields of a book. Rating fields are left
	// untouched. Returns ErrAlreadyExists if the new ISBN belongs to another book.
	UpdateBook(ctx context.Context, book *domain.Book) error
	// DeleteBook removes a book together with all of its reviews.
	DeleteBook(ctx context.Context, id string) error
	// ListBooks returns one page of matching books, newest first, and the total match count.
	ListBooks(ctx context.Context, q BookQuery, page Page) ([]*domain.Book, int, error)
	// SetBookRating writes the derived rating fields. Returns ErrNotFound if the book is gone.
	SetBookRating(ctx context.Context, bookID string, stats domain.RatingStats) error
	// CountBooks returns the number of books in the catalog.
	CountBooks(ctx context.Context) (int, error)
}

// ReviewStore persists reviews.
type ReviewStore interface {
	// CreateReview inserts a review. Returns ErrAlreadyExists if the user
	// already reviewed the book.
	CreateReview(ctx context.Context, review *domain.Review) error
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	// UpdateReview writes rating, comment and updated_at.
	UpdateReview(ctx context.Context, review *domain.Review) error
	DeleteReview(ctx context.Context, id string) error
	// ListReviewsByBook returns one page of a book's reviews, newest first, and the total count.
	ListReviewsByBook(ctx context.Context, bookID string, page Page) ([]*domain.Review, int, error)
	// RatingsForBook returns the rating of every current review of the book.
	RatingsForBook(ctx context.Context, bookID string) ([]float64, error)
}

// BookQuery filters ListBooks. Every non-empty field is a case-insensitive
// substring match; all given fields must match.
type BookQuery struct {
	Author string
	Genre  string
	// Text matches title, author or ISBN.
	Text string
}

// IsZero reports whether the query matches every book.
func (q BookQuery) IsZero() bool {
	return q.Author == "" && q.Genre == "" && q.Text == ""
}
