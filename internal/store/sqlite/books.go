package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `id, created_at, updated_at, isbn, title, author, genre, description,
	average_rating, total_reviews, created_by`

func scanBook(row scanner) (*domain.Book, error) {
	var (
		b         domain.Book
		createdAt string
		updatedAt string
	)

	err := row.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&b.ISBN,
		&b.Title,
		&b.Author,
		&b.Genre,
		&b.Description,
		&b.AverageRating,
		&b.TotalReviews,
		&b.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBooks(rows *sql.Rows) ([]*domain.Book, error) {
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// fold lowercases text for the *_fold columns used by substring filters.
func fold(s string) string {
	return strings.ToLower(s)
}

// CreateBook inserts a new book. Returns store.ErrAlreadyExists on a duplicate ISBN.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, created_at, updated_at, isbn, title, title_fold, author, author_fold,
			genre, genre_fold, description, average_rating, total_reviews, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		book.ISBN,
		book.Title, fold(book.Title),
		book.Author, fold(book.Author),
		book.Genre, fold(book.Genre),
		book.Description,
		book.AverageRating,
		book.TotalReviews,
		book.CreatedBy,
	)
	return mapWriteError(err)
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBooksByIDs returns existing books in the order of ids.
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return []*domain.Book{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	found, err := scanBooks(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Book, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	out := make([]*domain.Book, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
			delete(byID, id)
		}
	}
	return out, nil
}

// UpdateBook writes the editable fields; rating columns are never touched here.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			isbn = ?, title = ?, title_fold = ?, author = ?, author_fold = ?,
			genre = ?, genre_fold = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		book.ISBN,
		book.Title, fold(book.Title),
		book.Author, fold(book.Author),
		book.Genre, fold(book.Genre),
		book.Description,
		formatTime(book.UpdatedAt),
		book.ID,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return requireAffected(res)
}

// DeleteBook removes the book and its reviews in one transaction.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE book_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// ListBooks returns one newest-first page of books matching q.
func (s *Store) ListBooks(ctx context.Context, q store.BookQuery, page store.Page) ([]*domain.Book, int, error) {
	var (
		conds []string
		args  []any
	)
	if q.Author != "" {
		conds = append(conds, `instr(author_fold, ?) > 0`)
		args = append(args, fold(q.Author))
	}
	if q.Genre != "" {
		conds = append(conds, `instr(genre_fold, ?) > 0`)
		args = append(args, fold(q.Genre))
	}
	if q.Text != "" {
		text := fold(q.Text)
		conds = append(conds, `(instr(title_fold, ?) > 0 OR instr(author_fold, ?) > 0 OR instr(isbn, ?) > 0)`)
		args = append(args, text, text, text)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	books, err := scanBooks(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// SetBookRating writes the derived rating fields.
func (s *Store) SetBookRating(ctx context.Context, bookID string, stats domain.RatingStats) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET average_rating = ?, total_reviews = ? WHERE id = ?`,
		stats.AverageRating, stats.TotalReviews, bookID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}
