package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/sanitize"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// maxQueryLength bounds search and filter strings.
const maxQueryLength = 200

// BookService orchestrates catalog operations.
type BookService struct {
	store     store.Store
	reviews   *ReviewService
	search    *SearchService
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(
	st store.Store,
	reviews *ReviewService,
	search *SearchService,
	sanitizer *sanitize.Sanitizer,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:     st,
		reviews:   reviews,
		search:    search,
		sanitizer: sanitizer,
		logger:    orDiscard(logger),
	}
}

// CreateBookRequest contains a new catalog entry.
type CreateBookRequest struct {
	ISBN        string `json:"isbn" validate:"required,isbn13"`
	Title       string `json:"title" validate:"required,max=255"`
	Author      string `json:"author" validate:"required,max=255"`
	Genre       string `json:"genre,omitempty" validate:"max=100"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// UpdateBookRequest is a partial update. Nil fields are left as they are;
// rating fields cannot be written.
type UpdateBookRequest struct {
	ISBN        *string `json:"isbn,omitempty"`
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ListBooksRequest filters and pages the catalog.
type ListBooksRequest struct {
	Author string
	Genre  string
	Page   int
	Limit  int
}

// BookDetails is a book with the first page of its reviews.
type BookDetails struct {
	*domain.Book
	Reviews *store.Paginated[*ReviewView] `json:"reviews"`
}

// Add creates a book on behalf of userID.
func (s *BookService) Add(ctx context.Context, userID string, req CreateBookRequest) (*domain.Book, error) {
	req = s.clean(req)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Timestamps:  domain.Timestamps{ID: bookID},
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Description: req.Description,
		CreatedBy:   userID,
	}
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflictf("a book with ISBN %s already exists", req.ISBN)
		}
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.search.IndexBook(book)
	s.logger.Info("book added", "book_id", book.ID, "isbn", book.ISBN, "user_id", userID)

	return book, nil
}

// Get returns a book with one page of its reviews.
func (s *BookService) Get(ctx context.Context, bookID string, reviewPage, reviewLimit int) (*BookDetails, error) {
	book, err := s.get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.pageForBook(ctx, book.ID, store.NewPage(reviewPage, reviewLimit, store.DefaultReviewLimit))
	if err != nil {
		return nil, err
	}

	return &BookDetails{Book: book, Reviews: reviews}, nil
}

// Update applies a partial update. A changed ISBN is validated and checked for uniqueness again.
func (s *BookService) Update(ctx context.Context, userID, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	book, err := s.get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	merged := CreateBookRequest{
		ISBN:        book.ISBN,
		Title:       book.Title,
		Author:      book.Author,
		Genre:       book.Genre,
		Description: book.Description,
	}
	if req.ISBN != nil {
		merged.ISBN = strings.TrimSpace(*req.ISBN)
	}
	if req.Title != nil {
		merged.Title = s.sanitizer.Text(*req.Title)
	}
	if req.Author != nil {
		merged.Author = s.sanitizer.Text(*req.Author)
	}
	if req.Genre != nil {
		merged.Genre = s.sanitizer.Text(*req.Genre)
	}
	if req.Description != nil {
		merged.Description = s.sanitizer.Description(*req.Description)
	}

	if err := validate.Validate(merged); err != nil {
		return nil, err
	}

	book.ISBN = merged.ISBN
	book.Title = merged.Title
	book.Author = merged.Author
	book.Genre = merged.Genre
	book.Description = merged.Description
	book.Touch()

	if err := s.store.UpdateBook(ctx, book); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.Conflictf("a book with ISBN %s already exists", book.ISBN)
		case errors.Is(err, store.ErrNotFound):
			return nil, errBookNotFound
		default:
			return nil, fmt.Errorf("update book: %w", err)
		}
	}

	s.search.IndexBook(book)
	s.logger.Info("book updated", "book_id", book.ID, "user_id", userID)

	return book, nil
}

// Delete removes a book and all of its reviews.
func (s *BookService) Delete(ctx context.Context, userID, bookID string) error {
	if !id.HasPrefix(bookID, id.PrefixBook) {
		return errBookNotFound
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errBookNotFound
		}
		return fmt.Errorf("delete book: %w", err)
	}

	s.search.RemoveBook(bookID)
	s.logger.Info("book deleted", "book_id", bookID, "user_id", userID)
	return nil
}

// List returns one page of the catalog, newest first, optionally filtered by
// author and genre substrings.
func (s *BookService) List(ctx context.Context, req ListBooksRequest) (*store.Paginated[*domain.Book], error) {
	q := store.BookQuery{
		Author: strings.TrimSpace(req.Author),
		Genre:  strings.TrimSpace(req.Genre),
	}
	if len(q.Author) > maxQueryLength || len(q.Genre) > maxQueryLength {
		return nil, domainerrors.Validationf("filters must not exceed %d characters", maxQueryLength)
	}

	p := store.NewPage(req.Page, req.Limit, store.DefaultBookLimit)
	books, total, err := s.store.ListBooks(ctx, q, p)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	result := store.NewPaginated(books, p, total)
	return &result, nil
}

// Search finds books whose title, author or ISBN contains text, ignoring case.
// The text is matched literally.
func (s *BookService) Search(ctx context.Context, text string, page, limit int) (*store.Paginated[*domain.Book], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domainerrors.ValidationWithDetails("search query is required",
			map[string]string{"q": "is required"})
	}
	if len(text) > maxQueryLength {
		return nil, domainerrors.Validationf("search query must not exceed %d characters", maxQueryLength)
	}

	p := store.NewPage(page, limit, store.DefaultBookLimit)
	books, total, err := s.search.Search(ctx, text, p)
	if err != nil {
		return nil, err
	}

	result := store.NewPaginated(books, p, total)
	return &result, nil
}

func (s *BookService) get(ctx context.Context, bookID string) (*domain.Book, error) {
	if !id.HasPrefix(bookID, id.PrefixBook) {
		return nil, errBookNotFound
	}
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// clean sanitizes every free-text field of a book request.
func (s *BookService) clean(req CreateBookRequest) CreateBookRequest {
	return CreateBookRequest{
		ISBN:        strings.TrimSpace(req.ISBN),
		Title:       s.sanitizer.Text(req.Title),
		Author:      s.sanitizer.Text(req.Author),
		Genre:       s.sanitizer.Text(req.Genre),
		Description: s.sanitizer.Description(req.Description),
	}
}
