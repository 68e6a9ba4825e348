package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// SearchService keeps the search index in step with the catalog and answers
// text searches. The store stays the source of truth: hits are hydrated from
// it, and when the index is absent or failing the store's own substring
// matching is used instead.
type SearchService struct {
	index  *search.SearchIndex // nil disables the index
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a search service. index may be nil.
func NewSearchService(index *search.SearchIndex, st store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  st,
		logger: orDiscard(logger),
	}
}

// IndexBook adds or refreshes a book in the index. Failures are logged; the
// next reindex repairs them.
func (s *SearchService) IndexBook(book *domain.Book) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexBook(search.NewBookDocument(book)); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}

// RemoveBook drops a book from the index.
func (s *SearchService) RemoveBook(bookID string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteBook(bookID); err != nil {
		s.logger.Warn("failed to remove book from index", "book_id", bookID, "error", err)
	}
}

// Search returns one page of books whose title, author or ISBN contains text,
// newest first, and the total number of matches.
func (s *SearchService) Search(ctx context.Context, text string, page store.Page) ([]*domain.Book, int, error) {
	if s.index != nil {
		ids, total, err := s.index.SearchBooks(ctx, text, page.Offset(), page.Limit)
		if err == nil {
			books, err := s.store.GetBooksByIDs(ctx, ids)
			if err != nil {
				return nil, 0, fmt.Errorf("hydrate search hits: %w", err)
			}
			return books, total, nil
		}
		s.logger.Warn("search index query failed, falling back to store", "error", err)
	}

	books, total, err := s.store.ListBooks(ctx, store.BookQuery{Text: text}, page)
	if err != nil {
		return nil, 0, fmt.Errorf("search books: %w", err)
	}
	return books, total, nil
}

// Reindex rebuilds the index from every book in the store and returns how many were indexed.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	var docs []*search.BookDocument
	for p := store.NewPage(1, store.MaxLimit, store.MaxLimit); ; p.Page++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		books, total, err := s.store.ListBooks(ctx, store.BookQuery{}, p)
		if err != nil {
			return 0, fmt.Errorf("list books: %w", err)
		}
		for _, b := range books {
			docs = append(docs, search.NewBookDocument(b))
		}
		if len(books) == 0 || p.Offset()+len(books) >= total {
			break
		}
	}

	if err := s.index.IndexBooks(docs); err != nil {
		return 0, fmt.Errorf("index books: %w", err)
	}

	s.logger.Info("search index rebuilt", "books", len(docs))
	return len(docs), nil
}

// IndexStatus reports how many books the index holds. enabled is false when
// search runs on the store alone.
func (s *SearchService) IndexStatus() (count uint64, enabled bool, err error) {
	if s.index == nil {
		return 0, false, nil
	}
	count, err = s.index.DocumentCount()
	return count, true, err
}

// EnsureIndexed reindexes when the index and the store disagree on the number
// of books, as after a fresh index or a crash between a write and its indexing.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	if s.index == nil {
		return nil
	}

	indexed, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count indexed books: %w", err)
	}
	stored, err := s.store.CountBooks(ctx)
	if err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if indexed == uint64(stored) {
		return nil
	}

	s.logger.Info("search index out of date, reindexing", "indexed", indexed, "stored", stored)
	_, err = s.Reindex(ctx)
	return err
}
