// Package badgerdb implements store.Store on an embedded Badger key-value
// database holding JSON documents.
package badgerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Key prefixes for each collection.
const (
	userPrefix   = "user:"
	bookPrefix   = "book:"
	reviewPrefix = "review:"
)

// Index names.
const (
	indexEmail    = "email"
	indexISBN     = "isbn"
	indexUserBook = "user_book"
	indexBook     = "book"
)

var _ store.Store = (*Store)(nil)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	users   *Entity[domain.User]
	books   *Entity[domain.Book]
	reviews *Entity[domain.Review]
}

// New opens (or creates) a Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	s.users = NewEntity(db, userPrefix, func(u *domain.User) string { return u.ID }).
		WithUniqueIndex(indexEmail,
			func(u *domain.User) []string { return []string{domain.NormalizeEmail(u.Email)} },
			domain.NormalizeEmail,
		)

	s.books = NewEntity(db, bookPrefix, func(b *domain.Book) string { return b.ID }).
		WithUniqueIndex(indexISBN,
			func(b *domain.Book) []string { return []string{b.ISBN} },
			nil,
		)

	s.reviews = NewEntity(db, reviewPrefix, func(r *domain.Review) string { return r.ID }).
		WithUniqueIndex(indexUserBook,
			func(r *domain.Review) []string { return []string{userBookKey(r.UserID, r.BookID)} },
			nil,
		).
		WithIndex(indexBook, func(r *domain.Review) []string { return []string{r.BookID} })

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// Ping reports whether the database is still open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

func userBookKey(userID, bookID string) string {
	return userID + "|" + bookID
}
