package badgerdb

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// CreateUser inserts a new user. The email index is case-insensitive.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.users.Create(ctx, user)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

// GetUserByEmail retrieves a user by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByIndex(ctx, indexEmail, email)
}

// GetUsersByIDs returns the users that exist among ids.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]*domain.User, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			if _, seen := out[id]; seen {
				continue
			}
			u, err := s.users.getTxn(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out[id] = u
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordLogin replaces the refresh token hash and stamps the login time.
func (s *Store) RecordLogin(ctx context.Context, userID, refreshTokenHash string, at time.Time) error {
	return s.users.Mutate(ctx, userID, func(u *domain.User) error {
		hash := refreshTokenHash
		u.RefreshTokenHash = &hash
		u.LastLoginAt = at.UTC()
		u.Touch()
		return nil
	})
}

// SwapRefreshToken is a compare-and-swap on the stored refresh token hash.
// Concurrent callers presenting the same token serialize through badger's
// conflict detection; only the first to commit observes a match.
func (s *Store) SwapRefreshToken(ctx context.Context, userID, expected string, next *string) error {
	return s.users.Mutate(ctx, userID, func(u *domain.User) error {
		if u.RefreshTokenHash == nil || *u.RefreshTokenHash != expected {
			return store.ErrTokenMismatch
		}
		u.RefreshTokenHash = next
		u.Touch()
		return nil
	})
}

// UpdatePassword replaces the password hash and ends the active session.
func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.users.Mutate(ctx, userID, func(u *domain.User) error {
		u.PasswordHash = passwordHash
		u.RefreshTokenHash = nil
		u.Touch()
		return nil
	})
}
