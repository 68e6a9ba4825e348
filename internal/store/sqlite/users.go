package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, email, name, password_hash, refresh_token_hash, last_login_at`

func scanUser(row scanner) (*domain.User, error) {
	var (
		u           domain.User
		createdAt   string
		updatedAt   string
		refreshHash sql.NullString
		lastLoginAt sql.NullString
	)

	err := row.Scan(&u.ID, &createdAt, &updatedAt, &u.Email, &u.Name, &u.PasswordHash, &refreshHash, &lastLoginAt)
	if err != nil {
		return nil, err
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if refreshHash.Valid {
		hash := refreshHash.String
		u.RefreshTokenHash = &hash
	}
	if lastLoginAt.Valid {
		if u.LastLoginAt, err = parseTime(lastLoginAt.String); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

// CreateUser inserts a new user. Returns store.ErrAlreadyExists if the ID or email is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at, updated_at, email, email_key, name,
			password_hash, refresh_token_hash, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Email,
		domain.NormalizeEmail(user.Email),
		user.Name,
		user.PasswordHash,
		nullableString(user.RefreshTokenHash),
		nullTimeString(user.LastLoginAt),
	)
	return mapWriteError(err)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return oneUser(row)
}

// GetUserByEmail retrieves a user by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_key = ?`, domain.NormalizeEmail(email))
	return oneUser(row)
}

func oneUser(row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUsersByIDs returns the users that exist among ids.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// RecordLogin replaces the refresh token hash and stamps the login time.
func (s *Store) RecordLogin(ctx context.Context, userID, refreshTokenHash string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, last_login_at = ?, updated_at = ? WHERE id = ?`,
		refreshTokenHash, formatTime(at), formatTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SwapRefreshToken replaces the refresh token hash only if it still equals expected.
// The guarded UPDATE is atomic, so of two racing callers exactly one matches a row.
func (s *Store) SwapRefreshToken(ctx context.Context, userID, expected string, next *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, updated_at = ?
		 WHERE id = ? AND refresh_token_hash = ?`,
		nullableString(next), formatTime(time.Now()), userID, expected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	return store.ErrTokenMismatch
}

// UpdatePassword replaces the password hash and clears the refresh token.
func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, refresh_token_hash = NULL, updated_at = ? WHERE id = ?`,
		passwordHash, formatTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
