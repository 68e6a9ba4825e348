package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// User represents a registered reader.
type User struct {
	Timestamps
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash,omitempty"` // never leaves the store layer

	// RefreshTokenHash is the SHA-256 digest of the single active refresh token.
	// Nil means the user has no active session.
	RefreshTokenHash *string   `json:"refresh_token_hash,omitempty"`
	LastLoginAt      time.Time `json:"last_login_at,omitzero"`
}

// HasSession reports whether a refresh token is currently active for the user.
func (u *User) HasSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserSummary is what other users and API clients get to see of an account.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

var emailFolder = cases.Fold()

// NormalizeEmail returns the comparison key for an email address.
// Two addresses are the same account when their normalized forms are equal.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}
