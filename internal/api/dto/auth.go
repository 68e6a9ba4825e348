package dto

import (
	"time"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// User is the public view of an account.
type User struct {
	ID    string `json:"id" doc:"User ID"`
	Name  string `json:"name" doc:"Display name"`
	Email string `json:"email" doc:"Email address"`
}

// NewUser maps a user summary.
func NewUser(u domain.UserSummary) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email}
}

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email" maxLength:"254" doc:"Email address, unique regardless of case"`
	Name     string `json:"name" maxLength:"100" doc:"Display name"`
	Password string `json:"password" maxLength:"1024" doc:"Password (8-1024 chars)"`
}

// RegisterInput wraps the register request for huma.
type RegisterInput struct {
	Body RegisterRequest
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" maxLength:"254" doc:"User email address"`
	Password string `json:"password" maxLength:"1024" doc:"User password"`
}

// LoginInput wraps the login request for huma.
type LoginInput struct {
	Body LoginRequest
}

// RefreshRequest carries the refresh token. A missing token is reported as
// MISSING_TOKEN rather than a schema error.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty" doc:"Refresh token from login or a previous refresh"`
}

// RefreshInput wraps the refresh request for huma.
type RefreshInput struct {
	Body *RefreshRequest `required:"false"`
}

// Token returns the submitted refresh token, or "" when none was sent.
func (in *RefreshInput) Token() string {
	if in.Body == nil {
		return ""
	}
	return in.Body.RefreshToken
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" maxLength:"1024" doc:"Current password"`
	NewPassword     string `json:"new_password" maxLength:"1024" doc:"New password (8-1024 chars)"`
}

// ChangePasswordInput wraps the change password request for huma.
type ChangePasswordInput struct {
	Body ChangePasswordRequest
}

// Tokens is a freshly issued access and refresh token pair.
type Tokens struct {
	AccessToken      string    `json:"access_token" doc:"PASETO access token"`
	RefreshToken     string    `json:"refresh_token" doc:"Refresh token for obtaining new access tokens"`
	TokenType        string    `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn        int       `json:"expires_in" doc:"Access token expiry in seconds"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at" doc:"When the refresh token expires"`
}

// NewTokens maps a token pair.
func NewTokens(p *auth.TokenPair) Tokens {
	return Tokens{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        p.TokenType,
		ExpiresIn:        p.ExpiresIn,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

// TokensOutput wraps a token pair for huma.
type TokensOutput struct {
	Body Tokens
}

// AuthResponse is the response for successful registration or login.
type AuthResponse struct {
	Tokens
	User User `json:"user" doc:"Authenticated user details"`
}

// NewAuthResponse maps a service auth response.
func NewAuthResponse(resp *service.AuthResponse) AuthResponse {
	return AuthResponse{
		Tokens: NewTokens(&resp.TokenPair),
		User:   NewUser(resp.User),
	}
}

// AuthOutput wraps the auth response for huma.
type AuthOutput struct {
	Body AuthResponse
}

// UserOutput wraps a user for huma.
type UserOutput struct {
	Body User
}
