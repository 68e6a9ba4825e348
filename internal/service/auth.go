package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
	"github.com/shelfwise/shelfwise-server/internal/sanitize"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// AuthService handles registration, login, token rotation and the auth guard.
// Each user has at most one active refresh token; issuing a new one supersedes the old.
type AuthService struct {
	store      store.Store
	tokens     *auth.TokenService
	sanitizer  *sanitize.Sanitizer
	metrics    metrics.Recorder
	logger     *slog.Logger
	hashParams auth.HashParams

	// dummyHash is verified against when the email is unknown, so both
	// login failure modes cost one argon2 computation.
	dummyHash func() string
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithHashParams overrides the argon2id parameters for new password hashes.
func WithHashParams(p auth.HashParams) AuthOption {
	return func(s *AuthService) {
		s.hashParams = p
	}
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	st store.Store,
	tokens *auth.TokenService,
	sanitizer *sanitize.Sanitizer,
	recorder metrics.Recorder,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	s := &AuthService{
		store:      st,
		tokens:     tokens,
		sanitizer:  sanitizer,
		metrics:    recorder,
		logger:     orDiscard(logger),
		hashParams: auth.DefaultHashParams,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash = sync.OnceValue(func() string {
		hash, err := auth.HashPasswordWith("shelfwise-unknown-user", s.hashParams)
		if err != nil {
			return ""
		}
		return hash
	})
	return s
}

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=1024"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=1024"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=1024"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User domain.UserSummary `json:"user"`
	auth.TokenPair
}

// Register creates an account and opens its first session.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = s.sanitizer.Text(req.Name)
	if err := validate.Validate(req); err != nil {
		s.metrics.RecordAuthEvent(metrics.EventRegister, metrics.OutcomeFailure)
		return nil, err
	}

	passwordHash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Timestamps:   domain.Timestamps{ID: userID},
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			s.metrics.RecordAuthEvent(metrics.EventRegister, metrics.OutcomeFailure)
			return nil, domainerrors.AlreadyExists("email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent(metrics.EventRegister, metrics.OutcomeSuccess)
	s.logger.Info("user registered", "user_id", user.ID)

	return &AuthResponse{User: user.Summary(), TokenPair: *pair}, nil
}

// Login verifies credentials and rotates the user's refresh token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			auth.VerifyPassword(s.dummyHash(), req.Password)
			s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeFailure)
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeFailure)
		s.logger.Debug("login rejected", "user_id", user.ID)
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent(metrics.EventLogin, metrics.OutcomeSuccess)
	s.logger.Info("user logged in", "user_id", user.ID)

	return &AuthResponse{User: user.Summary(), TokenPair: *pair}, nil
}

// startSession issues a token pair and unconditionally makes its refresh token the active one.
func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*auth.TokenPair, error) {
	pair, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.store.RecordLogin(ctx, user.ID, auth.HashToken(pair.RefreshToken), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return pair, nil
}

// Refresh exchanges the active refresh token for a new pair. The swap is a
// compare-and-swap on the stored token hash, so of two concurrent refreshes
// with the same token exactly one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		s.metrics.RecordAuthEvent(metrics.EventRefresh, metrics.OutcomeFailure)
		return nil, domainerrors.ErrMissingToken
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.metrics.RecordAuthEvent(metrics.EventRefresh, metrics.OutcomeFailure)
		s.logger.Debug("refresh token rejected", "error", err)
		return nil, domainerrors.ErrInvalidToken
	}

	pair, err := s.tokens.IssuePair(claims.UserID, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	next := auth.HashToken(pair.RefreshToken)
	err = s.store.SwapRefreshToken(ctx, claims.UserID, auth.HashToken(refreshToken), &next)
	if err != nil {
		if errors.Is(err, store.ErrTokenMismatch) || errors.Is(err, store.ErrNotFound) {
			s.metrics.RecordAuthEvent(metrics.EventRefresh, metrics.OutcomeFailure)
			s.logger.Warn("superseded refresh token presented", "user_id", claims.UserID)
			return nil, domainerrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventRefresh, metrics.OutcomeSuccess)
	return pair, nil
}

// Logout clears the active refresh token if refreshToken is it. It always
// reports success: an invalid, expired or superseded token already means no
// session, and it must not end any other session of the user.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.logger.Debug("logout with unverifiable token", "error", err)
		return nil
	}

	err = s.store.SwapRefreshToken(ctx, claims.UserID, auth.HashToken(refreshToken), nil)
	switch {
	case err == nil:
		s.metrics.RecordAuthEvent(metrics.EventLogout, metrics.OutcomeSuccess)
		s.logger.Info("user logged out", "user_id", claims.UserID)
	case errors.Is(err, store.ErrTokenMismatch), errors.Is(err, store.ErrNotFound):
		s.metrics.RecordAuthEvent(metrics.EventLogout, metrics.OutcomeSkipped)
	default:
		s.metrics.RecordAuthEvent(metrics.EventLogout, metrics.OutcomeFailure)
		s.logger.Error("failed to clear refresh token", "user_id", claims.UserID, "error", err)
	}
	return nil
}

// Authenticate resolves a bearer access token to the identity it carries.
// No store lookup is made; the token alone is authoritative until it expires.
func (s *AuthService) Authenticate(_ context.Context, bearerToken string) (*auth.Identity, error) {
	bearerToken = strings.TrimSpace(bearerToken)
	if bearerToken == "" {
		return nil, domainerrors.Unauthorized("authentication required")
	}

	claims, err := s.tokens.VerifyAccessToken(bearerToken)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired access token")
	}

	identity := claims.Identity()
	return &identity, nil
}

// Me returns the public summary of the user.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.UserSummary, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	summary := user.Summary()
	return &summary, nil
}

// ChangePassword replaces the password after checking the current one and
// ends the user's session, so every client must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := validate.Validate(req); err != nil {
		return err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		s.metrics.RecordAuthEvent(metrics.EventPasswordChange, metrics.OutcomeFailure)
		return domainerrors.InvalidCredentials("current password is incorrect")
	}

	passwordHash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePassword(ctx, userID, passwordHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.metrics.RecordAuthEvent(metrics.EventPasswordChange, metrics.OutcomeSuccess)
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := auth.HashPasswordWith(password, s.hashParams)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", domainerrors.Validationf("password must not exceed %d bytes", auth.MaxPasswordLength)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
