package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/shelfwise/shelfwise-server/internal/id"
)

const (
	tokenIssuer = "shelfwise-server"

	// Distinct audiences keep a refresh token from being accepted as an access token and vice versa.
	accessAudience  = "shelfwise-access"
	refreshAudience = "shelfwise-refresh"

	// DefaultAccessTokenDuration is the access token lifetime.
	DefaultAccessTokenDuration = 15 * time.Minute
	// DefaultRefreshTokenDuration is the refresh token lifetime.
	DefaultRefreshTokenDuration = 7 * 24 * time.Hour
)

// ErrInvalidToken is returned for any token that fails decryption or claim validation.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies PASETO v4.local tokens with one symmetric key.
// The key is immutable for the lifetime of the service.
type TokenService struct {
	symmetricKey         paseto.V4SymmetricKey
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
	now                  func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a token service from a 64 hex character key.
// Non-positive durations fall back to the defaults.
func NewTokenService(keyHex string, accessDuration, refreshDuration time.Duration, opts ...TokenOption) (*TokenService, error) {
	keyBytes, err := decodeKeyHex(keyHex)
	if err != nil {
		return nil, err
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	if accessDuration <= 0 {
		accessDuration = DefaultAccessTokenDuration
	}
	if refreshDuration <= 0 {
		refreshDuration = DefaultRefreshTokenDuration
	}

	s := &TokenService{
		symmetricKey:         key,
		accessTokenDuration:  accessDuration,
		refreshTokenDuration: refreshDuration,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssuePair issues a fresh access token and refresh token for the user.
func (s *TokenService) IssuePair(userID, email string) (*TokenPair, error) {
	now := s.now()

	access, err := s.issue(userID, email, accessAudience, now, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.issue(userID, email, refreshAudience, now, s.refreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int(s.accessTokenDuration.Seconds()),
		RefreshExpiresAt: now.Add(s.refreshTokenDuration).UTC(),
	}, nil
}

// VerifyAccessToken decrypts and validates an access token.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	return s.verify(token, accessAudience)
}

// VerifyRefreshToken decrypts and validates a refresh token. A valid result
// only proves the token is authentic and unexpired; whether it is still the
// user's active token is decided by comparing HashToken against the store.
func (s *TokenService) VerifyRefreshToken(token string) (*Claims, error) {
	return s.verify(token, refreshAudience)
}

func (s *TokenService) issue(userID, email, audience string, now time.Time, ttl time.Duration) (string, error) {
	token := paseto.NewToken()

	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(audience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))

	// The jti makes two tokens issued in the same instant distinct, which rotation depends on.
	tokenID, err := id.Generate("tok")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Set only fails for values that cannot be JSON encoded
	_ = token.Set("user_id", userID)
	//nolint:errcheck // see above
	_ = token.Set("email", email)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

func (s *TokenService) verify(tokenString, audience string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(audience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("%w: parse claims: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}

	return &claims, nil
}

// HashToken returns the SHA-256 hex digest stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AccessTokenDuration returns the configured access token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}

// RefreshTokenDuration returns the configured refresh token lifetime.
func (s *TokenService) RefreshTokenDuration() time.Duration {
	return s.refreshTokenDuration
}
