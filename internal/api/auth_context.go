package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

type identityKey struct{}

// authResult is what authMiddleware learned from the Authorization header.
type authResult struct {
	identity *auth.Identity
	err      error
}

// GetIdentity returns the authenticated principal from context.
// Returns 401 if the request carried no valid access token.
func GetIdentity(ctx context.Context) (*auth.Identity, error) {
	res, ok := ctx.Value(identityKey{}).(authResult)
	if !ok {
		return nil, domainerrors.Unauthorized("authentication required")
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.identity, nil
}

// GetUserID returns the authenticated user ID from context.
func GetUserID(ctx context.Context) (string, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

// authMiddleware validates Bearer tokens and stores the outcome in context.
// Requests without a valid token continue anonymously; operations that need
// an identity reject them through GetIdentity with the recorded reason.
func authMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := bearerToken(r.Header.Get("Authorization"))
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := authService.Authenticate(r.Context(), token)
			ctx := context.WithValue(r.Context(), identityKey{}, authResult{identity: identity, err: err})
			if err == nil {
				l := logger.FromContext(ctx, nil)
				if l != nil {
					ctx = logger.IntoContext(ctx, l.With("user_id", identity.UserID))
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header. present is
// false when no Authorization header was sent at all; a malformed header
// yields present with an empty token, which fails authentication.
func bearerToken(header string) (token string, present bool) {
	if header == "" {
		return "", false
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(value), true
}
