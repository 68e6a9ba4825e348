package api

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/api/dto"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
)

func TestRegister_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "ada@example.com",
		"name":     "Ada",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[dto.AuthResponse](t, resp)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.NotEmpty(t, envelope.Data.RefreshToken)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
	assert.Equal(t, 900, envelope.Data.ExpiresIn)
	assert.Equal(t, "ada@example.com", envelope.Data.User.Email)
	assert.Equal(t, "Ada", envelope.Data.User.Name)
	assert.NotEmpty(t, envelope.Data.User.ID)

	assert.NotContains(t, resp.Body.String(), "password")
}

func TestRegister_DuplicateEmailIgnoresCase(t *testing.T) {
	ts := setupTestServer(t)
	ts.register(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":    "ADA@Example.com",
		"name":     "Other Ada",
		"password": "correct horse battery",
	})

	requireError(t, resp, http.StatusConflict, "ALREADY_EXISTS")
}

func TestRegister_ValidationErrors(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing email",
			body: map[string]any{"name": "Ada", "password": "correct horse battery"},
		},
		{
			name: "invalid email",
			body: map[string]any{"email": "not-an-email", "name": "Ada", "password": "correct horse battery"},
		},
		{
			name: "short password",
			body: map[string]any{"email": "ada@example.com", "name": "Ada", "password": "short"},
		},
		{
			name: "blank name",
			body: map[string]any{"email": "ada@example.com", "name": "   ", "password": "correct horse battery"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/auth/register", tt.body)
			apiErr := requireError(t, resp, http.StatusBadRequest, "VALIDATION")
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "Ada@Example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[dto.AuthResponse](t, resp)
	assert.Equal(t, registered.User.ID, envelope.Data.User.ID)
	assert.NotEqual(t, registered.RefreshToken, envelope.Data.RefreshToken)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := setupTestServer(t)
	ts.register(t, "ada@example.com")

	wrongPassword := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong password",
	})
	unknownEmail := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "correct horse battery",
	})

	first := requireError(t, wrongPassword, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	second := requireError(t, unknownEmail, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	assert.Equal(t, first.Message, second.Message)
}

func TestLogin_RevokesEarlierRefreshToken(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	stale := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": registered.RefreshToken})
	requireError(t, stale, http.StatusUnauthorized, "INVALID_TOKEN")
}

func TestRefresh_RotatesToken(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": registered.RefreshToken})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	rotated := decodeEnvelope[dto.Tokens](t, resp).Data
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, rotated.RefreshToken)

	reused := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": registered.RefreshToken})
	requireError(t, reused, http.StatusUnauthorized, "INVALID_TOKEN")

	again := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusOK, again.Code, again.Body.String())
}

func TestRefresh_MissingToken(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("empty body object", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/refresh", map[string]any{})
		requireError(t, resp, http.StatusUnauthorized, "MISSING_TOKEN")
	})

	t.Run("blank token", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": "  "})
		requireError(t, resp, http.StatusUnauthorized, "MISSING_TOKEN")
	})
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": registered.AccessToken})
	requireError(t, resp, http.StatusUnauthorized, "INVALID_TOKEN")
}

func TestLogout(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	resp := ts.api.Post("/api/v1/auth/logout", map[string]any{"refresh_token": registered.RefreshToken})
	assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	refresh := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": registered.RefreshToken})
	requireError(t, refresh, http.StatusUnauthorized, "INVALID_TOKEN")
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "garbage token", body: map[string]any{"refresh_token": "not-a-token"}},
		{name: "no token", body: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/auth/logout", tt.body)
			assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())
		})
	}
}

func TestLogout_StaleTokenKeepsCurrentSession(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	refreshed := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": registered.RefreshToken})
	require.Equal(t, http.StatusOK, refreshed.Code)
	current := decodeEnvelope[dto.Tokens](t, refreshed).Data

	resp := ts.api.Post("/api/v1/auth/logout", map[string]any{"refresh_token": registered.RefreshToken})
	require.Equal(t, http.StatusNoContent, resp.Code)

	again := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": current.RefreshToken})
	assert.Equal(t, http.StatusOK, again.Code, again.Body.String())
}

func TestMe(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	resp := ts.api.Get("/api/v1/auth/me", bearer(registered.AccessToken))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	user := decodeEnvelope[dto.User](t, resp).Data
	assert.Equal(t, registered.User, user)
}

func TestMe_Unauthenticated(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	tests := []struct {
		name    string
		args    []any
		message string
	}{
		{name: "no header", message: "authentication required"},
		{name: "wrong scheme", args: []any{"Authorization: Basic abc"}, message: "authentication required"},
		{name: "garbage token", args: []any{bearer("garbage")}, message: "invalid or expired access token"},
		{name: "refresh token as access token", args: []any{bearer(registered.RefreshToken)}, message: "invalid or expired access token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get("/api/v1/auth/me", tt.args...)
			apiErr := requireError(t, resp, http.StatusUnauthorized, "UNAUTHORIZED")
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)
	registered := ts.register(t, "ada@example.com")

	wrong := ts.api.Put("/api/v1/auth/password", bearer(registered.AccessToken), map[string]any{
		"current_password": "not my password",
		"new_password":     "a brand new passphrase",
	})
	requireError(t, wrong, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	resp := ts.api.Put("/api/v1/auth/password", bearer(registered.AccessToken), map[string]any{
		"current_password": "correct horse battery",
		"new_password":     "a brand new passphrase",
	})
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	oldLogin := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "correct horse battery",
	})
	requireError(t, oldLogin, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	newLogin := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "a brand new passphrase",
	})
	assert.Equal(t, http.StatusOK, newLogin.Code)

	refresh := ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": registered.RefreshToken})
	requireError(t, refresh, http.StatusUnauthorized, "INVALID_TOKEN")
}

func TestAuthRateLimit(t *testing.T) {
	limiter := ratelimit.New(ratelimit.PerMinute(1), 2)
	t.Cleanup(limiter.Stop)

	ts := setupTestServer(t, func(o *Options) {
		o.AuthRateLimiter = limiter
	})

	login := func() int {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "ada@example.com",
			"password": "correct horse battery",
		})
		return resp.Code
	}

	assert.Equal(t, http.StatusUnauthorized, login())
	assert.Equal(t, http.StatusUnauthorized, login())

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "correct horse battery",
	})
	requireError(t, resp, http.StatusTooManyRequests, "RATE_LIMITED")

	retryAfter, err := strconv.Atoi(resp.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 60)

	// Routes outside the credential endpoints share no budget.
	health := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, health.Code)
}
