package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
)

func TestAuthService_Register_Success(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterRequest{
		Email:    "  reader@example.com ",
		Name:     "<b>Ada</b> Reader",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "reader@example.com", resp.User.Email)
	assert.Equal(t, "Ada Reader", resp.User.Name)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int(auth.DefaultAccessTokenDuration.Seconds()), resp.ExpiresIn)

	user, err := env.store.GetUser(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.NotContains(t, user.PasswordHash, "correct horse battery")
	assert.True(t, auth.VerifyPassword(user.PasswordHash, "correct horse battery"))
	assert.False(t, auth.VerifyPassword(user.PasswordHash, "correct horse batter"))
	require.NotNil(t, user.RefreshTokenHash)
	assert.Equal(t, auth.HashToken(resp.RefreshToken), *user.RefreshTokenHash)
}

func TestAuthService_Register_SamePasswordDifferentHashes(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a := env.register(t, "a@example.com")
	b := env.register(t, "b@example.com")

	userA, err := env.store.GetUser(ctx, a.User.ID)
	require.NoError(t, err)
	userB, err := env.store.GetUser(ctx, b.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, userA.PasswordHash, userB.PasswordHash)
}

func TestAuthService_Register_DuplicateEmailIgnoresCase(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "Reader@Example.com")

	_, err := env.auth.Register(context.Background(), RegisterRequest{
		Email:    "reader@example.COM",
		Name:     "Someone Else",
		Password: "another password",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"missing email", RegisterRequest{Name: "A", Password: "password123"}, "email"},
		{"malformed email", RegisterRequest{Email: "nope", Name: "A", Password: "password123"}, "email"},
		{"blank name", RegisterRequest{Email: "a@example.com", Name: "   ", Password: "password123"}, "name"},
		{"markup-only name", RegisterRequest{Email: "a@example.com", Name: "<i></i>", Password: "password123"}, "name"},
		{"short password", RegisterRequest{Email: "a@example.com", Name: "A", Password: "short"}, "password"},
		{"long password", RegisterRequest{Email: "a@example.com", Name: "A", Password: strings.Repeat("x", 1025)}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Contains(t, domainErr.Details, tt.field)
		})
	}
}

func TestAuthService_Login_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	env := setupTestEnv(t)
	env.register(t, "reader@example.com")
	ctx := context.Background()

	_, unknownErr := env.auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correct horse battery"})
	_, wrongErr := env.auth.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "wrong password"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.ErrorIs(t, unknownErr, domainerrors.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthService_Login_EmailIgnoresCase(t *testing.T) {
	env := setupTestEnv(t)
	registered := env.register(t, "reader@example.com")

	resp, err := env.auth.Login(context.Background(), LoginRequest{Email: "READER@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
}

func TestAuthService_Login_SupersedesPreviousRefreshToken(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	login, err := env.auth.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, login.RefreshToken)

	_, err = env.auth.Refresh(ctx, registered.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	_, err = env.auth.Refresh(ctx, login.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	pair, err := env.auth.Refresh(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, pair.RefreshToken)

	identity, err := env.auth.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, identity.UserID)

	// The presented token is spent.
	_, err = env.auth.Refresh(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	user, err := env.store.GetUser(ctx, registered.User.ID)
	require.NoError(t, err)
	require.NotNil(t, user.RefreshTokenHash)
	assert.Equal(t, auth.HashToken(pair.RefreshToken), *user.RefreshTokenHash)
}

func TestAuthService_Refresh_Rejections(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	_, err := env.auth.Refresh(ctx, "")
	assert.ErrorIs(t, err, domainerrors.ErrMissingToken)

	_, err = env.auth.Refresh(ctx, "   ")
	assert.ErrorIs(t, err, domainerrors.ErrMissingToken)

	_, err = env.auth.Refresh(ctx, "v4.local.garbage")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	// An access token is not a refresh token.
	_, err = env.auth.Refresh(ctx, registered.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	env.clock.Advance(auth.DefaultRefreshTokenDuration + time.Minute)
	_, err = env.auth.Refresh(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAuthService_Refresh_UnknownSubject(t *testing.T) {
	env := setupTestEnv(t)

	pair, err := env.tokens.IssuePair("user-V1StGXR8_Z5jdHi6B-myT", "ghost@example.com")
	require.NoError(t, err)

	_, err = env.auth.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAuthService_Refresh_ConcurrentExactlyOneWins(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	const racers = 8
	var (
		mu      sync.Mutex
		winners []string
		losers  int
		wg      sync.WaitGroup
	)
	for range racers {
		wg.Go(func() {
			pair, err := env.auth.Refresh(ctx, registered.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, pair.RefreshToken)
				return
			}
			assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
			losers++
		})
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, racers-1, losers)

	user, err := env.store.GetUser(ctx, registered.User.ID)
	require.NoError(t, err)
	require.NotNil(t, user.RefreshTokenHash)
	assert.Equal(t, auth.HashToken(winners[0]), *user.RefreshTokenHash)

	_, err = env.auth.Refresh(ctx, winners[0])
	assert.NoError(t, err)
}

func TestAuthService_Logout_ClearsActiveToken(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	require.NoError(t, env.auth.Logout(ctx, registered.RefreshToken))

	user, err := env.store.GetUser(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.False(t, user.HasSession())

	_, err = env.auth.Refresh(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	// Logging out twice is fine.
	assert.NoError(t, env.auth.Logout(ctx, registered.RefreshToken))
}

func TestAuthService_Logout_ExpiredTokenSucceedsAndClearsNothing(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	reader := env.register(t, "reader@example.com")
	other := env.register(t, "other@example.com")

	env.clock.Advance(auth.DefaultRefreshTokenDuration + time.Hour)

	assert.NoError(t, env.auth.Logout(ctx, reader.RefreshToken))

	for _, resp := range []*AuthResponse{reader, other} {
		user, err := env.store.GetUser(ctx, resp.User.ID)
		require.NoError(t, err)
		require.NotNil(t, user.RefreshTokenHash)
		assert.Equal(t, auth.HashToken(resp.RefreshToken), *user.RefreshTokenHash)
	}
}

func TestAuthService_Logout_SupersededTokenKeepsCurrentSession(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	login, err := env.auth.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "correct horse battery"})
	require.NoError(t, err)

	assert.NoError(t, env.auth.Logout(ctx, registered.RefreshToken))
	assert.NoError(t, env.auth.Logout(ctx, ""))
	assert.NoError(t, env.auth.Logout(ctx, "not-a-token"))

	_, err = env.auth.Refresh(ctx, login.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_Authenticate(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	identity, err := env.auth.Authenticate(ctx, registered.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, identity.UserID)
	assert.Equal(t, "reader@example.com", identity.Email)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "abc.def"},
		{"refresh token", registered.RefreshToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Authenticate(ctx, tt.token)
			assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
		})
	}

	env.clock.Advance(auth.DefaultAccessTokenDuration + time.Second)
	_, err = env.auth.Authenticate(ctx, registered.AccessToken)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthService_Me(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	me, err := env.auth.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, registered.User, *me)

	_, err = env.auth.Me(ctx, "user-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "reader@example.com")

	err := env.auth.ChangePassword(ctx, registered.User.ID, ChangePasswordRequest{
		CurrentPassword: "wrong password",
		NewPassword:     "brand new password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	err = env.auth.ChangePassword(ctx, registered.User.ID, ChangePasswordRequest{
		CurrentPassword: "correct horse battery",
		NewPassword:     "short",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	require.NoError(t, env.auth.ChangePassword(ctx, registered.User.ID, ChangePasswordRequest{
		CurrentPassword: "correct horse battery",
		NewPassword:     "brand new password",
	}))

	// The existing session is gone.
	_, err = env.auth.Refresh(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "correct horse battery"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "brand new password"})
	assert.NoError(t, err)
}
