package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
)

// SigningKey is the hex-encoded token signing key.
type SigningKey string

// ProvideSigningKey loads the signing key. The server refuses to start
// without one.
func ProvideSigningKey(i do.Injector) (SigningKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadSigningKey(cfg.Auth.SigningKey, cfg.Auth.SigningKeyFile)
	if err != nil {
		return "", err
	}

	log.Info("Signing key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return SigningKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[SigningKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}
