// Package di provides dependency injection configuration for the Shelfwise server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/di/providers"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/sanitize"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command-line arguments without the program name.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig(args))
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideSigningKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideAuthRateLimiter)

	// Business services
	do.Provide(injector, providers.ProvideSanitizer)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideRatingAggregator)
	do.Provide(injector, providers.ProvideReviewService)
	do.Provide(injector, providers.ProvideBookService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes every service in dependency order and starts the
// HTTP server. The signing key is resolved before storage is opened so a
// missing key fails fast.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[providers.SigningKey](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.SearchService](injector); err != nil {
		return err
	}
	if err := providers.EnsureSearchIndex(injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*sanitize.Sanitizer](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.BookService](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}
