package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/sanitize"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

// ProvideSanitizer provides the shared text sanitizer.
func ProvideSanitizer(do.Injector) (*sanitize.Sanitizer, error) {
	return sanitize.New(), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sanitizer := do.MustInvoke[*sanitize.Sanitizer](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sanitizer, metricsHandle.Recorder, log.Logger), nil
}

// ProvideRatingAggregator provides the book rating aggregator.
func ProvideRatingAggregator(i do.Injector) (*service.RatingAggregator, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	metricsHandle := do.MustInvoke[*MetricsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRatingAggregator(storeHandle.Store, metricsHandle.Recorder, log.Logger), nil
}

// ProvideReviewService provides the review service.
func ProvideReviewService(i do.Injector) (*service.ReviewService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ratings := do.MustInvoke[*service.RatingAggregator](i)
	sanitizer := do.MustInvoke[*sanitize.Sanitizer](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReviewService(storeHandle.Store, ratings, sanitizer, log.Logger), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reviews := do.MustInvoke[*service.ReviewService](i)
	searchService := do.MustInvoke[*service.SearchService](i)
	sanitizer := do.MustInvoke[*sanitize.Sanitizer](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, reviews, searchService, sanitizer, log.Logger), nil
}
