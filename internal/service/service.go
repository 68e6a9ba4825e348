// Package service implements Shelfwise business logic on top of the store:
// accounts and sessions, the book catalog, reviews and rating aggregation.
package service

import (
	"io"
	"log/slog"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// validate is the shared validator for request structs.
var validate = validation.New()

// Shared not-found errors, so every path reports a missing entity the same way.
var (
	errBookNotFound   = domainerrors.NotFound("book not found")
	errReviewNotFound = domainerrors.NotFound("review not found")
	errUserNotFound   = domainerrors.NotFound("user not found")
)

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
