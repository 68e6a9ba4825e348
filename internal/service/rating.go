package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// RatingAggregator keeps a book's AverageRating and TotalReviews in line with
// its current reviews. It is the only writer of those fields.
type RatingAggregator struct {
	store   store.Store
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewRatingAggregator creates a rating aggregator.
func NewRatingAggregator(st store.Store, recorder metrics.Recorder, logger *slog.Logger) *RatingAggregator {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &RatingAggregator{
		store:   st,
		metrics: recorder,
		logger:  orDiscard(logger),
	}
}

// Recompute reloads every rating of the book and writes the rounded mean and
// count back. A book that no longer exists is skipped without error.
// The read and the write are separate steps; concurrent recomputes of the same
// book settle on whichever writes last.
func (a *RatingAggregator) Recompute(ctx context.Context, bookID string) error {
	ratings, err := a.store.RatingsForBook(ctx, bookID)
	if err != nil {
		a.metrics.RecordRatingRecompute(metrics.OutcomeFailure)
		return fmt.Errorf("load ratings: %w", err)
	}

	stats := domain.ComputeRatingStats(ratings)

	if err := a.store.SetBookRating(ctx, bookID, stats); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.metrics.RecordRatingRecompute(metrics.OutcomeSkipped)
			a.logger.Debug("skipping rating recompute for deleted book", "book_id", bookID)
			return nil
		}
		a.metrics.RecordRatingRecompute(metrics.OutcomeFailure)
		return fmt.Errorf("set book rating: %w", err)
	}

	a.metrics.RecordRatingRecompute(metrics.OutcomeSuccess)
	a.logger.Debug("recomputed book rating",
		"book_id", bookID,
		"average_rating", stats.AverageRating,
		"total_reviews", stats.TotalReviews,
	)
	return nil
}
