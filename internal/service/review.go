package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/sanitize"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// ReviewService manages reviews. Every successful write recomputes the
// parent book's rating.
type ReviewService struct {
	store     store.Store
	ratings   *RatingAggregator
	sanitizer *sanitize.Sanitizer
	logger    *slog.Logger
}

// NewReviewService creates a review service.
func NewReviewService(st store.Store, ratings *RatingAggregator, sanitizer *sanitize.Sanitizer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:     st,
		ratings:   ratings,
		sanitizer: sanitizer,
		logger:    orDiscard(logger),
	}
}

// CreateReviewRequest contains a new review.
type CreateReviewRequest struct {
	Rating  float64 `json:"rating" validate:"gte=1,lte=5"`
	Comment string  `json:"comment" validate:"required,max=1000"`
}

// UpdateReviewRequest changes a review. Nil fields are left as they are.
type UpdateReviewRequest struct {
	Rating  *float64 `json:"rating,omitempty"`
	Comment *string  `json:"comment,omitempty"`
}

// ReviewView is a review together with its author's public summary.
type ReviewView struct {
	*domain.Review
	User *domain.UserSummary `json:"user,omitempty"`
}

// Add creates the caller's review of a book. A user may review a book once.
func (s *ReviewService) Add(ctx context.Context, userID, bookID string, req CreateReviewRequest) (*ReviewView, error) {
	req.Comment = s.sanitizer.Text(req.Comment)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if !id.HasPrefix(bookID, id.PrefixBook) {
		return nil, errBookNotFound
	}

	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	reviewID, err := id.Generate(id.PrefixReview)
	if err != nil {
		return nil, fmt.Errorf("generate review ID: %w", err)
	}

	review := &domain.Review{
		Timestamps: domain.Timestamps{ID: reviewID},
		BookID:     bookID,
		UserID:     userID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	review.InitTimestamps()

	if err := s.store.CreateReview(ctx, review); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.Conflict("you have already reviewed this book")
		case errors.Is(err, store.ErrNotFound):
			return nil, errBookNotFound
		default:
			return nil, fmt.Errorf("create review: %w", err)
		}
	}

	s.recompute(ctx, bookID)
	s.logger.Info("review added", "review_id", review.ID, "book_id", bookID, "user_id", userID)

	return s.view(ctx, review), nil
}

// Update changes the rating and/or comment of the caller's own review.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID string, req UpdateReviewRequest) (*ReviewView, error) {
	if req.Rating != nil && !domain.ValidRating(*req.Rating) {
		return nil, domainerrors.ValidationWithDetails("rating must be between 1 and 5",
			map[string]string{"rating": "must be between 1 and 5"})
	}
	if req.Comment != nil {
		comment := s.sanitizer.Text(*req.Comment)
		switch {
		case comment == "":
			return nil, domainerrors.ValidationWithDetails("comment cannot be empty",
				map[string]string{"comment": "is required"})
		case len([]rune(comment)) > 1000:
			return nil, domainerrors.ValidationWithDetails("comment must not exceed 1000 characters",
				map[string]string{"comment": "must not exceed 1000 characters"})
		}
		req.Comment = &comment
	}

	review, err := s.ownedReview(ctx, userID, reviewID, "update")
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}
	review.Touch()

	if err := s.store.UpdateReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errReviewNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.recompute(ctx, review.BookID)
	s.logger.Info("review updated", "review_id", review.ID, "user_id", userID)

	return s.view(ctx, review), nil
}

// Delete removes the caller's own review.
func (s *ReviewService) Delete(ctx context.Context, userID, reviewID string) error {
	review, err := s.ownedReview(ctx, userID, reviewID, "delete")
	if err != nil {
		return err
	}

	if err := s.store.DeleteReview(ctx, review.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}

	s.recompute(ctx, review.BookID)
	s.logger.Info("review deleted", "review_id", review.ID, "user_id", userID)
	return nil
}

// ListForBook returns one page of a book's reviews, newest first.
func (s *ReviewService) ListForBook(ctx context.Context, bookID string, page, limit int) (*store.Paginated[*ReviewView], error) {
	if !id.HasPrefix(bookID, id.PrefixBook) {
		return nil, errBookNotFound
	}
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return s.pageForBook(ctx, bookID, store.NewPage(page, limit, store.DefaultReviewLimit))
}

// pageForBook lists reviews without checking that the book exists.
func (s *ReviewService) pageForBook(ctx context.Context, bookID string, p store.Page) (*store.Paginated[*ReviewView], error) {
	reviews, total, err := s.store.ListReviewsByBook(ctx, bookID, p)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	views, err := s.views(ctx, reviews)
	if err != nil {
		return nil, err
	}

	result := store.NewPaginated(views, p, total)
	return &result, nil
}

// ownedReview loads a review and checks that userID may mutate it.
func (s *ReviewService) ownedReview(ctx context.Context, userID, reviewID, action string) (*domain.Review, error) {
	if !id.HasPrefix(reviewID, id.PrefixReview) {
		return nil, errReviewNotFound
	}

	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	if !review.IsOwnedBy(userID) {
		s.logger.Warn("review ownership check failed",
			"review_id", reviewID,
			"user_id", userID,
			"action", action,
		)
		return nil, domainerrors.Forbidden("you cannot " + action + " this review")
	}
	return review, nil
}

// recompute refreshes the parent book's rating. The review write has already
// succeeded, so a failure here is logged rather than returned.
func (s *ReviewService) recompute(ctx context.Context, bookID string) {
	if err := s.ratings.Recompute(ctx, bookID); err != nil {
		s.logger.Error("failed to recompute book rating", "book_id", bookID, "error", err)
	}
}

func (s *ReviewService) view(ctx context.Context, review *domain.Review) *ReviewView {
	views, err := s.views(ctx, []*domain.Review{review})
	if err != nil {
		s.logger.Warn("failed to load review author", "review_id", review.ID, "error", err)
		return &ReviewView{Review: review}
	}
	return views[0]
}

func (s *ReviewService) views(ctx context.Context, reviews []*domain.Review) ([]*ReviewView, error) {
	userIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		userIDs = append(userIDs, r.UserID)
	}

	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load review authors: %w", err)
	}

	views := make([]*ReviewView, 0, len(reviews))
	for _, r := range reviews {
		view := &ReviewView{Review: r}
		if u, ok := users[r.UserID]; ok {
			summary := u.Summary()
			view.User = &summary
		}
		views = append(views, view)
	}
	return views, nil
}
