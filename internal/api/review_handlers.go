package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/api/dto"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createReview",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/reviews",
		Summary:       "Review book",
		Description:   "Adds the caller's review of a book. Each user may review a book once.",
		Tags:          []string{"Reviews"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookReviews",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/reviews",
		Summary:     "List reviews",
		Description: "Returns a book's reviews newest first",
		Tags:        []string{"Reviews"},
	}, s.handleListReviews)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReview",
		Method:      http.MethodPatch,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Update review",
		Description: "Updates the caller's own review",
		Tags:        []string{"Reviews"},
		Security:    bearerSecurity,
	}, s.handleUpdateReview)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteReview",
		Method:        http.MethodDelete,
		Path:          "/api/v1/reviews/{id}",
		Summary:       "Delete review",
		Description:   "Deletes the caller's own review",
		Tags:          []string{"Reviews"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteReview)
}

func (s *Server) handleCreateReview(ctx context.Context, input *dto.CreateReviewInput) (*dto.ReviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Review.Add(ctx, userID, input.ID, service.CreateReviewRequest{
		Rating:  input.Body.Rating,
		Comment: input.Body.Comment,
	})
	if err != nil {
		return nil, err
	}

	return &dto.ReviewOutput{Body: dto.NewReview(review)}, nil
}

func (s *Server) handleListReviews(ctx context.Context, input *dto.ListReviewsInput) (*dto.ReviewListOutput, error) {
	page, err := s.services.Review.ListForBook(ctx, input.ID, input.Page, input.Limit)
	if err != nil {
		return nil, err
	}

	return &dto.ReviewListOutput{Body: dto.NewReviewList(page)}, nil
}

func (s *Server) handleUpdateReview(ctx context.Context, input *dto.UpdateReviewInput) (*dto.ReviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Review.Update(ctx, userID, input.ID, service.UpdateReviewRequest{
		Rating:  input.Body.Rating,
		Comment: input.Body.Comment,
	})
	if err != nil {
		return nil, err
	}

	return &dto.ReviewOutput{Body: dto.NewReview(review)}, nil
}

func (s *Server) handleDeleteReview(ctx context.Context, input *dto.IDParam) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Review.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
