package dto

import (
	"time"

	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Review is the public view of a review.
type Review struct {
	ID        string    `json:"id" doc:"Review ID"`
	BookID    string    `json:"book_id" doc:"Reviewed book"`
	UserID    string    `json:"user_id" doc:"Review author"`
	Rating    float64   `json:"rating" doc:"Rating from 1 to 5"`
	Comment   string    `json:"comment" doc:"Review text"`
	User      *User     `json:"user,omitempty" doc:"Author summary"`
	CreatedAt time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// NewReview maps a review view.
func NewReview(v *service.ReviewView) Review {
	r := Review{
		ID:        v.ID,
		BookID:    v.BookID,
		UserID:    v.UserID,
		Rating:    v.Rating,
		Comment:   v.Comment,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
	if v.User != nil {
		u := NewUser(*v.User)
		r.User = &u
	}
	return r
}

// NewReviewList maps a page of reviews.
func NewReviewList(p *store.Paginated[*service.ReviewView]) ListResponse[Review] {
	if p == nil {
		return ListResponse[Review]{Items: []Review{}}
	}
	return NewListResponse(p, NewReview)
}

// CreateReviewRequest is the request body for reviewing a book.
type CreateReviewRequest struct {
	Rating  float64 `json:"rating" doc:"Rating from 1 to 5"`
	Comment string  `json:"comment" maxLength:"5000" doc:"Review text (max 1000 characters after markup is removed)"`
}

// CreateReviewInput wraps the create request for huma.
type CreateReviewInput struct {
	IDParam
	Body CreateReviewRequest
}

// UpdateReviewRequest is a partial update; omitted fields keep their value.
type UpdateReviewRequest struct {
	Rating  *float64 `json:"rating,omitempty" doc:"Rating from 1 to 5"`
	Comment *string  `json:"comment,omitempty" maxLength:"5000" doc:"Review text"`
}

// UpdateReviewInput wraps the update request for huma.
type UpdateReviewInput struct {
	IDParam
	Body UpdateReviewRequest
}

// ListReviewsInput pages the reviews of a book.
type ListReviewsInput struct {
	IDParam
	PaginationParams
}

// ReviewOutput wraps a single review for huma.
type ReviewOutput struct {
	Body Review
}

// ReviewListOutput wraps a page of reviews for huma.
type ReviewListOutput struct {
	Body ListResponse[Review]
}
