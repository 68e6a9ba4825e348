package domain

import "math"

// Rating bounds for a single review.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Book is a catalog entry. AverageRating and TotalReviews are derived from the
// book's current reviews and are only written by rating recomputation.
type Book struct {
	Timestamps
	ISBN          string  `json:"isbn"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Genre         string  `json:"genre,omitempty"`
	Description   string  `json:"description,omitempty"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
	CreatedBy     string  `json:"created_by"`
}

// RatingStats is the aggregate a book carries for its reviews.
type RatingStats struct {
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
}

// ComputeRatingStats aggregates ratings into an average rounded to two decimal
// places (half away from zero) and a count. No ratings yields the zero value.
func ComputeRatingStats(ratings []float64) RatingStats {
	if len(ratings) == 0 {
		return RatingStats{}
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return RatingStats{
		AverageRating: RoundRating(sum / float64(len(ratings))),
		TotalReviews:  len(ratings),
	}
}

// RoundRating rounds to two decimal places, half away from zero.
func RoundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
