package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRatingStats(t *testing.T) {
	tests := []struct {
		name    string
		ratings []float64
		want    RatingStats
	}{
		{"no reviews", nil, RatingStats{}},
		{"single review", []float64{5}, RatingStats{AverageRating: 5, TotalReviews: 1}},
		{"two reviews", []float64{5, 3}, RatingStats{AverageRating: 4, TotalReviews: 2}},
		{"repeating decimal", []float64{5, 4, 4}, RatingStats{AverageRating: 4.33, TotalReviews: 3}},
		{"fractional ratings", []float64{1.5, 2.5}, RatingStats{AverageRating: 2, TotalReviews: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRatingStats(tt.ratings)
			assert.Equal(t, tt.want.TotalReviews, got.TotalReviews)
			assert.InDelta(t, tt.want.AverageRating, got.AverageRating, 1e-9)
		})
	}
}

func TestRoundRating(t *testing.T) {
	assert.InDelta(t, 3.67, RoundRating(11.0/3.0), 1e-9)
	assert.InDelta(t, 1.0, RoundRating(1), 1e-9)
	assert.False(t, math.IsNaN(RoundRating(0)))
}

func TestValidRating(t *testing.T) {
	assert.True(t, ValidRating(1))
	assert.True(t, ValidRating(5))
	assert.True(t, ValidRating(3.5))
	assert.False(t, ValidRating(0.99))
	assert.False(t, ValidRating(5.01))
}

func TestReview_IsOwnedBy(t *testing.T) {
	r := &Review{UserID: "user-a"}

	assert.True(t, r.IsOwnedBy("user-a"))
	assert.False(t, r.IsOwnedBy("user-b"))
	assert.False(t, r.IsOwnedBy(""))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, NormalizeEmail("Reader@Example.com"), NormalizeEmail("reader@example.COM"))
	assert.Equal(t, "reader@example.com", NormalizeEmail("  reader@example.com "))
}

func TestUser_HasSession(t *testing.T) {
	u := &User{}
	assert.False(t, u.HasSession())

	hash := "abc"
	u.RefreshTokenHash = &hash
	assert.True(t, u.HasSession())
}
