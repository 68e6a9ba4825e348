package domain

// Review is one user's rating and comment for one book.
// A user holds at most one review per book.
type Review struct {
	Timestamps
	BookID  string  `json:"book_id"`
	UserID  string  `json:"user_id"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

// IsOwnedBy reports whether userID may mutate the review.
func (r *Review) IsOwnedBy(userID string) bool {
	return userID != "" && r.UserID == userID
}

// ValidRating reports whether v lies within the accepted rating range.
func ValidRating(v float64) bool {
	return v >= MinRating && v <= MaxRating
}
