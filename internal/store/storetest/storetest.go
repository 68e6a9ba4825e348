// Package storetest is a behavioral test suite every store.Store implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Factory opens a fresh, empty store for one test. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Store

// Run executes the full contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore) })
	t.Run("RefreshTokenRotation", func(t *testing.T) { testRefreshTokenRotation(t, newStore) })
	t.Run("Books", func(t *testing.T) { testBooks(t, newStore) })
	t.Run("BookListing", func(t *testing.T) { testBookListing(t, newStore) })
	t.Run("Reviews", func(t *testing.T) { testReviews(t, newStore) })
	t.Run("DeleteBookCascades", func(t *testing.T) { testDeleteBookCascades(t, newStore) })
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// NewUser builds an unsaved user with the given email.
func NewUser(email string) *domain.User {
	u := &domain.User{
		Email:        email,
		Name:         "Reader",
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
	}
	u.ID = id.MustGenerate(id.PrefixUser)
	u.InitTimestamps()
	return u
}

// NewBook builds an unsaved book created offset minutes after a fixed base time.
func NewBook(isbn, title, author string, offset int) *domain.Book {
	b := &domain.Book{ISBN: isbn, Title: title, Author: author}
	b.ID = id.MustGenerate(id.PrefixBook)
	b.CreatedAt = baseTime.Add(time.Duration(offset) * time.Minute)
	b.UpdatedAt = b.CreatedAt
	return b
}

// NewReview builds an unsaved review created offset minutes after a fixed base time.
func NewReview(bookID, userID string, rating float64, offset int) *domain.Review {
	r := &domain.Review{BookID: bookID, UserID: userID, Rating: rating, Comment: "Worth reading."}
	r.ID = id.MustGenerate(id.PrefixReview)
	r.CreatedAt = baseTime.Add(time.Duration(offset) * time.Minute)
	r.UpdatedAt = r.CreatedAt
	return r
}

func testUsers(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	user := NewUser("Reader@Example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	t.Run("duplicate email differing only in case", func(t *testing.T) {
		err := s.CreateUser(ctx, NewUser("reader@example.COM"))
		assert.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		got, err := s.GetUserByEmail(ctx, "READER@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "Reader@Example.com", got.Email)
		assert.Equal(t, user.PasswordHash, got.PasswordHash)
		assert.Nil(t, got.RefreshTokenHash)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.GetUser(ctx, "user-missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("batch lookup skips unknown ids", func(t *testing.T) {
		other := NewUser("other@example.com")
		require.NoError(t, s.CreateUser(ctx, other))

		got, err := s.GetUsersByIDs(ctx, []string{user.ID, "user-missing", other.ID, user.ID})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "other@example.com", got[other.ID].Email)
	})

	t.Run("update password clears session", func(t *testing.T) {
		require.NoError(t, s.RecordLogin(ctx, user.ID, "hash-1", time.Now()))
		require.NoError(t, s.UpdatePassword(ctx, user.ID, "new-hash"))

		got, err := s.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)
		assert.Nil(t, got.RefreshTokenHash)

		assert.ErrorIs(t, s.UpdatePassword(ctx, "user-missing", "x"), store.ErrNotFound)
	})
}

func testRefreshTokenRotation(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	user := NewUser("rotate@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	loginAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.RecordLogin(ctx, user.ID, "hash-1", loginAt))

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RefreshTokenHash)
	assert.Equal(t, "hash-1", *got.RefreshTokenHash)
	assert.True(t, loginAt.Equal(got.LastLoginAt))

	t.Run("swap with current hash", func(t *testing.T) {
		next := "hash-2"
		require.NoError(t, s.SwapRefreshToken(ctx, user.ID, "hash-1", &next))
	})

	t.Run("swap with superseded hash", func(t *testing.T) {
		next := "hash-3"
		err := s.SwapRefreshToken(ctx, user.ID, "hash-1", &next)
		assert.ErrorIs(t, err, store.ErrTokenMismatch)

		got, err := s.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash-2", *got.RefreshTokenHash)
	})

	t.Run("login overwrites unconditionally", func(t *testing.T) {
		require.NoError(t, s.RecordLogin(ctx, user.ID, "hash-login", time.Now()))
		next := "hash-x"
		assert.ErrorIs(t, s.SwapRefreshToken(ctx, user.ID, "hash-2", &next), store.ErrTokenMismatch)
	})

	t.Run("clear then swap fails", func(t *testing.T) {
		require.NoError(t, s.SwapRefreshToken(ctx, user.ID, "hash-login", nil))

		got, err := s.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, got.RefreshTokenHash)

		next := "hash-y"
		assert.ErrorIs(t, s.SwapRefreshToken(ctx, user.ID, "hash-login", &next), store.ErrTokenMismatch)
	})

	t.Run("unknown user", func(t *testing.T) {
		next := "hash-z"
		assert.ErrorIs(t, s.SwapRefreshToken(ctx, "user-missing", "hash", &next), store.ErrNotFound)
		assert.ErrorIs(t, s.RecordLogin(ctx, "user-missing", "hash", time.Now()), store.ErrNotFound)
	})

	t.Run("concurrent swaps have one winner", func(t *testing.T) {
		require.NoError(t, s.RecordLogin(ctx, user.ID, "race-start", time.Now()))

		const racers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			winners  []string
			failures int
		)
		for i := range racers {
			wg.Go(func() {
				next := fmt.Sprintf("race-%d", i)
				err := s.SwapRefreshToken(ctx, user.ID, "race-start", &next)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					winners = append(winners, next)
					return
				}
				assert.ErrorIs(t, err, store.ErrTokenMismatch)
				failures++
			})
		}
		wg.Wait()

		require.Len(t, winners, 1)
		assert.Equal(t, racers-1, failures)

		got, err := s.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, winners[0], *got.RefreshTokenHash)
	})
}

func testBooks(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	book := NewBook("9780132350884", "Clean Code", "Robert C. Martin", 0)
	book.Genre = "Software"
	book.Description = "A handbook of agile software craftsmanship."
	book.CreatedBy = "user-1"
	require.NoError(t, s.CreateBook(ctx, book))

	t.Run("duplicate isbn", func(t *testing.T) {
		err := s.CreateBook(ctx, NewBook("9780132350884", "Other", "Someone", 1))
		assert.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("get", func(t *testing.T) {
		got, err := s.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, book.ISBN, got.ISBN)
		assert.Equal(t, book.Title, got.Title)
		assert.Equal(t, book.Genre, got.Genre)
		assert.Equal(t, book.Description, got.Description)
		assert.Equal(t, "user-1", got.CreatedBy)
		assert.True(t, book.CreatedAt.Equal(got.CreatedAt))

		_, err = s.GetBook(ctx, "book-missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update preserves rating fields", func(t *testing.T) {
		require.NoError(t, s.SetBookRating(ctx, book.ID, domain.RatingStats{AverageRating: 4.5, TotalReviews: 2}))

		edit := *book
		edit.Title = "Clean Code (2nd printing)"
		edit.AverageRating = 0
		edit.TotalReviews = 0
		edit.Touch()
		require.NoError(t, s.UpdateBook(ctx, &edit))

		got, err := s.GetBook(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, "Clean Code (2nd printing)", got.Title)
		assert.InDelta(t, 4.5, got.AverageRating, 1e-9)
		assert.Equal(t, 2, got.TotalReviews)
	})

	t.Run("update to taken isbn", func(t *testing.T) {
		other := NewBook("9780201633610", "Design Patterns", "Gamma et al.", 2)
		require.NoError(t, s.CreateBook(ctx, other))

		edit := *other
		edit.ISBN = book.ISBN
		assert.ErrorIs(t, s.UpdateBook(ctx, &edit), store.ErrAlreadyExists)

		edit.ISBN = "9780201633611"
		require.NoError(t, s.UpdateBook(ctx, &edit))

		// The old ISBN is free again.
		require.NoError(t, s.CreateBook(ctx, NewBook("9780201633610", "Reissue", "Gamma et al.", 3)))
	})

	t.Run("set rating on missing book", func(t *testing.T) {
		err := s.SetBookRating(ctx, "book-missing", domain.RatingStats{AverageRating: 1, TotalReviews: 1})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("batch lookup keeps order", func(t *testing.T) {
		second := NewBook("9780000000001", "Second", "Author", 10)
		require.NoError(t, s.CreateBook(ctx, second))

		got, err := s.GetBooksByIDs(ctx, []string{second.ID, "book-missing", book.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second.ID, got[0].ID)
		assert.Equal(t, book.ID, got[1].ID)
	})

	t.Run("count", func(t *testing.T) {
		n, err := s.CountBooks(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteBook(ctx, "book-missing"), store.ErrNotFound)
	})
}

func testBookListing(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	books := []*domain.Book{
		NewBook("9780000000001", "The Hobbit", "J.R.R. Tolkien", 0),
		NewBook("9780000000002", "The Silmarillion", "J.R.R. Tolkien", 1),
		NewBook("9780000000003", "Dune", "Frank Herbert", 2),
		NewBook("9780000000004", "Children of Dune", "Frank Herbert", 3),
		NewBook("9781111111115", "Neuromancer", "William Gibson", 4),
	}
	books[0].Genre = "Fantasy"
	books[1].Genre = "Fantasy"
	books[2].Genre = "Science Fiction"
	books[3].Genre = "Science Fiction"
	books[4].Genre = "Cyberpunk"
	for _, b := range books {
		require.NoError(t, s.CreateBook(ctx, b))
	}

	titles := func(bs []*domain.Book) []string {
		out := make([]string, len(bs))
		for i, b := range bs {
			out[i] = b.Title
		}
		return out
	}

	t.Run("newest first", func(t *testing.T) {
		got, total, err := s.ListBooks(ctx, store.BookQuery{}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Equal(t, []string{"Neuromancer", "Children of Dune", "Dune", "The Silmarillion", "The Hobbit"}, titles(got))
	})

	t.Run("pagination", func(t *testing.T) {
		got, total, err := s.ListBooks(ctx, store.BookQuery{}, store.Page{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Equal(t, []string{"Dune", "The Silmarillion"}, titles(got))

		got, total, err = s.ListBooks(ctx, store.BookQuery{}, store.Page{Page: 4, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, got)
	})

	t.Run("author filter is case-insensitive substring", func(t *testing.T) {
		got, total, err := s.ListBooks(ctx, store.BookQuery{Author: "tolk"}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, []string{"The Silmarillion", "The Hobbit"}, titles(got))
	})

	t.Run("genre and author combine", func(t *testing.T) {
		got, _, err := s.ListBooks(ctx, store.BookQuery{Author: "herbert", Genre: "SCIENCE"}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Children of Dune", "Dune"}, titles(got))

		got, total, err := s.ListBooks(ctx, store.BookQuery{Author: "herbert", Genre: "fantasy"}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, got)
	})

	t.Run("text matches title author or isbn", func(t *testing.T) {
		got, _, err := s.ListBooks(ctx, store.BookQuery{Text: "dUnE"}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Children of Dune", "Dune"}, titles(got))

		got, _, err = s.ListBooks(ctx, store.BookQuery{Text: "gibson"}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Neuromancer"}, titles(got))

		got, _, err = s.ListBooks(ctx, store.BookQuery{Text: "1111111"}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"Neuromancer"}, titles(got))
	})

	t.Run("metacharacters are literal", func(t *testing.T) {
		got, total, err := s.ListBooks(ctx, store.BookQuery{Text: ".*"}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, got)

		got, _, err = s.ListBooks(ctx, store.BookQuery{Text: "j.r.r."}, store.Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func testReviews(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	alice := NewUser("alice@example.com")
	bob := NewUser("bob@example.com")
	carol := NewUser("carol@example.com")
	for _, u := range []*domain.User{alice, bob, carol} {
		require.NoError(t, s.CreateUser(ctx, u))
	}
	book := NewBook("9780000000001", "The Hobbit", "J.R.R. Tolkien", 0)
	require.NoError(t, s.CreateBook(ctx, book))
	other := NewBook("9780000000002", "Dune", "Frank Herbert", 1)
	require.NoError(t, s.CreateBook(ctx, other))

	r1 := NewReview(book.ID, alice.ID, 5, 0)
	r2 := NewReview(book.ID, bob.ID, 3, 1)
	r3 := NewReview(book.ID, carol.ID, 4.5, 2)
	r4 := NewReview(other.ID, alice.ID, 2, 3)
	for _, r := range []*domain.Review{r1, r2, r3, r4} {
		require.NoError(t, s.CreateReview(ctx, r))
	}

	t.Run("one review per user and book", func(t *testing.T) {
		err := s.CreateReview(ctx, NewReview(book.ID, alice.ID, 1, 9))
		assert.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("create for missing book", func(t *testing.T) {
		orphan := NewReview("book-missing", bob.ID, 4, 9)
		assert.ErrorIs(t, s.CreateReview(ctx, orphan), store.ErrNotFound)

		_, err := s.GetReview(ctx, orphan.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("get", func(t *testing.T) {
		got, err := s.GetReview(ctx, r3.ID)
		require.NoError(t, err)
		assert.Equal(t, carol.ID, got.UserID)
		assert.Equal(t, book.ID, got.BookID)
		assert.InDelta(t, 4.5, got.Rating, 1e-9)
		assert.Equal(t, "Worth reading.", got.Comment)

		_, err = s.GetReview(ctx, "review-missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list by book newest first", func(t *testing.T) {
		got, total, err := s.ListReviewsByBook(ctx, book.ID, store.Page{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, got, 2)
		assert.Equal(t, r3.ID, got[0].ID)
		assert.Equal(t, r2.ID, got[1].ID)

		got, _, err = s.ListReviewsByBook(ctx, book.ID, store.Page{Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, r1.ID, got[0].ID)
	})

	t.Run("ratings for book", func(t *testing.T) {
		got, err := s.RatingsForBook(ctx, book.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []float64{5, 3, 4.5}, got)

		none, err := s.RatingsForBook(ctx, "book-missing")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update", func(t *testing.T) {
		edit := *r2
		edit.Rating = 4
		edit.Comment = "Better on a second read."
		edit.Touch()
		require.NoError(t, s.UpdateReview(ctx, &edit))

		got, err := s.GetReview(ctx, r2.ID)
		require.NoError(t, err)
		assert.InDelta(t, 4, got.Rating, 1e-9)
		assert.Equal(t, "Better on a second read.", got.Comment)
		assert.Equal(t, bob.ID, got.UserID)

		missing := *r2
		missing.ID = "review-missing"
		assert.ErrorIs(t, s.UpdateReview(ctx, &missing), store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteReview(ctx, r1.ID))
		_, err := s.GetReview(ctx, r1.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.DeleteReview(ctx, r1.ID), store.ErrNotFound)

		// Alice may review the book again once her review is gone.
		require.NoError(t, s.CreateReview(ctx, NewReview(book.ID, alice.ID, 2, 10)))
	})
}

func testDeleteBookCascades(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)

	alice := NewUser("alice@example.com")
	bob := NewUser("bob@example.com")
	require.NoError(t, s.CreateUser(ctx, alice))
	require.NoError(t, s.CreateUser(ctx, bob))

	doomed := NewBook("9780000000001", "Doomed", "Author", 0)
	kept := NewBook("9780000000002", "Kept", "Author", 1)
	require.NoError(t, s.CreateBook(ctx, doomed))
	require.NoError(t, s.CreateBook(ctx, kept))

	ra := NewReview(doomed.ID, alice.ID, 5, 0)
	rb := NewReview(doomed.ID, bob.ID, 1, 1)
	rk := NewReview(kept.ID, alice.ID, 3, 2)
	for _, r := range []*domain.Review{ra, rb, rk} {
		require.NoError(t, s.CreateReview(ctx, r))
	}

	require.NoError(t, s.DeleteBook(ctx, doomed.ID))

	_, err := s.GetBook(ctx, doomed.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	for _, r := range []*domain.Review{ra, rb} {
		_, err := s.GetReview(ctx, r.ID)
		assert.ErrorIs(t, err, store.ErrNotFound, "review %s should be gone", r.ID)
	}
	orphans, total, err := s.ListReviewsByBook(ctx, doomed.ID, store.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orphans)

	_, err = s.GetReview(ctx, rk.ID)
	require.NoError(t, err)

	// A review racing the delete finds the book gone and leaves nothing behind.
	late := NewReview(doomed.ID, bob.ID, 4, 3)
	assert.ErrorIs(t, s.CreateReview(ctx, late), store.ErrNotFound)
	ratings, err := s.RatingsForBook(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings)

	// The ISBN of the deleted book is free again.
	require.NoError(t, s.CreateBook(ctx, NewBook("9780000000001", "Doomed again", "Author", 5)))
}
