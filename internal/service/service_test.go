package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/sanitize"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/badgerdb"
)

// cheapHashParams keep registration fast in tests.
var cheapHashParams = auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// testClock is a settable time source for the token service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store   store.Store
	index   *search.SearchIndex
	clock   *testClock
	tokens  *auth.TokenService
	auth    *AuthService
	ratings *RatingAggregator
	search  *SearchService
	reviews *ReviewService
	books   *BookService
}

// setupTestEnv wires every service over a Badger store in a temp directory
// and an in-memory search index.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := badgerdb.New(filepath.Join(t.TempDir(), "db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	clock := &testClock{now: time.Now()}
	key, err := auth.GenerateKeyHex()
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, auth.DefaultAccessTokenDuration, auth.DefaultRefreshTokenDuration, auth.WithClock(clock.Now))
	require.NoError(t, err)

	sanitizer := sanitize.New()
	ratings := NewRatingAggregator(st, nil, nil)
	searchSvc := NewSearchService(index, st, nil)
	reviews := NewReviewService(st, ratings, sanitizer, nil)

	return &testEnv{
		store:   st,
		index:   index,
		clock:   clock,
		tokens:  tokens,
		auth:    NewAuthService(st, tokens, sanitizer, nil, nil, WithHashParams(cheapHashParams)),
		ratings: ratings,
		search:  searchSvc,
		reviews: reviews,
		books:   NewBookService(st, reviews, searchSvc, sanitizer, nil),
	}
}

func (e *testEnv) register(t *testing.T, email string) *AuthResponse {
	t.Helper()

	resp, err := e.auth.Register(context.Background(), RegisterRequest{
		Email:    email,
		Name:     "Reader " + email,
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) addBook(t *testing.T, userID string, n int, title, author string) *domain.Book {
	t.Helper()

	book, err := e.books.Add(context.Background(), userID, CreateBookRequest{
		ISBN:   isbn(n),
		Title:  title,
		Author: author,
		Genre:  "Fiction",
	})
	require.NoError(t, err)
	return book
}

func (e *testEnv) addReview(t *testing.T, userID, bookID string, rating float64) *ReviewView {
	t.Helper()

	review, err := e.reviews.Add(context.Background(), userID, bookID, CreateReviewRequest{
		Rating:  rating,
		Comment: fmt.Sprintf("rated %.1f", rating),
	})
	require.NoError(t, err)
	return review
}

func (e *testEnv) getBook(t *testing.T, bookID string) *domain.Book {
	t.Helper()

	book, err := e.store.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	return book
}

func isbn(n int) string {
	return fmt.Sprintf("978%010d", n)
}
