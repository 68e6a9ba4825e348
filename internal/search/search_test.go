package search

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	idx, err := NewSearchIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testDoc(id, title, author, isbn string, offsetMinutes int) *BookDocument {
	b := &domain.Book{
		Timestamps: domain.Timestamps{
			ID:        id,
			CreatedAt: baseTime.Add(time.Duration(offsetMinutes) * time.Minute),
		},
		Title:  title,
		Author: author,
		ISBN:   isbn,
		Genre:  "Fiction",
	}
	return NewBookDocument(b)
}

func seedCatalog(t *testing.T, idx *SearchIndex) {
	t.Helper()
	require.NoError(t, idx.IndexBooks([]*BookDocument{
		testDoc("b1", "The Hobbit", "J.R.R. Tolkien", "9780547928227", 1),
		testDoc("b2", "Dune", "Frank Herbert", "9780441172719", 2),
		testDoc("b3", "The Silmarillion", "J.R.R. Tolkien", "9780618391110", 3),
		testDoc("b4", "100% Pure (Vol. 1)", "Anon", "9781234567897", 4),
	}))
}

func TestSearchBooks_CaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	seedCatalog(t, idx)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"title fragment", "HOBB", []string{"b1"}},
		{"author matches newest first", "tolkien", []string{"b3", "b1"}},
		{"isbn fragment", "0441172", []string{"b2"}},
		{"phrase with space", "the s", []string{"b3"}},
		{"regexp metacharacters are literal", "(vol. 1)", []string{"b4"}},
		{"percent is literal", "100%", []string{"b4"}},
		{"no match", "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, total, err := idx.SearchBooks(ctx, tt.query, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, len(tt.want), total)
		})
	}
}

func TestSearchBooks_GenreIsNotSearched(t *testing.T) {
	idx := setupTestIndex(t)
	seedCatalog(t, idx)

	ids, total, err := idx.SearchBooks(context.Background(), "fiction", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, total)
}

func TestSearchBooks_Paginates(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	seedCatalog(t, idx)

	ids, total, err := idx.SearchBooks(ctx, "978", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, []string{"b4", "b3"}, ids)

	ids, total, err = idx.SearchBooks(ctx, "978", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, []string{"b2", "b1"}, ids)
}

func TestSearchBooks_PastLastPage(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	seedCatalog(t, idx)

	for _, from := range []int{4, 1000, math.MaxInt - 50} {
		ids, total, err := idx.SearchBooks(ctx, "978", from, 50)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		assert.Empty(t, ids)
	}
}

func TestIndexBook_ReplacesAndDeletes(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)
	seedCatalog(t, idx)

	require.NoError(t, idx.IndexBook(testDoc("b2", "Children of Dune", "Frank Herbert", "9780441172719", 2)))
	ids, _, err := idx.SearchBooks(ctx, "children", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, ids)

	require.NoError(t, idx.DeleteBook("b2"))
	require.NoError(t, idx.DeleteBook("missing"))

	ids, _, err = idx.SearchBooks(ctx, "herbert", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestRebuild_EmptiesIndex(t *testing.T) {
	idx := setupTestIndex(t)
	seedCatalog(t, idx)

	require.NoError(t, idx.Rebuild())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewSearchIndex_ReopensAndHonoursVersion(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	seedCatalog(t, idx)
	require.NoError(t, idx.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
	require.NoError(t, reopened.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.version"), []byte("0"), 0o600))

	recreated, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = recreated.Close() })
	count, err = recreated.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewSearchIndex_InMemory(t *testing.T) {
	idx, err := NewSearchIndex(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.IndexBook(testDoc("b1", "Dune", "Frank Herbert", "9780441172719", 0)))
	ids, total, err := idx.SearchBooks(context.Background(), "dune", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"b1"}, ids)
}
