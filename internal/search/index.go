package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on startup drops the index so it is rebuilt from the store.
const mappingVersion = "1"

// SearchIndex wraps a Bleve index with catalog operations.
// All methods are safe for concurrent use; Rebuild takes an exclusive lock.
type SearchIndex struct {
	index  bleve.Index
	path   string // empty for in-memory indexes
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Logger for operations (discarded if nil)
}

// NewSearchIndex creates or opens a search index. An index with an outdated
// mapping version or one that fails to open is removed and recreated empty.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.DataPath == "" {
		index, err := newIndex("")
		if err != nil {
			return nil, err
		}
		return &SearchIndex{index: index, logger: logger}, nil
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	var index bleve.Index
	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil || string(existing) != mappingVersion:
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
		default:
			opened, err := bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
			} else {
				index = opened
			}
		}
	}

	if index == nil {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		created, err := newIndex(indexPath)
		if err != nil {
			return nil, err
		}
		index = created
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o600); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

func newIndex(path string) (bleve.Index, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build mapping: %w", err)
	}
	var index bleve.Index
	if path == "" {
		index, err = bleve.NewMemOnly(indexMapping)
	} else {
		index, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return index, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds or replaces a book document.
func (s *SearchIndex) IndexBook(doc *BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexBooks indexes documents in batches of 500.
func (s *SearchIndex) IndexBooks(docs []*BookDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteBook removes a book document. Deleting an unknown ID is not an error.
func (s *SearchIndex) DeleteBook(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// SearchBooks returns the IDs of books whose title, author or ISBN contains
// text (case-insensitive, taken literally), newest first, plus the total hit count.
func (s *SearchIndex) SearchBooks(ctx context.Context, text string, from, size int) ([]string, int, error) {
	pattern := ".*" + regexp.QuoteMeta(strings.ToLower(text)) + ".*"

	var fields []query.Query
	for _, field := range []string{fieldTitle, fieldAuthor, fieldISBN} {
		q := bleve.NewRegexpQuery(pattern)
		q.SetField(field)
		fields = append(fields, q)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.index.DocCount()
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	// Past the last document only the total is needed.
	if from < 0 || uint64(from) >= docs {
		from, size = 0, 0
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(fields...), size, from, false)
	req.SortBy([]string{"-" + fieldCreatedAt, "-_id"})

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("search books: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, int(res.Total), nil
}

// Rebuild drops every document and recreates an empty index with the current mapping.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if s.path != "" {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
	}

	index, err := newIndex(s.path)
	if err != nil {
		return err
	}
	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
