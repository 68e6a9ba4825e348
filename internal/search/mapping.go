package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Field names in the index.
const (
	fieldTitle     = "title"
	fieldAuthor    = "author"
	fieldISBN      = "isbn"
	fieldGenre     = "genre"
	fieldCreatedAt = "created_at"
)

// foldedKeyword indexes a whole field value as a single lowercased term, so a
// regexp over the term is a case-insensitive substring match on the value.
const foldedKeyword = "folded_keyword"

// buildIndexMapping creates the Bleve index mapping for book documents.
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(foldedKeyword, map[string]any{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = foldedKeyword

	docMapping := bleve.NewDocumentMapping()

	for _, name := range []string{fieldTitle, fieldAuthor, fieldISBN, fieldGenre} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = foldedKeyword
		fm.Store = false
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(name, fm)
	}

	createdAt := bleve.NewNumericFieldMapping()
	createdAt.IncludeInAll = false
	docMapping.AddFieldMappingsAt(fieldCreatedAt, createdAt)

	indexMapping.DefaultMapping = docMapping
	indexMapping.StoreDynamic = false
	indexMapping.IndexDynamic = false

	return indexMapping, nil
}
