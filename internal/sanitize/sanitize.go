// Package sanitize cleans user-supplied free text before it is validated and stored.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// markupPattern matches anything that looks like the start of an HTML tag or comment.
var markupPattern = regexp.MustCompile(`<[a-zA-Z!/]`)

// richTagPattern matches the formatting tags worth preserving as markdown.
var richTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote|pre|code)[\s>/]`)

// Sanitizer strips or converts markup in text fields. It is safe for concurrent use.
type Sanitizer struct {
	strict *bluemonday.Policy
	rich   *bluemonday.Policy
}

// New creates a Sanitizer.
func New() *Sanitizer {
	rich := bluemonday.NewPolicy()
	rich.AllowElements(
		"p", "br", "div", "span", "b", "i", "strong", "em",
		"ul", "ol", "li", "h1", "h2", "h3", "h4", "h5", "h6",
		"blockquote", "pre", "code",
	)
	rich.AllowAttrs("href").OnElements("a")
	rich.AllowURLSchemes("https", "http")
	rich.AllowRelativeURLs(false)

	return &Sanitizer{
		strict: bluemonday.StrictPolicy(),
		rich:   rich,
	}
}

// Text returns s with all markup removed, NFC-normalized and trimmed.
// Entities are decoded so plain text such as "Tom & Jerry" survives unchanged.
func (s *Sanitizer) Text(in string) string {
	out := in
	if markupPattern.MatchString(out) {
		out = html.UnescapeString(s.strict.Sanitize(out))
	}
	return strings.TrimSpace(norm.NFC.String(out))
}

// Description converts HTML descriptions (as pasted from publisher pages) to
// markdown after dropping unsafe elements. Plain text is only normalized.
func (s *Sanitizer) Description(in string) string {
	if !richTagPattern.MatchString(strings.ToLower(in)) {
		return s.Text(in)
	}

	markdown, err := htmltomarkdown.ConvertString(s.rich.Sanitize(in))
	if err != nil {
		return s.Text(in)
	}
	return strings.TrimSpace(norm.NFC.String(markdown))
}
