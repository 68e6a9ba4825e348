// Package id generates and checks the prefixed identifiers used for Shelfwise entities.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes.
const (
	PrefixUser   = "user"
	PrefixBook   = "book"
	PrefixReview = "review"
)

const (
	nanoidLength   = 21
	nanoidAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generate creates a prefixed unique ID using NanoID, e.g. "book-V1StGXR8_Z5jdHi6B-myT".
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// HasPrefix reports whether id looks like an identifier generated with prefix.
// It is a cheap shape check for path parameters, not a lookup.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || len(rest) != nanoidLength {
		return false
	}
	for _, r := range rest {
		if !strings.ContainsRune(nanoidAlphabet, r) {
			return false
		}
	}
	return true
}
