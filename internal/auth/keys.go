// Package auth provides credential hashing and token issuance for Shelfwise.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// PASETO v4 requires a 256-bit (32-byte) symmetric key.
	keyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	keyHexLength = 64
)

// ErrSigningKeyMissing is returned when neither an inline key nor a key file is configured.
var ErrSigningKeyMissing = errors.New("auth signing key is not configured")

// LoadSigningKey resolves the token signing key once at startup.
// An inline hex key wins over keyFile. Absence of both is an error; a key
// is never generated here.
func LoadSigningKey(keyHex, keyFile string) (string, error) {
	keyHex = strings.TrimSpace(keyHex)
	if keyHex == "" && keyFile != "" {
		//#nosec G304 -- key file path comes from operator configuration
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return "", fmt.Errorf("read auth key file: %w", err)
		}
		keyHex = strings.TrimSpace(string(data))
	}
	if keyHex == "" {
		return "", ErrSigningKeyMissing
	}
	if _, err := decodeKeyHex(keyHex); err != nil {
		return "", err
	}
	return keyHex, nil
}

// GenerateKeyHex creates a new random signing key encoded as hex.
func GenerateKeyHex() (string, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate auth key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func decodeKeyHex(keyHex string) ([]byte, error) {
	if len(keyHex) != keyHexLength {
		return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid auth key format: not valid hex: %w", err)
	}
	return key, nil
}
