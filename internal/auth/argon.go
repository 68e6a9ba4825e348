package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// MaxPasswordLength bounds the input to the hashing step so huge bodies cannot pin CPU and memory.
const MaxPasswordLength = 1024

// HashParams are the argon2id cost parameters recorded in every encoded hash.
type HashParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams are the parameters used for new credentials.
var DefaultHashParams = HashParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// ErrPasswordTooLong is returned when a password exceeds MaxPasswordLength.
var ErrPasswordTooLong = errors.New("password exceeds maximum length")

// HashPassword hashes password with DefaultHashParams and a fresh random salt,
// so hashing the same plaintext twice yields different encodings.
func HashPassword(password string) (string, error) {
	return HashPasswordWith(password, DefaultHashParams)
}

// HashPasswordWith hashes password with explicit parameters.
// The result has the form $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>.
func HashPasswordWith(password string, p HashParams) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// Malformed hashes simply fail to verify; the reason is not surfaced to callers.
func VerifyPassword(encodedHash, password string) bool {
	if password == "" || len(password) > MaxPasswordLength {
		return false
	}

	salt, want, p, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(want, got) == 1
}

// NeedsRehash reports whether an encoded hash was produced with parameters
// other than DefaultHashParams.
func NeedsRehash(encodedHash string) bool {
	_, _, p, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}
	return p.Memory != DefaultHashParams.Memory ||
		p.Iterations != DefaultHashParams.Iterations ||
		p.Parallelism != DefaultHashParams.Parallelism
}

func decodeHash(encodedHash string) (salt, key []byte, p HashParams, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, p, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, p, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, p, fmt.Errorf("incompatible version: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, p, fmt.Errorf("invalid parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, p, fmt.Errorf("invalid salt encoding: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, p, fmt.Errorf("invalid hash encoding: %w", err)
	}
	if len(key) == 0 {
		return nil, nil, p, errors.New("empty hash")
	}

	//nolint:gosec // key length comes from our own encoder and is small
	p.SaltLength = uint32(len(salt))
	//nolint:gosec // see above
	p.KeyLength = uint32(len(key))

	return salt, key, p, nil
}
