package middleware

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Constants for API key hashing
const (
	iterationCount = 10000 // PBKDF2 iterations
	keyLength      = 32
	saltLength     = 16
)

// KeyVerifier checks an API key against a stored hash
type KeyVerifier interface {
	// Enabled reports whether a key is configured at all
	Enabled() bool
	VerifyKey(key string) bool
}

type pbkdf2KeyVerifier struct {
	hash []byte
	salt []byte
}

// NewKeyVerifier creates a verifier from the hex encoded hash and salt in the
// configuration. An empty hash disables verification.
func NewKeyVerifier(hashHex, saltHex string) (KeyVerifier, error) {
	if hashHex == "" {
		return &pbkdf2KeyVerifier{}, nil
	}

	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("invalid api key hash: %w", err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("invalid api key salt: %w", err)
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}
	return &pbkdf2KeyVerifier{hash: hash, salt: salt}, nil
}

func (v *pbkdf2KeyVerifier) Enabled() bool {
	return len(v.hash) > 0
}

func (v *pbkdf2KeyVerifier) VerifyKey(key string) bool {
	if !v.Enabled() || key == "" {
		return false
	}
	derived := pbkdf2.Key([]byte(key), v.salt, iterationCount, keyLength, sha256.New)
	// compare using constant time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare(derived, v.hash) == 1
}

// HashKey derives the hash and salt to store in the configuration for key
func HashKey(key string) (hashHex, saltHex string, err error) {
	if key == "" {
		return "", "", errors.New("api key cannot be empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := pbkdf2.Key([]byte(key), salt, iterationCount, keyLength, sha256.New)
	return hex.EncodeToString(hash), hex.EncodeToString(salt), nil
}
