package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const (
	// TokenSize128 is 16 random bytes (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 is 32 random bytes (43 chars base64url). Service API keys use this.
	TokenSize256 = 32
)

// APIKeyPrefix marks generated service API keys so they are recognisable in
// configuration files and secret scanners.
const APIKeyPrefix = "s2s_"

// GenerateToken returns size random bytes as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateAPIKey returns a new 256-bit service API key.
func GenerateAPIKey() (string, error) {
	token, err := GenerateToken(TokenSize256)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + token, nil
}

// FingerprintToken returns the base64url SHA-256 of token. The credential
// store indexes API keys by fingerprint so the plaintext is never persisted.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// EqualFingerprint compares two fingerprints in constant time.
func EqualFingerprint(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
