package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const secureTokenBytes = 32

// newSecureToken returns nBytes from crypto/rand, URL-safe base64 without padding.
func newSecureToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
