package token

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

const (
	// DefaultLength is the default token length in bytes.
	DefaultLength = 32

	// SessionPrefix marks session tokens so log redaction can find them.
	SessionPrefix = "grs_"
)

// Generate generates a cryptographically secure random token.
//
// The returned token is Base64 RawURL encoded for safe URL and cookie
// transmission.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength generates a token with the specified byte length.
func GenerateWithLength(length int) (string, error) {
	b, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// NewSessionToken returns a fresh prefixed session token.
func NewSessionToken() (string, error) {
	body, err := Generate()
	if err != nil {
		return "", err
	}
	return SessionPrefix + body, nil
}

// IsSessionToken reports whether s has the shape of a session token.
// It does not say anything about whether the token exists.
func IsSessionToken(s string) bool {
	body, ok := strings.CutPrefix(s, SessionPrefix)
	if !ok || len(body) != base64.RawURLEncoding.EncodedLen(DefaultLength) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(body)
	return err == nil
}
