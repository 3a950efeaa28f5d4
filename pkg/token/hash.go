package token

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives storage keys from tokens.
//
// A zero Hasher computes an unkeyed BLAKE2b-256 digest. With a key it
// computes the keyed MAC variant, which ties stored keys to one deployment.
type Hasher struct {
	key []byte
}

// NewHasher creates a Hasher. key may be empty; keys longer than 64 bytes
// are rejected by BLAKE2b.
func NewHasher(key []byte) (*Hasher, error) {
	// Validate once so Sum never has to report an error.
	if _, err := blake2b.New256(key); err != nil {
		return nil, err
	}
	return &Hasher{key: append([]byte(nil), key...)}, nil
}

// Sum returns the hex encoded digest of token.
func (h *Hasher) Sum(token string) string {
	var key []byte
	if h != nil {
		key = h.key
	}
	d, _ := blake2b.New256(key)
	d.Write([]byte(token))
	return hex.EncodeToString(d.Sum(nil))
}

// Hash computes the unkeyed digest of a token.
func Hash(token string) string {
	return (*Hasher)(nil).Sum(token)
}
