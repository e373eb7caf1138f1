package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TokenHasher derives the at-rest form of refresh tokens. The output is
// deterministic so a presented token can be looked up by its hash, and keyed
// so a dumped table cannot be matched against guessed tokens offline.
type TokenHasher struct {
	key []byte
}

func NewTokenHasher(key string) (*TokenHasher, error) {
	if key == "" {
		return nil, fmt.Errorf("token hash key is required")
	}
	return &TokenHasher{key: []byte(key)}, nil
}

// Hash returns the hex encoded HMAC-SHA256 of the raw token.
func (h *TokenHasher) Hash(raw string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
