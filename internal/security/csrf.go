package security

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

// Double-submit contract: the token is issued in a readable cookie at login
// and must be echoed in the header on state-changing requests.
const (
	CSRFCookieName = "XSRF-TOKEN"
	CSRFHeaderName = "X-XSRF-Token"
)

var ErrInvalidToken = errors.New("invalid CSRF token")

// TokenManager handles CSRF token generation and verification.
type TokenManager struct {
	random io.Reader
}

// NewTokenManager creates a new CSRF token manager reading from crypto/rand.
func NewTokenManager() *TokenManager {
	return &TokenManager{random: rand.Reader}
}

// Generate creates a random 256-bit token as a 64-character hex string.
func (tm *TokenManager) Generate() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := io.ReadFull(tm.random, randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

// Verify compares the cookie and header values in constant time.
func (tm *TokenManager) Verify(cookieValue, submitted string) error {
	if cookieValue == "" || submitted == "" {
		return ErrInvalidToken
	}
	if !hmac.Equal([]byte(cookieValue), []byte(submitted)) {
		return ErrInvalidToken
	}
	return nil
}
