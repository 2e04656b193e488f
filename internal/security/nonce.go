package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// NonceSize is the number of random bytes in a CSP nonce (128 bits).
const NonceSize = 16

// NonceGenerator draws per-request CSP nonces.
type NonceGenerator struct {
	random io.Reader
}

// NewNonceGenerator creates a generator reading from r, or crypto/rand when
// r is nil.
func NewNonceGenerator(r io.Reader) *NonceGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &NonceGenerator{random: r}
}

// Generate returns a fresh base64-encoded nonce.
func (g *NonceGenerator) Generate() (string, error) {
	b := make([]byte, NonceSize)
	if _, err := io.ReadFull(g.random, b); err != nil {
		return "", fmt.Errorf("failed to read nonce entropy: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
