package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Generator creates opaque random identifiers for external references
// (invite codes, refresh tokens). Values carry at least 128 bits of entropy
// and are never derived from sequential ids.
type Generator interface {
	NewID() (string, error)
	NewSecret() (string, error)
}

type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// NewID returns 32 lowercase hex characters (128 bits), URL-safe.
func (g *RandomGenerator) NewID() (string, error) {
	return randomHex(16)
}

// NewSecret returns 64 lowercase hex characters (256 bits) for refresh tokens.
func (g *RandomGenerator) NewSecret() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
