// Package sha256 derives one-way identity keys with SHA-256.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultDelimiter separates key parts before hashing.
const DefaultDelimiter = "##"

// KeyHasher implements contentstate.Hasher.
type KeyHasher struct{}

// New returns a KeyHasher.
func New() *KeyHasher {
	return &KeyHasher{}
}

// HashKey joins parts with DefaultDelimiter and returns the hex digest.
func (*KeyHasher) HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, DefaultDelimiter)))
	return hex.EncodeToString(sum[:])
}
