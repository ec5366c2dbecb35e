// Package roomcode generates the short codes participants share to find
// a session. Codes are not identities and carry no structure; the core
// logic only ever treats them as opaque keys.
package roomcode

import (
	"crypto/rand"
	"fmt"
)

// Length is the fixed code length
const Length = 6

// alphabet avoids characters that read ambiguously when spoken or
// scribbled on a napkin (no 0/O, 1/I/L).
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RandSource allows deterministic codes in tests
type RandSource interface {
	Intn(n int) int
}

// Generator produces room codes with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a generator. A nil randSource uses crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room code using crypto/rand
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new room code using the generator's RandSource
func (g *Generator) Generate() string {
	buf := make([]byte, Length)
	if g.randSource != nil {
		for i := range buf {
			buf[i] = alphabet[g.randSource.Intn(len(alphabet))]
		}
		return string(buf)
	}

	raw := make([]byte, Length)
	if _, err := rand.Read(raw); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i := range buf {
		buf[i] = alphabet[int(raw[i])%len(alphabet)]
	}
	return string(buf)
}

// Validate checks that a code has the right shape
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}
	for i := 0; i < len(code); i++ {
		found := false
		for j := 0; j < len(alphabet); j++ {
			if code[i] == alphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("invalid character %c at position %d", code[i], i)
		}
	}
	return nil
}
