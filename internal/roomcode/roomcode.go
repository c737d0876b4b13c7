package roomcode

import "fmt"

// Length is the number of characters in a room code.
const Length = 6

// Alphabet is the set of characters a room code is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandSource interface for dependency injection of randomness
type RandSource interface {
	IntN(n int) int
}

// Generator handles room code generation with configurable randomness
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator drawing from randSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate draws Length characters uniformly from Alphabet. Codes are not
// guaranteed unique; callers check for collisions against live rooms.
func (g *Generator) Generate() string {
	code := make([]byte, Length)
	for i := range code {
		code[i] = Alphabet[g.randSource.IntN(len(Alphabet))]
	}
	return string(code)
}

// Validate checks if a room code is well formed (6 characters, A-Z or 0-9)
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}

	for i, char := range code {
		if !('A' <= char && char <= 'Z') && !('0' <= char && char <= '9') {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}

	return nil
}
