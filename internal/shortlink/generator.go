package shortlink

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const (
	// CodeLength is the length of every generated code.
	CodeLength = 6

	// UnambiguousAlphabet omits 0, 1, I, O, i, l and o so codes survive being read aloud or retyped.
	UnambiguousAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	// LowerAlphabet is used for availability codes.
	LowerAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// MaxAttempts bounds the re-roll loop on collisions.
	MaxAttempts = 100
)

// CodeGenerator generates candidate short codes. Uniqueness is enforced by the repository.
type CodeGenerator func() string

// NewGenerator returns a crypto-random generator of CodeLength codes over alphabet.
func NewGenerator(alphabet string) (CodeGenerator, error) {
	gen, err := nanoid.CustomASCII(alphabet, CodeLength)
	if err != nil {
		return nil, fmt.Errorf("building code generator: %w", err)
	}

	return CodeGenerator(gen), nil
}

// MustGenerator is like NewGenerator but panics on an invalid alphabet.
func MustGenerator(alphabet string) CodeGenerator {
	gen, err := NewGenerator(alphabet)
	if err != nil {
		panic(err)
	}

	return gen
}
