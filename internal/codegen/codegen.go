// Package codegen produces and checks the short codes that identify items.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Alphabet is the set of symbols a generated code is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the length of a generated code.
const Length = 6

// MaxLength is the longest code accepted from a caller.
const MaxLength = 20

// ErrInvalidCode is returned for codes outside [A-Z0-9]{1,MaxLength}.
var ErrInvalidCode = errors.New("invalid item code")

var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// ExistsFunc reports whether a code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generate draws random codes until exists reports one as free.
// There is no attempt limit; with 36^6 possible codes a collision is rare.
func Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := Random()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking code %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
}

// Random returns a single random code without any uniqueness check.
func Random() (string, error) {
	size := big.NewInt(int64(len(Alphabet)))
	result := make([]byte, Length)
	for i := range result {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generating code: %w", err)
		}
		result[i] = Alphabet[n.Int64()]
	}
	return string(result), nil
}

// Normalize trims and upper-cases a caller-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks an already normalized code.
func Validate(code string) error {
	if code == "" || len(code) > MaxLength || !codePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return nil
}
