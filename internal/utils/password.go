package utils

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/D191001/libra/internal/model"
)

// HashPassword returns the bcrypt hash of plain.  A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.  Passwords longer than 72 bytes
// are rejected as invalid input rather than silently truncated.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password longer than 72 bytes", model.ErrInvalidInput)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.  A malformed hash
// never matches.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
