package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Default bcrypt cost. Raised above the library default so offline attacks
// stay expensive; configurable for tests, which use bcrypt.MinCost.
const DefaultBcryptCost = 12

// ErrPasswordMismatch indicates a password that does not match its hash.
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordVerifier compares secrets against stored hashes.
type PasswordVerifier interface {
	// Compare checks a plaintext secret against a hash. Returns
	// ErrPasswordMismatch when they do not match.
	Compare(hashedValue, plaintext string) error
}

// PasswordHasher hashes and verifies secrets (passwords and recovery
// answers).
type PasswordHasher interface {
	PasswordVerifier

	// Hash returns a one-way hash of the plaintext secret.
	Hash(plaintext string) (string, error)
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost. Costs outside
// bcrypt's valid range fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash implements PasswordHasher.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// Compare implements PasswordVerifier.
func (h *BcryptHasher) Compare(hashedValue, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedValue), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("failed to compare secret: %w", err)
	}
	return nil
}
