// Package password hashes account secrets with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for every stored secret.
const DefaultCost = 10

// MaxLength is the longest secret bcrypt can digest without truncation.
const MaxLength = 72

var ErrEmptyPassword = errors.New("password is empty")

// dummySecret is hashed once per Hasher so Dummy has a real digest to
// compare against.
const dummySecret = "clinic-api/not-a-real-password"

type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using DefaultCost.
func NewHasher() *Hasher {
	return NewHasherWithCost(DefaultCost)
}

// NewHasherWithCost returns a Hasher with a custom work factor. Out of range
// costs fall back to DefaultCost. Tests use bcrypt.MinCost to stay fast.
func NewHasherWithCost(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummySecret), cost)
	if err != nil {
		panic(fmt.Sprintf("password: build dummy hash: %v", err))
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns a salted bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > MaxLength {
		return "", fmt.Errorf("hash password: longer than %d bytes", MaxLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. Empty input and malformed
// hashes yield false.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Dummy performs a comparison whose result is discarded.
func (h *Hasher) Dummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}
