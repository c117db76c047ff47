// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"expense-manager/internal/errs"
)

// Cost bounds for the bcrypt work factor. The record is self-describing
// (algorithm, cost and salt are encoded in the hash), so raising the cost
// later never invalidates stored records.
const (
	MinCost     = bcrypt.MinCost
	MaxCost     = bcrypt.MaxCost
	DefaultCost = bcrypt.DefaultCost
)

// Hasher hashes and verifies passwords with a configurable work factor.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher. Costs outside bcrypt bounds fall back to
// DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < MinCost || cost > MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a self-describing record for the plaintext. A fresh random
// salt is generated on every call, so two hashes of the same plaintext differ.
func (h *Hasher) Hash(plaintext string) ([]byte, error) {
	rec, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return rec, nil
}

// Verify recomputes the digest with the record's embedded salt and cost and
// compares in constant time. A mismatch is a normal false result; a record
// that cannot be parsed is ErrCorruptCredential.
func (h *Hasher) Verify(plaintext string, record []byte) (bool, error) {
	if _, err := bcrypt.Cost(record); err != nil {
		return false, errs.ErrCorruptCredential
	}
	err := bcrypt.CompareHashAndPassword(record, []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, errs.ErrCorruptCredential
	}
}
