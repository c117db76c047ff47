// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrInvalidCredentials indicates a failed email/password authentication.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers malformed, expired, revoked and signature-mismatched
	// tokens. Callers never learn which check failed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrCorruptCredential indicates a stored password record that cannot be
	// parsed. A data integrity problem, never a plain mismatch.
	ErrCorruptCredential = errors.New("corrupt credential record")

	// ErrInvalidAmount indicates a non-positive or unparseable money amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrValidation indicates malformed caller input other than an amount
	// (bad email, oversized description, missing date).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the requested entity does not exist for this owner.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrInternal indicates a persistence/infrastructure failure after retries.
	ErrInternal = errors.New("internal error")
)
