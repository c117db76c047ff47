package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// RevocationStore tracks invalidated session tokens. Targeted revocations are
// kept per token_id until the token would have expired anyway; revoke-all is
// a single per-subject watermark, so it stays effective for tokens issued
// before the call without enumerating them.
type RevocationStore interface {
	// Revoke invalidates a single token_id. expiresAt bounds how long the
	// row must be retained.
	Revoke(ctx context.Context, tokenID uuid.UUID, expiresAt time.Time) error
	// IsRevoked reports whether the token_id has been individually revoked.
	IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error)
	// RaiseWatermark invalidates every token of the subject issued at or
	// before ts. The watermark only ever moves forward.
	RaiseWatermark(ctx context.Context, subject uuid.UUID, ts time.Time) error
	// Watermark returns the subject's current min-valid-issued-at boundary.
	// The bool is false when no revoke-all has happened for the subject.
	Watermark(ctx context.Context, subject uuid.UUID) (time.Time, bool, error)
	// PruneExpired removes targeted revocations whose tokens have expired.
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}
