package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// RevocationRepo implements RevocationStore using PostgreSQL. Targeted
// revocations live in revoked_tokens until their natural expiry; revoke-all
// is a single watermark row per subject, so memory never grows with the
// number of revoked sessions.
type RevocationRepo struct{ db *DB }

// NewRevocationRepo constructs a revocation store.
func NewRevocationRepo(db *DB) *RevocationRepo { return &RevocationRepo{db: db} }

// Revoke records a single token_id as invalid.
func (r *RevocationRepo) Revoke(ctx context.Context, tokenID uuid.UUID, expiresAt time.Time) error {
	const q = `
INSERT INTO revoked_tokens (token_id, expires_at)
VALUES ($1, $2)
ON CONFLICT (token_id) DO NOTHING`
	return withRetry(ctx, "revocation.revoke", func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, q, tokenID, expiresAt)
		return err
	})
}

// IsRevoked reports whether the token_id has been individually revoked.
func (r *RevocationRepo) IsRevoked(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM revoked_tokens WHERE token_id=$1`
	var revoked bool
	err := withRetry(ctx, "revocation.is_revoked", func(ctx context.Context) error {
		var one int
		err := r.db.Pool.QueryRow(ctx, q, tokenID).Scan(&one)
		switch {
		case err == nil:
			revoked = true
			return nil
		case errors.Is(err, pgx.ErrNoRows):
			revoked = false
			return nil
		default:
			return err
		}
	})
	return revoked, err
}

// RaiseWatermark records that every token of the subject issued at or before
// ts is invalid. GREATEST keeps the watermark monotonic under concurrent calls.
func (r *RevocationRepo) RaiseWatermark(ctx context.Context, subject uuid.UUID, ts time.Time) error {
	const q = `
INSERT INTO auth_revocation (subject, min_issued_at)
VALUES ($1, $2)
ON CONFLICT (subject)
DO UPDATE SET min_issued_at = GREATEST(auth_revocation.min_issued_at, EXCLUDED.min_issued_at)`
	return withRetry(ctx, "revocation.raise_watermark", func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, q, subject, ts)
		return err
	})
}

// Watermark returns the subject's min-valid-issued-at boundary, if any.
func (r *RevocationRepo) Watermark(ctx context.Context, subject uuid.UUID) (time.Time, bool, error) {
	const q = `SELECT min_issued_at FROM auth_revocation WHERE subject=$1`
	var ts time.Time
	var found bool
	err := withRetry(ctx, "revocation.watermark", func(ctx context.Context) error {
		err := r.db.Pool.QueryRow(ctx, q, subject).Scan(&ts)
		switch {
		case err == nil:
			found = true
			return nil
		case errors.Is(err, pgx.ErrNoRows):
			found = false
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, found, nil
}

// PruneExpired drops targeted revocations whose tokens have expired anyway.
func (r *RevocationRepo) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM revoked_tokens WHERE expires_at <= $1`
	var n int64
	err := withRetry(ctx, "revocation.prune", func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, now)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}
