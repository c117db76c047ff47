package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"expense-manager/internal/errs"
	"expense-manager/internal/model"
)

// LedgerRepo implements LedgerRepository using PostgreSQL.
type LedgerRepo struct{ db *DB }

// NewLedgerRepo constructs a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Append inserts a new immutable entry and reads back the created_at stamp.
func (r *LedgerRepo) Append(ctx context.Context, e *model.Expense) error {
	const q = `
INSERT INTO expenses (id, owner_id, description, amount_cents, currency, category, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`
	return withRetry(ctx, "expenses.append", func(ctx context.Context) error {
		row := r.db.Pool.QueryRow(ctx, q,
			e.ID, e.OwnerID, e.Description, e.Amount.Cents, e.Currency, string(e.Category), e.OccurredAt)
		return row.Scan(&e.CreatedAt)
	})
}

// Void marks the entry soft-deleted. The owner predicate is part of the
// statement, so a cross-owner id can never match.
func (r *LedgerRepo) Void(ctx context.Context, owner, expenseID uuid.UUID) error {
	const q = `
UPDATE expenses SET voided_at = now()
WHERE id = $1 AND owner_id = $2 AND voided_at IS NULL`
	return withRetry(ctx, "expenses.void", func(ctx context.Context) error {
		tag, err := r.db.Pool.Exec(ctx, q, expenseID, owner)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// ListFor returns the owner's entries in [period.Start, period.End) created at
// or before asOf. The voided flag is evaluated against asOf as well, so the
// same asOf always produces the same snapshot. Ordering is occurred_at ASC,
// id ASC, which downstream aggregation relies on.
func (r *LedgerRepo) ListFor(ctx context.Context, owner uuid.UUID, period model.Period, asOf time.Time) ([]model.Expense, error) {
	const q = `
SELECT id, owner_id, description, amount_cents, currency, category, occurred_at, created_at,
       (voided_at IS NOT NULL AND voided_at <= $5) AS voided
FROM expenses
WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3 AND created_at <= $4
ORDER BY occurred_at ASC, id ASC`
	var out []model.Expense
	err := withRetry(ctx, "expenses.list_for", func(ctx context.Context) error {
		rows, err := r.db.Pool.Query(ctx, q, owner, period.Start, period.End, asOf, asOf)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var e model.Expense
			var category string
			if err := rows.Scan(&e.ID, &e.OwnerID, &e.Description, &e.Amount.Cents,
				&e.Currency, &category, &e.OccurredAt, &e.CreatedAt, &e.Voided); err != nil {
				return err
			}
			e.Category = model.Category(category)
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LatestChangeAt returns the newest creation or void time in the period.
func (r *LedgerRepo) LatestChangeAt(ctx context.Context, owner uuid.UUID, period model.Period) (time.Time, bool, error) {
	const q = `
SELECT max(GREATEST(created_at, COALESCE(voided_at, created_at)))
FROM expenses
WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3`
	var ts *time.Time
	err := withRetry(ctx, "expenses.latest_change", func(ctx context.Context) error {
		err := r.db.Pool.QueryRow(ctx, q, owner, period.Start, period.End).Scan(&ts)
		if errors.Is(err, pgx.ErrNoRows) {
			ts = nil
			return nil
		}
		return err
	})
	if err != nil {
		return time.Time{}, false, err
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return *ts, true, nil
}
