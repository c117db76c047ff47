package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"expense-manager/internal/model"
)

// LedgerRepository is the append-only store of expense entries.
type LedgerRepository interface {
	// Append persists a new immutable entry.
	Append(ctx context.Context, e *model.Expense) error
	// Void marks an entry soft-deleted. Returns ErrNotFound when the entry
	// does not exist or belongs to a different owner.
	Void(ctx context.Context, owner, expenseID uuid.UUID) error
	// ListFor returns all entries (voided included) for one owner whose
	// occurred_at falls in the period and that were created at or before
	// asOf, ordered by occurred_at ascending then id ascending. The Voided
	// flag reflects only voids applied at or before asOf, so a fixed asOf
	// always yields the same snapshot.
	ListFor(ctx context.Context, owner uuid.UUID, period model.Period, asOf time.Time) ([]model.Expense, error)
	// LatestChangeAt returns the newest mutation time (creation or void)
	// among the owner's entries in the period, used as the snapshot marker
	// for aggregation. The bool is false when the period holds no entries.
	LatestChangeAt(ctx context.Context, owner uuid.UUID, period model.Period) (time.Time, bool, error)
}
