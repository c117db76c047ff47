package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"expense-manager/internal/errs"
	"expense-manager/internal/model"
	"expense-manager/internal/repository"
)

const maxDescriptionLen = 255

// RecordExpense carries the caller-supplied fields of a new ledger entry.
type RecordExpense struct {
	Description string
	Amount      string // decimal string, parsed exactly
	Currency    string // empty means the deployment default
	Category    string
	OccurredAt  time.Time
}

// LedgerService defines write operations on the expense ledger.
type LedgerService interface {
	// Record validates and appends a new immutable expense for the owner.
	Record(ctx context.Context, owner uuid.UUID, req RecordExpense) (*model.Expense, error)
	// Void soft-deletes an expense. Cross-owner ids fail with ErrNotFound.
	Void(ctx context.Context, owner, expenseID uuid.UUID) error
}

type LedgerServiceImpl struct {
	ledger   repository.LedgerRepository
	currency string
}

// NewLedgerService constructs LedgerService. currency is the single ISO-4217
// code this deployment accepts.
func NewLedgerService(ledger repository.LedgerRepository, currency string) *LedgerServiceImpl {
	return &LedgerServiceImpl{ledger: ledger, currency: currency}
}

// Record validates the request and appends the entry. The amount must be a
// strictly positive exact decimal; the entry is immutable once persisted.
func (s *LedgerServiceImpl) Record(ctx context.Context, owner uuid.UUID, req RecordExpense) (*model.Expense, error) {
	if owner == uuid.Nil {
		return nil, fmt.Errorf("empty owner: %w", errs.ErrValidation)
	}
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return nil, fmt.Errorf("unsupported currency %q: %w", req.Currency, errs.ErrInvalidAmount)
	}
	if len(req.Description) > maxDescriptionLen {
		return nil, fmt.Errorf("description too long: %w", errs.ErrValidation)
	}
	if req.OccurredAt.IsZero() {
		return nil, fmt.Errorf("missing date: %w", errs.ErrValidation)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	e := &model.Expense{
		ID:          id,
		OwnerID:     owner,
		Description: req.Description,
		Amount:      amount,
		Currency:    currency,
		Category:    model.NormalizeCategory(req.Category),
		OccurredAt:  dateOf(req.OccurredAt),
	}
	if err := s.ledger.Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Void marks the entry soft-deleted; the repository enforces ownership.
func (s *LedgerServiceImpl) Void(ctx context.Context, owner, expenseID uuid.UUID) error {
	if owner == uuid.Nil || expenseID == uuid.Nil {
		return errs.ErrNotFound
	}
	return s.ledger.Void(ctx, owner, expenseID)
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
