// Package report turns ledger entries into deterministic report and document models.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"

	"expense-manager/internal/model"
	"expense-manager/internal/repository"
)

// Aggregator groups ledger entries into per-category subtotals for one owner
// and period. Output is deterministic: fixed line-item ordering, exact cent
// arithmetic, and a GeneratedAt stamp taken from the snapshot marker rather
// than the wall clock, so an unchanged ledger always yields an identical
// ReportModel.
type Aggregator struct {
	ledger   repository.LedgerRepository
	currency string
}

// NewAggregator constructs an Aggregator. currency is the deployment-wide
// ISO-4217 code, used for reports over empty periods.
func NewAggregator(ledger repository.LedgerRepository, currency string) *Aggregator {
	return &Aggregator{ledger: ledger, currency: currency}
}

// Snapshot returns the as-of marker for the owner's period: the newest ledger
// mutation inside it. The bool is false when the period holds no entries.
func (a *Aggregator) Snapshot(ctx context.Context, owner uuid.UUID, period model.Period) (time.Time, bool, error) {
	return a.ledger.LatestChangeAt(ctx, owner, period)
}

// Aggregate computes the report against the current snapshot.
func (a *Aggregator) Aggregate(ctx context.Context, owner uuid.UUID, period model.Period) (*model.ReportModel, error) {
	asOf, ok, err := a.Snapshot(ctx, owner, period)
	if err != nil {
		return nil, err
	}
	if !ok {
		// empty period: a report with no line items, not an error
		return &model.ReportModel{
			Owner:     owner,
			Period:    period,
			Currency:  a.currency,
			LineItems: []model.LineItem{},
		}, nil
	}
	return a.AggregateAt(ctx, owner, period, asOf)
}

// AggregateAt computes the report against a fixed snapshot marker. Entries
// created after asOf, and voids applied after asOf, do not appear.
func (a *Aggregator) AggregateAt(ctx context.Context, owner uuid.UUID, period model.Period, asOf time.Time) (*model.ReportModel, error) {
	entries, err := a.ledger.ListFor(ctx, owner, period, asOf)
	if err != nil {
		return nil, err
	}

	currency := a.currency
	subtotals := make(map[model.Category]model.Money)
	var grand model.Money
	for _, e := range entries {
		if e.Voided {
			continue
		}
		subtotals[e.Category] = subtotals[e.Category].Add(e.Amount)
		grand = grand.Add(e.Amount)
		currency = e.Currency
	}

	items := make([]model.LineItem, 0, len(subtotals))
	for c, sum := range subtotals {
		items = append(items, model.LineItem{Category: c, Subtotal: sum})
	}
	// descending subtotal, ties by category name ascending
	sort.Slice(items, func(i, j int) bool {
		if items[i].Subtotal.Cents != items[j].Subtotal.Cents {
			return items[i].Subtotal.Cents > items[j].Subtotal.Cents
		}
		return items[i].Category < items[j].Category
	})

	return &model.ReportModel{
		Owner:       owner,
		Period:      period,
		Currency:    currency,
		LineItems:   items,
		GrandTotal:  grand,
		GeneratedAt: asOf,
	}, nil
}
