package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"expense-manager/internal/cache"
	"expense-manager/internal/errs"
	"expense-manager/internal/model"
	"expense-manager/internal/report"
)

// ReportService produces paginated document models for an owner and period.
type ReportService interface {
	// Document aggregates the period and renders the layout. Results are
	// cached per (owner, period, snapshot marker), so regeneration against
	// an unchanged ledger is idempotent and cheap.
	Document(ctx context.Context, owner uuid.UUID, period model.Period) (*report.DocumentModel, error)
}

type ReportServiceImpl struct {
	agg      *report.Aggregator
	renderer *report.Renderer
	docs     *cache.LRU[*report.DocumentModel]
}

// NewReportService constructs ReportService. docs may be nil to disable caching.
func NewReportService(agg *report.Aggregator, renderer *report.Renderer, docs *cache.LRU[*report.DocumentModel]) *ReportServiceImpl {
	return &ReportServiceImpl{agg: agg, renderer: renderer, docs: docs}
}

// Document computes or recalls the rendered report for the period.
func (s *ReportServiceImpl) Document(ctx context.Context, owner uuid.UUID, period model.Period) (*report.DocumentModel, error) {
	if owner == uuid.Nil || !period.Valid() {
		return nil, fmt.Errorf("empty owner or period: %w", errs.ErrValidation)
	}

	asOf, ok, err := s.agg.Snapshot(ctx, owner, period)
	if err != nil {
		return nil, err
	}
	if !ok {
		// no entries: render the empty report, nothing worth caching
		rep, err := s.agg.Aggregate(ctx, owner, period)
		if err != nil {
			return nil, err
		}
		return s.renderer.Render(rep), nil
	}

	key := fmt.Sprintf("%s|%s|%d", owner, period.Key(), asOf.UnixNano())
	if s.docs != nil {
		if doc, hit := s.docs.Get(key); hit {
			return doc, nil
		}
	}

	rep, err := s.agg.AggregateAt(ctx, owner, period, asOf)
	if err != nil {
		return nil, err
	}
	doc := s.renderer.Render(rep)
	if s.docs != nil {
		s.docs.Set(key, doc)
	}
	return doc, nil
}
