package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"michaucha/internal/analytics"
	"michaucha/internal/core"
	"michaucha/internal/ports"
)

// DefaultHistoryPeriods is used when a caller asks for zero or fewer periods.
const DefaultHistoryPeriods = 3

// SummaryService feeds stored data into the analytics engines.
type SummaryService struct {
	store ports.Store
	settings
}

func NewSummaryService(store ports.Store, opts ...Option) *SummaryService {
	return &SummaryService{store: store, settings: newSettings(opts)}
}

// resolvePeriod returns nil when no period exists yet. More than one active
// period is core.ErrPeriodInvariant.
func (s *SummaryService) resolvePeriod(ctx context.Context, periodID *int64) (*core.Period, error) {
	if periodID != nil {
		p, err := s.store.FindPeriod(ctx, *periodID)
		if err != nil {
			return nil, fmt.Errorf("load period: %w", err)
		}
		return &p, nil
	}
	active, err := s.store.ListActivePeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active periods: %w", err)
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return &active[0], nil
	default:
		return nil, fmt.Errorf("%w: found %d", core.ErrPeriodInvariant, len(active))
	}
}

// PeriodSummary summarises a period, the active one when periodID is nil.
func (s *SummaryService) PeriodSummary(ctx context.Context, periodID *int64) (core.Dashboard, error) {
	period, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return core.Dashboard{}, err
	}
	if period == nil {
		return core.Dashboard{Summary: core.EmptySummary(), Transactions: []core.Transaction{}}, nil
	}

	now := s.now()
	in := analytics.SummaryInput{Period: period, Now: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, period.Filter(now))
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		in.Transactions = txs
		return nil
	})
	g.Go(func() error {
		paid, err := s.store.ListPaidPayments(gctx, period.ID)
		if err != nil {
			return fmt.Errorf("list paid payments: %w", err)
		}
		in.PaidPayments = paid
		return nil
	})
	g.Go(func() error {
		b, err := s.store.FindBudget(gctx, period.ID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find budget: %w", err)
		}
		in.Budget = &b
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}

	txs := in.Transactions
	if txs == nil {
		txs = []core.Transaction{}
	}
	return core.Dashboard{Summary: analytics.Summarize(in), Transactions: txs}, nil
}

// HistoricalAnalysis averages the last n closed periods.
func (s *SummaryService) HistoricalAnalysis(ctx context.Context, n int) (core.HistoricalAnalysis, error) {
	if n <= 0 {
		n = DefaultHistoryPeriods
	}
	closed, err := s.store.ListClosedPeriods(ctx, n)
	if err != nil {
		return core.HistoricalAnalysis{}, fmt.Errorf("list closed periods: %w", err)
	}

	data := make([]analytics.PeriodData, len(closed))
	g, gctx := errgroup.WithContext(ctx)
	for i, cp := range closed {
		data[i].Closed = cp
		g.Go(func() error {
			txs, err := s.store.ListTransactions(gctx, cp.Period.Filter(s.now()))
			if err != nil {
				return fmt.Errorf("list transactions for period %d: %w", cp.Period.ID, err)
			}
			data[i].Transactions = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.HistoricalAnalysis{}, err
	}
	return analytics.Analyze(data), nil
}
