package services

import (
	"context"
	"fmt"
	"log/slog"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

// PeriodService manages the budget period lifecycle.
type PeriodService struct {
	store     ports.Store
	publisher ports.EventPublisher
	locker    ports.Locker
	settings
}

func NewPeriodService(store ports.Store, publisher ports.EventPublisher, locker ports.Locker, opts ...Option) *PeriodService {
	return &PeriodService{store: store, publisher: publisher, locker: locker, settings: newSettings(opts)}
}

// Current returns the active period, creating the first one if needed.
func (s *PeriodService) Current(ctx context.Context) (core.Period, error) {
	return s.store.FindOrCreateActivePeriod(ctx, s.now())
}

// CloseResult holds the period just closed and its successor.
type CloseResult struct {
	Closed core.Period `json:"closed"`
	Next   core.Period `json:"next"`
}

// Close ends the active period and opens its successor. Payment rows are not
// carried over, so every fixed expense starts unpaid.
func (s *PeriodService) Close(ctx context.Context) (CloseResult, error) {
	var res CloseResult
	err := withLock(ctx, s.locker, lockPeriod, func() error {
		now := s.now()
		active, err := s.store.FindOrCreateActivePeriod(ctx, now)
		if err != nil {
			return fmt.Errorf("load active period: %w", err)
		}
		next, err := s.store.ClosePeriodAndCreateSuccessor(ctx, active.ID, now)
		if err != nil {
			return fmt.Errorf("close period: %w", err)
		}
		closed, err := s.store.FindPeriod(ctx, active.ID)
		if err != nil {
			return fmt.Errorf("reload closed period: %w", err)
		}
		res = CloseResult{Closed: closed, Next: next}
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}

	slog.InfoContext(ctx, "Period closed", "closed_id", res.Closed.ID, "next_id", res.Next.ID)

	e := newEvent(core.EventPeriodClosed, s.now())
	e.PeriodID = res.Closed.ID
	publish(ctx, s.publisher, e)
	return res, nil
}

// UpdateSavingsGoal sets the goal of a period, the active one when periodID
// is nil.
func (s *PeriodService) UpdateSavingsGoal(ctx context.Context, periodID *int64, amount int64) (core.Period, error) {
	if amount < 0 {
		return core.Period{}, core.ErrInvalidAmount
	}
	p, err := periodOrActive(ctx, s.store, periodID, s.now())
	if err != nil {
		return core.Period{}, err
	}
	if err := s.store.UpdateSavingsGoal(ctx, p.ID, amount); err != nil {
		return core.Period{}, err
	}
	p.SavingsGoal = &amount
	return p, nil
}

// SetBudget upserts the budget of a period.
func (s *PeriodService) SetBudget(ctx context.Context, periodID *int64, amount int64) (core.Budget, error) {
	if amount < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	p, err := periodOrActive(ctx, s.store, periodID, s.now())
	if err != nil {
		return core.Budget{}, err
	}
	return s.store.UpsertBudget(ctx, p.ID, amount)
}

// Budget returns the budget of a period or core.ErrNotFound.
func (s *PeriodService) Budget(ctx context.Context, periodID *int64) (core.Budget, error) {
	p, err := periodOrActive(ctx, s.store, periodID, s.now())
	if err != nil {
		return core.Budget{}, err
	}
	return s.store.FindBudget(ctx, p.ID)
}
