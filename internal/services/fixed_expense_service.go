package services

import (
	"context"
	"errors"
	"fmt"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

// FixedExpenseService tracks per-period payment of recurring obligations.
type FixedExpenseService struct {
	store     ports.Store
	publisher ports.EventPublisher
	locker    ports.Locker
	settings
}

func NewFixedExpenseService(store ports.Store, publisher ports.EventPublisher, locker ports.Locker, opts ...Option) *FixedExpenseService {
	return &FixedExpenseService{store: store, publisher: publisher, locker: locker, settings: newSettings(opts)}
}

// ListWithStatus merges every fixed expense with its payment state in the
// period. Missing payment rows mean unpaid.
func (s *FixedExpenseService) ListWithStatus(ctx context.Context, periodID *int64) ([]core.FixedExpenseStatus, error) {
	p, err := periodOrActive(ctx, s.store, periodID, s.now())
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.FindFixedExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	paid, err := s.store.ListPaidPayments(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	byExpense := make(map[int64]core.FixedExpensePayment, len(paid))
	for _, pay := range paid {
		byExpense[pay.FixedExpenseID] = pay
	}

	out := make([]core.FixedExpenseStatus, 0, len(expenses))
	for _, e := range expenses {
		st := core.FixedExpenseStatus{FixedExpense: e}
		if pay, ok := byExpense[e.ID]; ok {
			id := pay.ID
			st.IsPaid = pay.IsPaid
			st.PaidAt = pay.PaidAt
			st.PaymentID = &id
		}
		out = append(out, st)
	}
	return out, nil
}

// Toggle sets the paid flag for an expense in a period (active when nil).
// Repeating the current value changes nothing: the row, its paid time and
// the event stream stay as they were.
func (s *FixedExpenseService) Toggle(ctx context.Context, expenseID int64, periodID *int64, isPaid bool) (core.FixedExpensePayment, error) {
	var (
		payment   core.FixedExpensePayment
		unchanged bool
	)
	err := withLock(ctx, s.locker, lockPeriod, func() error {
		p, err := periodOrActive(ctx, s.store, periodID, s.now())
		if err != nil {
			return err
		}
		existing, err := s.store.FindFixedExpensePayment(ctx, expenseID, p.ID)
		switch {
		case err == nil && existing.IsPaid == isPaid:
			payment, unchanged = existing, true
			return nil
		case err != nil && !errors.Is(err, core.ErrNotFound):
			return fmt.Errorf("find payment: %w", err)
		}
		payment, err = s.store.UpsertFixedExpensePayment(ctx, expenseID, p.ID, isPaid, s.now())
		if err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.FixedExpensePayment{}, err
	}
	if unchanged {
		return payment, nil
	}

	e := newEvent(core.EventFixedPaymentToggled, s.now())
	e.FixedExpenseID = expenseID
	e.PeriodID = payment.PeriodID
	e.IsPaid = &isPaid
	publish(ctx, s.publisher, e)
	return payment, nil
}

// ToggleByName looks the expense up case-insensitively and toggles it in the
// active period.
func (s *FixedExpenseService) ToggleByName(ctx context.Context, name string, isPaid bool) (core.FixedExpensePayment, error) {
	e, err := s.store.FindFixedExpenseByName(ctx, name)
	if err != nil {
		return core.FixedExpensePayment{}, err
	}
	return s.Toggle(ctx, e.ID, nil, isPaid)
}

func (s *FixedExpenseService) UpdateAmount(ctx context.Context, id, amount int64) error {
	if amount < 0 {
		return core.ErrInvalidAmount
	}
	return s.store.UpdateFixedExpenseAmount(ctx, id, amount)
}
