package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"michaucha/internal/core"
	"michaucha/internal/parser"
	"michaucha/internal/ports"
)

// TransactionService creates and removes ledger entries.
type TransactionService struct {
	store     ports.Store
	publisher ports.EventPublisher
	fixed     *FixedExpenseService
	settings
}

func NewTransactionService(store ports.Store, publisher ports.EventPublisher, fixed *FixedExpenseService, opts ...Option) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		fixed:     fixed,
		settings:  newSettings(opts),
	}
}

// Create resolves the draft's category and persists it. The created event is
// published best-effort.
func (s *TransactionService) Create(ctx context.Context, d parser.TransactionDraft) (core.Transaction, error) {
	cat, err := resolveCategory(ctx, s.store, d.Category)
	if err != nil {
		return core.Transaction{}, err
	}

	method := d.PaymentMethod
	if method == "" {
		method = core.Cash
	}
	date := d.Date
	if date.IsZero() {
		date = s.now()
	}

	tx, err := s.store.CreateTransaction(ctx, core.NewTransaction{
		Amount:        d.Amount,
		CategoryID:    cat.ID,
		Description:   strings.TrimSpace(d.Description),
		PaymentMethod: method,
		Date:          date,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", tx.ID,
		"amount", tx.Amount,
		"category", tx.CategoryName,
		"payment_method", tx.PaymentMethod)

	e := newEvent(core.EventTransactionCreated, s.now())
	e.TransactionID = tx.ID
	publish(ctx, s.publisher, e)

	return tx, nil
}

// CreateAndSettle creates the transaction and then marks a fixed expense with
// the same name as the category paid in the active period. Settling is
// best-effort and never undoes the transaction.
func (s *TransactionService) CreateAndSettle(ctx context.Context, d parser.TransactionDraft) (core.Transaction, error) {
	tx, err := s.Create(ctx, d)
	if err != nil {
		return core.Transaction{}, err
	}
	if s.fixed == nil {
		return tx, nil
	}

	_, err = s.fixed.ToggleByName(ctx, tx.CategoryName, true)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Fixed expense settled from transaction", "transaction_id", tx.ID, "expense", tx.CategoryName)
	case errors.Is(err, core.ErrNotFound):
		slog.DebugContext(ctx, "No fixed expense matches category", "category", tx.CategoryName)
	default:
		slog.WarnContext(ctx, "Could not auto-settle fixed expense", "category", tx.CategoryName, "error", err)
	}
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	e := newEvent(core.EventTransactionDeleted, s.now())
	e.TransactionID = id
	publish(ctx, s.publisher, e)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// ListForPeriod lists the transactions of a period, optionally narrowed by
// payment method or category. A nil periodID means the active period.
func (s *TransactionService) ListForPeriod(ctx context.Context, periodID *int64, method *core.PaymentMethod, categoryID *int64) ([]core.Transaction, error) {
	p, err := periodOrActive(ctx, s.store, periodID, s.now())
	if err != nil {
		return nil, err
	}
	f := p.Filter(s.now())
	f.PaymentMethod = method
	f.CategoryID = categoryID
	return s.store.ListTransactions(ctx, f)
}

// ListVisa lists VISA transactions in the period.
func (s *TransactionService) ListVisa(ctx context.Context, periodID *int64) ([]core.Transaction, error) {
	visa := core.Visa
	return s.ListForPeriod(ctx, periodID, &visa, nil)
}

// ListByCategory lists one category's transactions in the period.
func (s *TransactionService) ListByCategory(ctx context.Context, categoryID int64, periodID *int64) ([]core.Transaction, error) {
	return s.ListForPeriod(ctx, periodID, nil, &categoryID)
}

// periodOrActive loads the given period or the active one.
func periodOrActive(ctx context.Context, store ports.PeriodStore, periodID *int64, now time.Time) (core.Period, error) {
	if periodID != nil {
		p, err := store.FindPeriod(ctx, *periodID)
		if err != nil {
			return core.Period{}, fmt.Errorf("load period: %w", err)
		}
		return p, nil
	}
	p, err := store.FindOrCreateActivePeriod(ctx, now)
	if err != nil {
		return core.Period{}, fmt.Errorf("load active period: %w", err)
	}
	return p, nil
}
