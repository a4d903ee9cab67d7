// Package ports declares the collaborators the services depend on. Storage
// backends, messaging and chat adapters implement these.
//
// Find* and Get* methods return core.ErrNotFound when nothing matches.
package ports

import (
	"context"
	"time"

	"michaucha/internal/core"
)

type CategoryStore interface {
	FindCategoryByName(ctx context.Context, name string) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.NewTransaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	// ListTransactions orders by date descending, then id descending.
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
}

type PeriodStore interface {
	// FindOrCreateActivePeriod returns the active period, creating one
	// starting at now when none exists.
	FindOrCreateActivePeriod(ctx context.Context, now time.Time) (core.Period, error)
	FindPeriod(ctx context.Context, id int64) (core.Period, error)
	// ListActivePeriods exists so callers can detect a broken invariant.
	ListActivePeriods(ctx context.Context) ([]core.Period, error)
	// ClosePeriodAndCreateSuccessor atomically ends periodID at now and opens
	// a new active period starting at now.
	ClosePeriodAndCreateSuccessor(ctx context.Context, periodID int64, now time.Time) (core.Period, error)
	UpdateSavingsGoal(ctx context.Context, periodID int64, amount int64) error
	// ListClosedPeriods orders by end date descending.
	ListClosedPeriods(ctx context.Context, limit int) ([]core.ClosedPeriod, error)
}

type BudgetStore interface {
	UpsertBudget(ctx context.Context, periodID int64, amount int64) (core.Budget, error)
	FindBudget(ctx context.Context, periodID int64) (core.Budget, error)
}

type FixedExpenseStore interface {
	FindFixedExpenses(ctx context.Context) ([]core.FixedExpense, error)
	FindFixedExpenseByName(ctx context.Context, name string) (core.FixedExpense, error)
	UpdateFixedExpenseAmount(ctx context.Context, id int64, amount int64) error
	FindFixedExpensePayment(ctx context.Context, expenseID, periodID int64) (core.FixedExpensePayment, error)
	// UpsertFixedExpensePayment is keyed on (expenseID, periodID).
	UpsertFixedExpensePayment(ctx context.Context, expenseID, periodID int64, isPaid bool, now time.Time) (core.FixedExpensePayment, error)
	ListPaidPayments(ctx context.Context, periodID int64) ([]core.FixedExpensePayment, error)
}

// Store is the full persistence surface.
type Store interface {
	CategoryStore
	TransactionStore
	PeriodStore
	BudgetStore
	FixedExpenseStore
	Close() error
}

// EventPublisher emits committed state changes.
type EventPublisher interface {
	Publish(ctx context.Context, e core.Event) error
}

// Locker serialises critical sections across instances.
type Locker interface {
	// Obtain blocks until the key is held or ctx ends. The returned func
	// releases it.
	Obtain(ctx context.Context, key string) (release func(), err error)
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Messenger sends chat replies.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TransactionExporter mirrors the ledger into an external spreadsheet.
type TransactionExporter interface {
	ExportTransaction(ctx context.Context, t core.Transaction) error
	RemoveTransaction(ctx context.Context, id int64) error
	ExportPeriodSummary(ctx context.Context, p core.Period, s core.PeriodSummary) error
}
