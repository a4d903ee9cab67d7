package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Cash PaymentMethod = "CASH"
	Visa PaymentMethod = "VISA"
)

// DefaultCategoryName is the bucket used when a category cannot be resolved.
// It must exist in every store.
const DefaultCategoryName = "Gastos varios"

type (
	PaymentMethod string

	Category struct {
		ID   int64
		Name string
	}

	Transaction struct {
		ID            int64
		Amount        int64 // CLP, no subunits
		CategoryID    int64
		CategoryName  string
		Description   string
		PaymentMethod PaymentMethod
		Date          time.Time
		CreatedAt     time.Time
	}

	// NewTransaction holds the fields needed to persist a transaction.
	NewTransaction struct {
		Amount        int64
		CategoryID    int64
		Description   string
		PaymentMethod PaymentMethod
		Date          time.Time
	}

	// TransactionFilter selects transactions in [From, To]. Nil pointers mean
	// "any".
	TransactionFilter struct {
		From          time.Time
		To            time.Time
		CategoryID    *int64
		PaymentMethod *PaymentMethod
	}

	FixedExpense struct {
		ID     int64
		Name   string
		Amount int64
	}

	// FixedExpensePayment records whether a fixed expense was settled in a
	// period. No row for a (expense, period) pair means unpaid.
	FixedExpensePayment struct {
		ID             int64
		FixedExpenseID int64
		PeriodID       int64
		IsPaid         bool
		PaidAt         *time.Time
		Expense        FixedExpense
	}

	// FixedExpenseStatus is a fixed expense merged with its payment state in a
	// given period.
	FixedExpenseStatus struct {
		FixedExpense
		IsPaid    bool
		PaidAt    *time.Time
		PaymentID *int64
	}

	Period struct {
		ID          int64
		StartDate   time.Time
		EndDate     *time.Time
		IsActive    bool
		SavingsGoal *int64
	}

	Budget struct {
		ID       int64
		PeriodID int64
		Amount   int64
	}

	// ClosedPeriod bundles a closed period with its budget and paid payments.
	ClosedPeriod struct {
		Period       Period
		Budget       *Budget
		PaidPayments []FixedExpensePayment
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrEmptyName            = errors.New("empty name")
	ErrZeroDate             = errors.New("date cannot be zero")

	// ErrParseFailure means the utterance had no amount and was not a fixed
	// payment acknowledgment.
	ErrParseFailure = errors.New("utterance not understood")
	// ErrCategoryResolution means the default category is missing.
	ErrCategoryResolution = errors.New("category resolution failed: default category missing")
	// ErrPeriodInvariant means more than one period is active.
	ErrPeriodInvariant = errors.New("period invariant violated: more than one active period")
	ErrNotFound        = errors.New("not found")
	ErrPeriodClosed    = errors.New("period is closed")
)

// ParsePaymentMethod is case-insensitive; an empty string is CASH.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(Cash):
		return Cash, nil
	case string(Visa):
		return Visa, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

func (m PaymentMethod) Valid() bool {
	return m == Cash || m == Visa
}

func (t NewTransaction) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if !t.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}

func (f FixedExpense) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if f.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Until returns the end of the period, or now while it is still open.
func (p Period) Until(now time.Time) time.Time {
	if p.EndDate != nil {
		return *p.EndDate
	}
	return now
}

// Contains reports whether t falls within [StartDate, Until(now)].
func (p Period) Contains(t, now time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.Until(now))
}

// Filter returns a transaction filter covering the period.
func (p Period) Filter(now time.Time) TransactionFilter {
	return TransactionFilter{From: p.StartDate, To: p.Until(now)}
}

// Matches reports whether tx satisfies the filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	if f.CategoryID != nil && tx.CategoryID != *f.CategoryID {
		return false
	}
	if f.PaymentMethod != nil && tx.PaymentMethod != *f.PaymentMethod {
		return false
	}
	return true
}
