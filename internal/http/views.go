package http

import (
	"time"

	"michaucha/internal/core"
)

// JSON shapes of the domain types. Core stays free of wire tags.

type transactionView struct {
	ID            int64              `json:"id"`
	Amount        int64              `json:"amount"`
	CategoryID    int64              `json:"categoryId"`
	Category      string             `json:"category"`
	Description   string             `json:"description"`
	PaymentMethod core.PaymentMethod `json:"paymentMethod"`
	Date          time.Time          `json:"date"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func toTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:            t.ID,
		Amount:        t.Amount,
		CategoryID:    t.CategoryID,
		Category:      t.CategoryName,
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
		Date:          t.Date,
		CreatedAt:     t.CreatedAt,
	}
}

func toTransactionViews(ts []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionView(t))
	}
	return out
}

type periodView struct {
	ID          int64      `json:"id"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	IsActive    bool       `json:"isActive"`
	SavingsGoal *int64     `json:"savingsGoal"`
}

func toPeriodView(p core.Period) periodView {
	return periodView{ID: p.ID, StartDate: p.StartDate, EndDate: p.EndDate, IsActive: p.IsActive, SavingsGoal: p.SavingsGoal}
}

type fixedExpenseView struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Amount    int64      `json:"amount"`
	IsPaid    bool       `json:"isPaid"`
	PaidAt    *time.Time `json:"paidAt"`
	PaymentID *int64     `json:"paymentId"`
}

func toFixedExpenseViews(ss []core.FixedExpenseStatus) []fixedExpenseView {
	out := make([]fixedExpenseView, 0, len(ss))
	for _, s := range ss {
		out = append(out, fixedExpenseView{
			ID: s.ID, Name: s.Name, Amount: s.Amount,
			IsPaid: s.IsPaid, PaidAt: s.PaidAt, PaymentID: s.PaymentID,
		})
	}
	return out
}

type paymentView struct {
	ID             int64      `json:"id"`
	FixedExpenseID int64      `json:"fixedExpenseId"`
	PeriodID       int64      `json:"periodId"`
	IsPaid         bool       `json:"isPaid"`
	PaidAt         *time.Time `json:"paidAt"`
}

func toPaymentView(p core.FixedExpensePayment) paymentView {
	return paymentView{ID: p.ID, FixedExpenseID: p.FixedExpenseID, PeriodID: p.PeriodID, IsPaid: p.IsPaid, PaidAt: p.PaidAt}
}

type budgetView struct {
	ID       int64 `json:"id"`
	PeriodID int64 `json:"periodId"`
	Amount   int64 `json:"amount"`
}

func toBudgetView(b core.Budget) budgetView {
	return budgetView{ID: b.ID, PeriodID: b.PeriodID, Amount: b.Amount}
}

type dashboardView struct {
	Summary      core.PeriodSummary `json:"summary"`
	Transactions []transactionView  `json:"transactions"`
}

func toDashboardView(d core.Dashboard) dashboardView {
	return dashboardView{Summary: d.Summary, Transactions: toTransactionViews(d.Transactions)}
}
