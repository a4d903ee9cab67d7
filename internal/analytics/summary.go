// Package analytics computes period summaries and trailing averages from
// already fetched ledger data. Nothing here performs I/O.
package analytics

import (
	"math"
	"strings"
	"time"

	"michaucha/internal/core"
)

// SummaryInput is everything needed to summarise one period. A nil Period
// yields the zero-state summary.
type SummaryInput struct {
	Period *core.Period
	// Transactions in the store's default order (date descending). Ties for
	// the largest expense go to the first one.
	Transactions []core.Transaction
	PaidPayments []core.FixedExpensePayment
	Budget       *core.Budget
	Now          time.Time
}

// Summarize aggregates a period. Paid fixed expenses whose name does not
// appear among the transaction categories count as virtual spend.
func Summarize(in SummaryInput) core.PeriodSummary {
	if in.Period == nil {
		return core.EmptySummary()
	}

	var (
		txTotal    int64
		categories = make(map[string]struct{}, len(in.Transactions))
		largest    = core.MaxExpense{Category: core.MaxExpensePlaceholder}
		haveMax    bool
	)
	for _, tx := range in.Transactions {
		txTotal += tx.Amount
		categories[strings.ToLower(tx.CategoryName)] = struct{}{}
		if !haveMax || tx.Amount > largest.Amount {
			id := tx.CategoryID
			largest = core.MaxExpense{Category: tx.CategoryName, Amount: tx.Amount, CategoryID: &id}
			haveMax = true
		}
	}

	var virtual int64
	for _, p := range in.PaidPayments {
		if !p.IsPaid {
			continue
		}
		if _, logged := categories[strings.ToLower(p.Expense.Name)]; !logged {
			virtual += p.Expense.Amount
		}
	}

	total := txTotal + virtual

	var budget int64
	if in.Budget != nil {
		budget = in.Budget.Amount
	}
	var goal int64
	if in.Period.SavingsGoal != nil {
		goal = *in.Period.SavingsGoal
	}

	return core.PeriodSummary{
		TotalSpend:        total,
		TransactionTotal:  txTotal,
		VirtualFixedTotal: virtual,
		Budget:            budget,
		Remaining:         budget - total,
		SavingsGoal:       goal,
		DailyAverage:      int64(math.Round(float64(total) / float64(ElapsedDays(*in.Period, in.Now)))),
		MaxExpense:        largest,
		Period: &core.PeriodMeta{
			ID:       in.Period.ID,
			Start:    in.Period.StartDate,
			End:      in.Period.EndDate,
			IsActive: in.Period.IsActive,
		},
	}
}

// ElapsedDays is the number of started days in the period, never less than 1.
func ElapsedDays(p core.Period, now time.Time) int64 {
	d := p.Until(now).Sub(p.StartDate)
	days := int64(math.Ceil(d.Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}
