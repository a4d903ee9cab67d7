package analytics

import (
	"math"

	"michaucha/internal/core"
)

// PeriodData is a closed period with the transactions dated inside it.
type PeriodData struct {
	Closed       core.ClosedPeriod
	Transactions []core.Transaction
}

// Analyze averages income, spend and per-category spend across the given
// closed periods. Spend is fixed payments plus every transaction; unlike
// Summarize there is no virtual reconciliation.
func Analyze(periods []PeriodData) core.HistoricalAnalysis {
	result := core.HistoricalAnalysis{CategoryAverages: map[string]int64{}}
	if len(periods) == 0 {
		return result
	}

	var spend, income int64
	byCategory := map[string]int64{}
	for _, pd := range periods {
		if pd.Closed.Budget != nil {
			income += pd.Closed.Budget.Amount
		}
		for _, p := range pd.Closed.PaidPayments {
			if p.IsPaid {
				spend += p.Expense.Amount
			}
		}
		for _, tx := range pd.Transactions {
			spend += tx.Amount
			byCategory[tx.CategoryName] += tx.Amount
		}
	}

	n := len(periods)
	for name, total := range byCategory {
		result.CategoryAverages[name] = roundDiv(total, n)
	}
	result.AverageSpending = roundDiv(spend, n)
	result.AverageIncome = roundDiv(income, n)
	result.AverageSavings = roundDiv(income-spend, n)
	result.PeriodCount = n
	return result
}

// roundDiv rounds half up, so -2.5 becomes -2.
func roundDiv(total int64, n int) int64 {
	return int64(math.Floor(float64(total)/float64(n) + 0.5))
}
