package core

import "time"

// MaxExpensePlaceholder is reported when a period has no transactions.
const MaxExpensePlaceholder = "-"

type (
	MaxExpense struct {
		Category   string `json:"category"`
		Amount     int64  `json:"amount"`
		CategoryID *int64 `json:"categoryId"`
	}

	PeriodMeta struct {
		ID       int64      `json:"id"`
		Start    time.Time  `json:"start"`
		End      *time.Time `json:"end"`
		IsActive bool       `json:"isActive"`
	}

	PeriodSummary struct {
		TotalSpend        int64       `json:"totalSpend"`
		TransactionTotal  int64       `json:"transactionTotal"`
		VirtualFixedTotal int64       `json:"virtualFixedTotal"`
		Budget            int64       `json:"budget"`
		Remaining         int64       `json:"remaining"`
		SavingsGoal       int64       `json:"savingsGoal"`
		DailyAverage      int64       `json:"dailyAverage"`
		MaxExpense        MaxExpense  `json:"maxExpense"`
		Period            *PeriodMeta `json:"period"`
	}

	// Dashboard is the summary plus the transactions it was computed from.
	Dashboard struct {
		Summary      PeriodSummary `json:"summary"`
		Transactions []Transaction `json:"transactions"`
	}

	HistoricalAnalysis struct {
		AverageSpending  int64            `json:"averageSpending"`
		AverageIncome    int64            `json:"averageIncome"`
		AverageSavings   int64            `json:"averageSavings"`
		CategoryAverages map[string]int64 `json:"categoryAverages"`
		PeriodCount      int              `json:"periodCount"`
	}
)

// EmptySummary is the zero-state summary used before any period exists.
func EmptySummary() PeriodSummary {
	return PeriodSummary{
		MaxExpense: MaxExpense{Category: MaxExpensePlaceholder},
	}
}
