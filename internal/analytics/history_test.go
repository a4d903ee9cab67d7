package analytics

import (
	"testing"

	"michaucha/internal/core"
)

func TestAnalyzeEmpty(t *testing.T) {
	got := Analyze(nil)
	if got.PeriodCount != 0 || got.AverageSpending != 0 || got.AverageIncome != 0 || got.AverageSavings != 0 {
		t.Fatalf("expected zero result, got %+v", got)
	}
	if got.CategoryAverages == nil || len(got.CategoryAverages) != 0 {
		t.Fatalf("expected empty category map, got %v", got.CategoryAverages)
	}
}

func TestAnalyzeAverages(t *testing.T) {
	periods := []PeriodData{
		{
			Closed: core.ClosedPeriod{
				Budget:       &core.Budget{Amount: 600000},
				PaidPayments: []core.FixedExpensePayment{paid("Arriendo", 400000)},
			},
			Transactions: []core.Transaction{tx(20000, 2, "Almuerzos"), tx(10001, 3, "Locomocion")},
		},
		{
			Closed:       core.ClosedPeriod{},
			Transactions: []core.Transaction{tx(30000, 2, "Almuerzos")},
		},
	}

	got := Analyze(periods)
	if got.PeriodCount != 2 {
		t.Fatalf("period count = %d, want 2", got.PeriodCount)
	}
	// spend: (400000+30001) + 30000 = 460001 -> 230000.5 -> 230001
	if got.AverageSpending != 230001 {
		t.Errorf("average spending = %d, want 230001", got.AverageSpending)
	}
	if got.AverageIncome != 300000 {
		t.Errorf("average income = %d, want 300000", got.AverageIncome)
	}
	// savings: (600000-460001)/2 = 69999.5 -> 70000
	if got.AverageSavings != 70000 {
		t.Errorf("average savings = %d, want 70000", got.AverageSavings)
	}
	if got.CategoryAverages["Almuerzos"] != 25000 {
		t.Errorf("Almuerzos average = %d, want 25000", got.CategoryAverages["Almuerzos"])
	}
	// 10001/2 = 5000.5 -> 5001
	if got.CategoryAverages["Locomocion"] != 5001 {
		t.Errorf("Locomocion average = %d, want 5001", got.CategoryAverages["Locomocion"])
	}
}

func TestRoundDivHalfUp(t *testing.T) {
	cases := []struct {
		total int64
		n     int
		want  int64
	}{
		{5, 2, 3},
		{-5, 2, -2},
		{-7, 2, -3},
		{10, 3, 3},
	}
	for _, tc := range cases {
		if got := roundDiv(tc.total, tc.n); got != tc.want {
			t.Errorf("roundDiv(%d, %d) = %d, want %d", tc.total, tc.n, got, tc.want)
		}
	}
}
