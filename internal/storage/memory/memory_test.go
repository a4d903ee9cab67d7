package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

var _ ports.Store = (*Store)(nil)

func TestNewDedupesCategories(t *testing.T) {
	s := New([]string{"A", "B", "A", " "}, nil)
	cats, err := s.ListCategories(context.Background())
	if err != nil || len(cats) != 2 {
		t.Fatalf("unexpected categories: %v err=%v", cats, err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# comment\nComida\nGastos varios\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "seed_fixed_expenses.txt"), []byte("Arriendo;400000\nbroken line\nLuz;abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromFiles(dir)
	ctx := context.Background()
	cats, _ := s.ListCategories(ctx)
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %v", cats)
	}
	expenses, _ := s.FindFixedExpenses(ctx)
	if len(expenses) != 1 || expenses[0].Name != "Arriendo" || expenses[0].Amount != 400000 {
		t.Fatalf("unexpected fixed expenses %+v", expenses)
	}
}

func TestNewFromFilesFallsBackToSeed(t *testing.T) {
	s := NewFromFiles(t.TempDir())
	if _, err := s.FindCategoryByName(context.Background(), core.DefaultCategoryName); err != nil {
		t.Fatalf("expected default category from seed: %v", err)
	}
}

func TestPaymentUpsertAndClose(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p, _ := s.FindOrCreateActivePeriod(ctx, now)
	arriendo, _ := s.FindFixedExpenseByName(ctx, "ARRIENDO")

	a, _ := s.UpsertFixedExpensePayment(ctx, arriendo.ID, p.ID, true, now)
	b, _ := s.UpsertFixedExpensePayment(ctx, arriendo.ID, p.ID, true, now)
	if a.ID != b.ID {
		t.Fatalf("expected single payment record")
	}

	next, err := s.ClosePeriodAndCreateSuccessor(ctx, p.ID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.FindFixedExpensePayment(ctx, arriendo.ID, next.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("new period should have no payment rows, got %v", err)
	}

	closed, _ := s.ListClosedPeriods(ctx, 5)
	if len(closed) != 1 || len(closed[0].PaidPayments) != 1 {
		t.Fatalf("unexpected closed periods %+v", closed)
	}
	if _, err := s.ClosePeriodAndCreateSuccessor(ctx, p.ID, now); !errors.Is(err, core.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
}
