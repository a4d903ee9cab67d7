package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"michaucha/internal/core"
	"michaucha/internal/ports"
)

var _ ports.Store = (*Store)(nil)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/db":   "pgx5://u:p@localhost:5432/db",
		"postgresql://u:p@localhost:5432/db": "pgx5://u:p@localhost:5432/db",
		"pgx5://already":                     "pgx5://already",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Errorf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

// Requires a disposable database in TEST_DATABASE_URL.
func TestStoreIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	p, err := s.FindOrCreateActivePeriod(ctx, now)
	if err != nil {
		t.Fatalf("FindOrCreateActivePeriod: %v", err)
	}
	luz, err := s.FindFixedExpenseByName(ctx, "luz")
	if err != nil {
		t.Fatalf("FindFixedExpenseByName: %v", err)
	}
	a, err := s.UpsertFixedExpensePayment(ctx, luz.ID, p.ID, true, now)
	if err != nil {
		t.Fatalf("UpsertFixedExpensePayment: %v", err)
	}
	b, _ := s.UpsertFixedExpensePayment(ctx, luz.ID, p.ID, true, now)
	if a.ID != b.ID {
		t.Fatalf("expected one payment row")
	}

	next, err := s.ClosePeriodAndCreateSuccessor(ctx, p.ID, now.Add(time.Second))
	if err != nil {
		t.Fatalf("ClosePeriodAndCreateSuccessor: %v", err)
	}
	if _, err := s.ClosePeriodAndCreateSuccessor(ctx, p.ID, now); !errors.Is(err, core.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
	active, _ := s.ListActivePeriods(ctx)
	if len(active) != 1 || active[0].ID != next.ID {
		t.Fatalf("expected only the successor active, got %+v", active)
	}
}
