package core

import (
	"errors"
	"testing"
	"time"
)

func TestParsePaymentMethod(t *testing.T) {
	cases := []struct {
		in   string
		want PaymentMethod
		ok   bool
	}{
		{"", Cash, true},
		{"cash", Cash, true},
		{"VISA", Visa, true},
		{" visa ", Visa, true},
		{"bitcoin", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePaymentMethod(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPaymentMethod) {
			t.Fatalf("%q expected ErrInvalidPaymentMethod, got %v", tc.in, err)
		}
	}
}

func TestNewTransactionValidate(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	good := NewTransaction{Amount: 5000, CategoryID: 1, PaymentMethod: Cash, Date: now}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewTransaction{
		{Amount: 0, PaymentMethod: Cash, Date: now},
		{Amount: 10, PaymentMethod: Cash},
		{Amount: 10, PaymentMethod: "CHEQUE", Date: now},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPeriodContains(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)

	closed := Period{StartDate: start, EndDate: &end}
	open := Period{StartDate: start, IsActive: true}

	if !closed.Contains(end, now) {
		t.Fatalf("end boundary should be inclusive")
	}
	if closed.Contains(now, now) {
		t.Fatalf("closed period should not contain dates after its end")
	}
	if !open.Contains(now, now) {
		t.Fatalf("open period should extend to now")
	}
	if open.Contains(start.Add(-time.Second), now) {
		t.Fatalf("dates before start should be excluded")
	}
}

func TestTransactionFilterMatches(t *testing.T) {
	cat := int64(2)
	visa := Visa
	f := TransactionFilter{CategoryID: &cat, PaymentMethod: &visa}

	if !f.Matches(Transaction{CategoryID: 2, PaymentMethod: Visa}) {
		t.Fatalf("expected match")
	}
	if f.Matches(Transaction{CategoryID: 2, PaymentMethod: Cash}) {
		t.Fatalf("payment method should be filtered")
	}
	if f.Matches(Transaction{CategoryID: 3, PaymentMethod: Visa}) {
		t.Fatalf("category should be filtered")
	}
}

func TestSeedContainsDefaultCategory(t *testing.T) {
	for _, name := range SeedCategories {
		if name == DefaultCategoryName {
			return
		}
	}
	t.Fatalf("seed categories must include %q", DefaultCategoryName)
}
