// Package memory is an in-process ports.Store used for tests and local runs.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"michaucha/internal/core"
)

type paymentKey struct {
	expenseID int64
	periodID  int64
}

type Store struct {
	mu       sync.Mutex
	nextID   int64
	cats     []core.Category
	txs      []core.Transaction
	periods  []core.Period
	budgets  map[int64]core.Budget
	expenses []core.FixedExpense
	payments map[paymentKey]core.FixedExpensePayment
}

// New seeds a store with the given category names and fixed expenses.
func New(categories []string, expenses []core.FixedExpense) *Store {
	s := &Store{
		budgets:  map[int64]core.Budget{},
		payments: map[paymentKey]core.FixedExpensePayment{},
	}
	for _, name := range dedupe(categories) {
		s.cats = append(s.cats, core.Category{ID: s.id(), Name: name})
	}
	for _, e := range expenses {
		e.ID = s.id()
		s.expenses = append(s.expenses, e)
	}
	return s
}

// NewSeeded uses the built-in seed data.
func NewSeeded() *Store {
	return New(core.SeedCategories, core.SeedFixedExpenses)
}

// NewFromFiles reads seed_categories.txt (one name per line) and
// seed_fixed_expenses.txt ("Name;amount" per line) from base, falling back to
// the built-in seed for missing files.
func NewFromFiles(base string) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = core.SeedCategories
	}
	var expenses []core.FixedExpense
	for _, line := range readLines(filepath.Join(base, "seed_fixed_expenses.txt")) {
		name, amount, ok := strings.Cut(line, ";")
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
		if err != nil || v < 0 {
			continue
		}
		expenses = append(expenses, core.FixedExpense{Name: strings.TrimSpace(name), Amount: v})
	}
	if len(expenses) == 0 {
		expenses = core.SeedFixedExpenses
	}
	return New(cats, expenses)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Close() error { return nil }

func (s *Store) FindCategoryByName(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.Name == name {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("find category %s: %w", name, core.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Category(nil), s.cats...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) categoryName(id int64) (string, bool) {
	for _, c := range s.cats {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

func (s *Store) CreateTransaction(_ context.Context, t core.NewTransaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.categoryName(t.CategoryID)
	if !ok {
		return core.Transaction{}, fmt.Errorf("category %d: %w", t.CategoryID, core.ErrNotFound)
	}
	tx := core.Transaction{
		ID:            s.id(),
		Amount:        t.Amount,
		CategoryID:    t.CategoryID,
		CategoryName:  name,
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
		Date:          t.Date,
		CreatedAt:     time.Now(),
	}
	s.txs = append(s.txs, tx)
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.txs {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) activePeriods() []core.Period {
	var out []core.Period
	for _, p := range s.periods {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out
}

func (s *Store) FindOrCreateActivePeriod(_ context.Context, now time.Time) (core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active := s.activePeriods(); len(active) > 0 {
		return active[0], nil
	}
	p := core.Period{ID: s.id(), StartDate: now, IsActive: true}
	s.periods = append(s.periods, p)
	return p, nil
}

func (s *Store) periodIndex(id int64) int {
	for i, p := range s.periods {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) FindPeriod(_ context.Context, id int64) (core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.periodIndex(id); i >= 0 {
		return s.periods[i], nil
	}
	return core.Period{}, fmt.Errorf("get period %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListActivePeriods(_ context.Context) ([]core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePeriods(), nil
}

func (s *Store) ClosePeriodAndCreateSuccessor(_ context.Context, periodID int64, now time.Time) (core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.periodIndex(periodID)
	if i < 0 {
		return core.Period{}, fmt.Errorf("close period %d: %w", periodID, core.ErrNotFound)
	}
	if !s.periods[i].IsActive {
		return core.Period{}, fmt.Errorf("close period %d: %w", periodID, core.ErrPeriodClosed)
	}
	end := now
	s.periods[i].IsActive = false
	s.periods[i].EndDate = &end

	next := core.Period{ID: s.id(), StartDate: now, IsActive: true}
	s.periods = append(s.periods, next)
	return next, nil
}

func (s *Store) UpdateSavingsGoal(_ context.Context, periodID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.periodIndex(periodID)
	if i < 0 {
		return fmt.Errorf("update savings goal for period %d: %w", periodID, core.ErrNotFound)
	}
	goal := amount
	s.periods[i].SavingsGoal = &goal
	return nil
}

func (s *Store) ListClosedPeriods(_ context.Context, limit int) ([]core.ClosedPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var closed []core.Period
	for _, p := range s.periods {
		if !p.IsActive && p.EndDate != nil {
			closed = append(closed, p)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool { return closed[i].EndDate.After(*closed[j].EndDate) })
	if limit >= 0 && len(closed) > limit {
		closed = closed[:limit]
	}

	out := make([]core.ClosedPeriod, 0, len(closed))
	for _, p := range closed {
		cp := core.ClosedPeriod{Period: p, PaidPayments: s.paidPayments(p.ID)}
		if b, ok := s.budgets[p.ID]; ok {
			b := b
			cp.Budget = &b
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) UpsertBudget(_ context.Context, periodID, amount int64) (core.Budget, error) {
	if amount < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.periodIndex(periodID) < 0 {
		return core.Budget{}, fmt.Errorf("upsert budget for period %d: %w", periodID, core.ErrNotFound)
	}
	b, ok := s.budgets[periodID]
	if !ok {
		b = core.Budget{ID: s.id(), PeriodID: periodID}
	}
	b.Amount = amount
	s.budgets[periodID] = b
	return b, nil
}

func (s *Store) FindBudget(_ context.Context, periodID int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.budgets[periodID]; ok {
		return b, nil
	}
	return core.Budget{}, fmt.Errorf("find budget for period %d: %w", periodID, core.ErrNotFound)
}

func (s *Store) FindFixedExpenses(_ context.Context) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.FixedExpense(nil), s.expenses...), nil
}

func (s *Store) FindFixedExpenseByName(_ context.Context, name string) (core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	for _, e := range s.expenses {
		if strings.EqualFold(e.Name, name) {
			return e, nil
		}
	}
	return core.FixedExpense{}, fmt.Errorf("find fixed expense %s: %w", name, core.ErrNotFound)
}

func (s *Store) expense(id int64) (core.FixedExpense, bool) {
	for _, e := range s.expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.FixedExpense{}, false
}

func (s *Store) UpdateFixedExpenseAmount(_ context.Context, id, amount int64) error {
	if amount < 0 {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.expenses {
		if s.expenses[i].ID == id {
			s.expenses[i].Amount = amount
			return nil
		}
	}
	return fmt.Errorf("update fixed expense %d: %w", id, core.ErrNotFound)
}

// withExpense refreshes the embedded expense so amount edits are visible.
func (s *Store) withExpense(p core.FixedExpensePayment) core.FixedExpensePayment {
	if e, ok := s.expense(p.FixedExpenseID); ok {
		p.Expense = e
	}
	return p
}

func (s *Store) FindFixedExpensePayment(_ context.Context, expenseID, periodID int64) (core.FixedExpensePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[paymentKey{expenseID, periodID}]; ok {
		return s.withExpense(p), nil
	}
	return core.FixedExpensePayment{}, fmt.Errorf("find payment %d/%d: %w", expenseID, periodID, core.ErrNotFound)
}

func (s *Store) UpsertFixedExpensePayment(_ context.Context, expenseID, periodID int64, isPaid bool, now time.Time) (core.FixedExpensePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expense(expenseID)
	if !ok {
		return core.FixedExpensePayment{}, fmt.Errorf("fixed expense %d: %w", expenseID, core.ErrNotFound)
	}
	if s.periodIndex(periodID) < 0 {
		return core.FixedExpensePayment{}, fmt.Errorf("period %d: %w", periodID, core.ErrNotFound)
	}

	key := paymentKey{expenseID, periodID}
	p, exists := s.payments[key]
	if !exists {
		p = core.FixedExpensePayment{ID: s.id(), FixedExpenseID: expenseID, PeriodID: periodID}
	}
	p.IsPaid = isPaid
	p.PaidAt = nil
	if isPaid {
		at := now
		p.PaidAt = &at
	}
	p.Expense = e
	s.payments[key] = p
	return p, nil
}

func (s *Store) paidPayments(periodID int64) []core.FixedExpensePayment {
	var out []core.FixedExpensePayment
	for _, p := range s.payments {
		if p.PeriodID == periodID && p.IsPaid {
			out = append(out, s.withExpense(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FixedExpenseID < out[j].FixedExpenseID })
	return out
}

func (s *Store) ListPaidPayments(_ context.Context, periodID int64) ([]core.FixedExpensePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paidPayments(periodID), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupe keeps the first occurrence of each trimmed, non-empty value.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
