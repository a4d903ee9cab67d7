// Package postgres is a ports.Store backed by PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"michaucha/internal/core"
	"michaucha/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

// Open connects, runs migrations and returns a ready store.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RunMigrations applies the embedded migrations. The pgx/v5 migrate driver
// registers under the pgx5 scheme.
func RunMigrations(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	_, err = storage.Up(m)
	return err
}

func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) serializable(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

func wrap(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) FindCategoryByName(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM categories WHERE name = $1`, name).Scan(&c.ID, &c.Name)
	if err != nil {
		return core.Category{}, wrap(err, "find category "+name)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Category, error) {
		var c core.Category
		err := r.Scan(&c.ID, &c.Name)
		return c, err
	})
}

const transactionSelect = `SELECT t.id, t.amount, t.category_id, c.name, t.description, t.payment_method, t.date, t.created_at
FROM transactions t JOIN categories c ON c.id = t.category_id`

func scanTransaction(r pgx.Row) (core.Transaction, error) {
	var t core.Transaction
	var method string
	err := r.Scan(&t.ID, &t.Amount, &t.CategoryID, &t.CategoryName, &t.Description, &method, &t.Date, &t.CreatedAt)
	t.PaymentMethod = core.PaymentMethod(method)
	return t, err
}

func (s *Store) CreateTransaction(ctx context.Context, t core.NewTransaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (amount, category_id, description, payment_method, date)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		t.Amount, t.CategoryID, t.Description, string(t.PaymentMethod), t.Date).Scan(&id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx, transactionSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return core.Transaction{}, wrap(err, fmt.Sprintf("get transaction %d", id))
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("t.date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("t.date <= $%d", f.To)
	}
	if f.CategoryID != nil {
		add("t.category_id = $%d", *f.CategoryID)
	}
	if f.PaymentMethod != nil {
		add("t.payment_method = $%d", string(*f.PaymentMethod))
	}

	query := transactionSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.date DESC, t.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Transaction, error) {
		return scanTransaction(r)
	})
}

const periodSelect = `SELECT id, start_date, end_date, is_active, savings_goal FROM periods`

func scanPeriod(r pgx.Row) (core.Period, error) {
	var p core.Period
	err := r.Scan(&p.ID, &p.StartDate, &p.EndDate, &p.IsActive, &p.SavingsGoal)
	return p, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func listPeriods(ctx context.Context, q querier, query string, args ...any) ([]core.Period, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Period, error) {
		return scanPeriod(r)
	})
}

func (s *Store) FindOrCreateActivePeriod(ctx context.Context, now time.Time) (core.Period, error) {
	var period core.Period
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		active, err := listPeriods(ctx, tx, periodSelect+` WHERE is_active ORDER BY start_date DESC`)
		if err != nil {
			return fmt.Errorf("list active periods: %w", err)
		}
		if len(active) > 0 {
			period = active[0]
			return nil
		}
		period, err = scanPeriod(tx.QueryRow(ctx,
			`INSERT INTO periods (start_date, is_active) VALUES ($1, TRUE)
			 RETURNING id, start_date, end_date, is_active, savings_goal`, now))
		if err != nil {
			return fmt.Errorf("create period: %w", err)
		}
		return nil
	})
	return period, err
}

func (s *Store) FindPeriod(ctx context.Context, id int64) (core.Period, error) {
	p, err := scanPeriod(s.pool.QueryRow(ctx, periodSelect+` WHERE id = $1`, id))
	if err != nil {
		return core.Period{}, wrap(err, fmt.Sprintf("get period %d", id))
	}
	return p, nil
}

func (s *Store) ListActivePeriods(ctx context.Context) ([]core.Period, error) {
	periods, err := listPeriods(ctx, s.pool, periodSelect+` WHERE is_active ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active periods: %w", err)
	}
	return periods, nil
}

func (s *Store) ClosePeriodAndCreateSuccessor(ctx context.Context, periodID int64, now time.Time) (core.Period, error) {
	var next core.Period
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE periods SET is_active = FALSE, end_date = $2 WHERE id = $1 AND is_active`, periodID, now)
		if err != nil {
			return fmt.Errorf("close period %d: %w", periodID, err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := scanPeriod(tx.QueryRow(ctx, periodSelect+` WHERE id = $1`, periodID)); err != nil {
				return wrap(err, fmt.Sprintf("close period %d", periodID))
			}
			return fmt.Errorf("close period %d: %w", periodID, core.ErrPeriodClosed)
		}
		next, err = scanPeriod(tx.QueryRow(ctx,
			`INSERT INTO periods (start_date, is_active) VALUES ($1, TRUE)
			 RETURNING id, start_date, end_date, is_active, savings_goal`, now))
		if err != nil {
			return fmt.Errorf("create successor period: %w", err)
		}
		return nil
	})
	return next, err
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, periodID, amount int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE periods SET savings_goal = $2 WHERE id = $1`, periodID, amount)
	if err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update savings goal for period %d: %w", periodID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListClosedPeriods(ctx context.Context, limit int) ([]core.ClosedPeriod, error) {
	periods, err := listPeriods(ctx, s.pool, periodSelect+` WHERE NOT is_active ORDER BY end_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list closed periods: %w", err)
	}
	out := make([]core.ClosedPeriod, 0, len(periods))
	for _, p := range periods {
		cp := core.ClosedPeriod{Period: p}
		b, err := s.FindBudget(ctx, p.ID)
		switch {
		case err == nil:
			cp.Budget = &b
		case !errors.Is(err, core.ErrNotFound):
			return nil, err
		}
		if cp.PaidPayments, err = s.ListPaidPayments(ctx, p.ID); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) UpsertBudget(ctx context.Context, periodID, amount int64) (core.Budget, error) {
	if amount < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	var b core.Budget
	err := s.pool.QueryRow(ctx,
		`INSERT INTO budgets (period_id, amount) VALUES ($1, $2)
		 ON CONFLICT (period_id) DO UPDATE SET amount = EXCLUDED.amount
		 RETURNING id, period_id, amount`, periodID, amount).Scan(&b.ID, &b.PeriodID, &b.Amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (s *Store) FindBudget(ctx context.Context, periodID int64) (core.Budget, error) {
	var b core.Budget
	err := s.pool.QueryRow(ctx, `SELECT id, period_id, amount FROM budgets WHERE period_id = $1`, periodID).
		Scan(&b.ID, &b.PeriodID, &b.Amount)
	if err != nil {
		return core.Budget{}, wrap(err, fmt.Sprintf("find budget for period %d", periodID))
	}
	return b, nil
}

func (s *Store) FindFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, amount FROM fixed_expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[core.FixedExpense])
}

func (s *Store) FindFixedExpenseByName(ctx context.Context, name string) (core.FixedExpense, error) {
	var e core.FixedExpense
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, amount FROM fixed_expenses WHERE lower(name) = lower($1) ORDER BY id LIMIT 1`,
		strings.TrimSpace(name)).Scan(&e.ID, &e.Name, &e.Amount)
	if err != nil {
		return core.FixedExpense{}, wrap(err, "find fixed expense "+name)
	}
	return e, nil
}

func (s *Store) UpdateFixedExpenseAmount(ctx context.Context, id, amount int64) error {
	if amount < 0 {
		return core.ErrInvalidAmount
	}
	tag, err := s.pool.Exec(ctx, `UPDATE fixed_expenses SET amount = $2 WHERE id = $1`, id, amount)
	if err != nil {
		return fmt.Errorf("update fixed expense %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update fixed expense %d: %w", id, core.ErrNotFound)
	}
	return nil
}

const paymentSelect = `SELECT p.id, p.fixed_expense_id, p.period_id, p.is_paid, p.paid_at, e.id, e.name, e.amount
FROM fixed_expense_payments p JOIN fixed_expenses e ON e.id = p.fixed_expense_id`

func scanPayment(r pgx.Row) (core.FixedExpensePayment, error) {
	var p core.FixedExpensePayment
	err := r.Scan(&p.ID, &p.FixedExpenseID, &p.PeriodID, &p.IsPaid, &p.PaidAt, &p.Expense.ID, &p.Expense.Name, &p.Expense.Amount)
	return p, err
}

func (s *Store) FindFixedExpensePayment(ctx context.Context, expenseID, periodID int64) (core.FixedExpensePayment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, paymentSelect+` WHERE p.fixed_expense_id = $1 AND p.period_id = $2`, expenseID, periodID))
	if err != nil {
		return core.FixedExpensePayment{}, wrap(err, fmt.Sprintf("find payment %d/%d", expenseID, periodID))
	}
	return p, nil
}

func (s *Store) UpsertFixedExpensePayment(ctx context.Context, expenseID, periodID int64, isPaid bool, now time.Time) (core.FixedExpensePayment, error) {
	var paidAt *time.Time
	if isPaid {
		paidAt = &now
	}
	var payment core.FixedExpensePayment
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fixed_expenses WHERE id = $1)`, expenseID).Scan(&exists); err != nil {
			return fmt.Errorf("check fixed expense: %w", err)
		}
		if !exists {
			return fmt.Errorf("fixed expense %d: %w", expenseID, core.ErrNotFound)
		}
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM periods WHERE id = $1)`, periodID).Scan(&exists); err != nil {
			return fmt.Errorf("check period: %w", err)
		}
		if !exists {
			return fmt.Errorf("period %d: %w", periodID, core.ErrNotFound)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO fixed_expense_payments (fixed_expense_id, period_id, is_paid, paid_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (fixed_expense_id, period_id) DO UPDATE SET is_paid = EXCLUDED.is_paid, paid_at = EXCLUDED.paid_at`,
			expenseID, periodID, isPaid, paidAt)
		if err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}
		payment, err = scanPayment(tx.QueryRow(ctx, paymentSelect+` WHERE p.fixed_expense_id = $1 AND p.period_id = $2`, expenseID, periodID))
		if err != nil {
			return fmt.Errorf("reload payment: %w", err)
		}
		return nil
	})
	return payment, err
}

func (s *Store) ListPaidPayments(ctx context.Context, periodID int64) ([]core.FixedExpensePayment, error) {
	rows, err := s.pool.Query(ctx, paymentSelect+` WHERE p.period_id = $1 AND p.is_paid ORDER BY p.fixed_expense_id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list paid payments: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.FixedExpensePayment, error) {
		return scanPayment(r)
	})
}
