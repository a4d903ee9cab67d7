package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"michaucha/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN builds a modernc sqlite DSN. Transactions start with BEGIN IMMEDIATE
// so read-modify-write sequences hold the write lock from the start.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// inTx runs fn inside a single immediate transaction.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, name string) (core.Category, error) {
	row, err := r.queries.GetCategoryByName(ctx, name)
	if err != nil {
		return core.Category{}, notFound(err, "find category "+name)
	}
	return core.Category{ID: row.ID, Name: row.Name}, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Category{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func toTransaction(row TransactionRow) core.Transaction {
	return core.Transaction{
		ID:            row.ID,
		Amount:        row.Amount,
		CategoryID:    row.CategoryID,
		CategoryName:  row.CategoryName,
		Description:   row.Description,
		PaymentMethod: core.PaymentMethod(row.PaymentMethod),
		Date:          fromMillis(row.Date),
		CreatedAt:     fromMillis(row.CreatedAt),
	}
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.NewTransaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	id, err := r.queries.CreateTransaction(ctx, t.Amount, t.CategoryID, t.Description,
		string(t.PaymentMethod), toMillis(t.Date), toMillis(time.Now()))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", id, "amount", t.Amount, "category_id", t.CategoryID)

	return r.GetTransaction(ctx, id)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, notFound(err, fmt.Sprintf("get transaction %d", id))
	}
	return toTransaction(row), nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	arg := ListTransactionsParams{From: toMillis(f.From), To: toMillisUpper(f.To)}
	if f.CategoryID != nil {
		arg.CategoryID = sql.NullInt64{Int64: *f.CategoryID, Valid: true}
	}
	if f.PaymentMethod != nil {
		arg.PaymentMethod = sql.NullString{String: string(*f.PaymentMethod), Valid: true}
	}
	rows, err := r.queries.ListTransactions(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransaction(row))
	}
	return out, nil
}

func toPeriod(row PeriodRow) core.Period {
	p := core.Period{ID: row.ID, StartDate: fromMillis(row.StartDate), IsActive: row.IsActive}
	if row.EndDate.Valid {
		end := fromMillis(row.EndDate.Int64)
		p.EndDate = &end
	}
	if row.SavingsGoal.Valid {
		goal := row.SavingsGoal.Int64
		p.SavingsGoal = &goal
	}
	return p
}

func (r *SQLiteRepository) FindOrCreateActivePeriod(ctx context.Context, now time.Time) (core.Period, error) {
	var period core.Period
	err := r.inTx(ctx, func(q *Queries) error {
		active, err := q.ListActivePeriods(ctx)
		if err != nil {
			return fmt.Errorf("list active periods: %w", err)
		}
		if len(active) > 0 {
			period = toPeriod(active[0])
			return nil
		}
		row, err := q.CreatePeriod(ctx, toMillis(now))
		if err != nil {
			return fmt.Errorf("create period: %w", err)
		}
		period = toPeriod(row)
		return nil
	})
	return period, err
}

func (r *SQLiteRepository) FindPeriod(ctx context.Context, id int64) (core.Period, error) {
	row, err := r.queries.GetPeriod(ctx, id)
	if err != nil {
		return core.Period{}, notFound(err, fmt.Sprintf("get period %d", id))
	}
	return toPeriod(row), nil
}

func (r *SQLiteRepository) ListActivePeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.queries.ListActivePeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active periods: %w", err)
	}
	out := make([]core.Period, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPeriod(row))
	}
	return out, nil
}

func (r *SQLiteRepository) ClosePeriodAndCreateSuccessor(ctx context.Context, periodID int64, now time.Time) (core.Period, error) {
	var next core.Period
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.ClosePeriod(ctx, periodID, toMillis(now))
		if err != nil {
			return fmt.Errorf("close period %d: %w", periodID, err)
		}
		if n == 0 {
			if _, err := q.GetPeriod(ctx, periodID); err != nil {
				return notFound(err, fmt.Sprintf("close period %d", periodID))
			}
			return fmt.Errorf("close period %d: %w", periodID, core.ErrPeriodClosed)
		}
		row, err := q.CreatePeriod(ctx, toMillis(now))
		if err != nil {
			return fmt.Errorf("create successor period: %w", err)
		}
		next = toPeriod(row)
		return nil
	})
	return next, err
}

func (r *SQLiteRepository) UpdateSavingsGoal(ctx context.Context, periodID, amount int64) error {
	n, err := r.queries.UpdateSavingsGoal(ctx, periodID, amount)
	if err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update savings goal for period %d: %w", periodID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListClosedPeriods(ctx context.Context, limit int) ([]core.ClosedPeriod, error) {
	rows, err := r.queries.ListClosedPeriods(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list closed periods: %w", err)
	}
	out := make([]core.ClosedPeriod, 0, len(rows))
	for _, row := range rows {
		cp := core.ClosedPeriod{Period: toPeriod(row)}
		budget, err := r.FindBudget(ctx, row.ID)
		switch {
		case err == nil:
			cp.Budget = &budget
		case !errors.Is(err, core.ErrNotFound):
			return nil, err
		}
		if cp.PaidPayments, err = r.ListPaidPayments(ctx, row.ID); err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, periodID, amount int64) (core.Budget, error) {
	if amount < 0 {
		return core.Budget{}, core.ErrInvalidAmount
	}
	row, err := r.queries.UpsertBudget(ctx, periodID, amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return core.Budget{ID: row.ID, PeriodID: row.PeriodID, Amount: row.Amount}, nil
}

func (r *SQLiteRepository) FindBudget(ctx context.Context, periodID int64) (core.Budget, error) {
	row, err := r.queries.GetBudget(ctx, periodID)
	if err != nil {
		return core.Budget{}, notFound(err, fmt.Sprintf("find budget for period %d", periodID))
	}
	return core.Budget{ID: row.ID, PeriodID: row.PeriodID, Amount: row.Amount}, nil
}

func (r *SQLiteRepository) FindFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	rows, err := r.queries.ListFixedExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	out := make([]core.FixedExpense, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.FixedExpense{ID: row.ID, Name: row.Name, Amount: row.Amount})
	}
	return out, nil
}

func (r *SQLiteRepository) FindFixedExpenseByName(ctx context.Context, name string) (core.FixedExpense, error) {
	row, err := r.queries.GetFixedExpenseByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return core.FixedExpense{}, notFound(err, "find fixed expense "+name)
	}
	return core.FixedExpense{ID: row.ID, Name: row.Name, Amount: row.Amount}, nil
}

func (r *SQLiteRepository) UpdateFixedExpenseAmount(ctx context.Context, id, amount int64) error {
	if amount < 0 {
		return core.ErrInvalidAmount
	}
	n, err := r.queries.UpdateFixedExpenseAmount(ctx, id, amount)
	if err != nil {
		return fmt.Errorf("update fixed expense %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update fixed expense %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func toPayment(row PaymentRow) core.FixedExpensePayment {
	p := core.FixedExpensePayment{
		ID:             row.ID,
		FixedExpenseID: row.FixedExpenseID,
		PeriodID:       row.PeriodID,
		IsPaid:         row.IsPaid,
		Expense:        core.FixedExpense{ID: row.FixedExpenseID, Name: row.ExpenseName, Amount: row.ExpenseAmount},
	}
	if row.PaidAt.Valid {
		at := fromMillis(row.PaidAt.Int64)
		p.PaidAt = &at
	}
	return p
}

func (r *SQLiteRepository) FindFixedExpensePayment(ctx context.Context, expenseID, periodID int64) (core.FixedExpensePayment, error) {
	row, err := r.queries.GetPayment(ctx, expenseID, periodID)
	if err != nil {
		return core.FixedExpensePayment{}, notFound(err, fmt.Sprintf("find payment %d/%d", expenseID, periodID))
	}
	return toPayment(row), nil
}

func (r *SQLiteRepository) UpsertFixedExpensePayment(ctx context.Context, expenseID, periodID int64, isPaid bool, now time.Time) (core.FixedExpensePayment, error) {
	var payment core.FixedExpensePayment
	err := r.inTx(ctx, func(q *Queries) error {
		if _, err := q.GetFixedExpense(ctx, expenseID); err != nil {
			return notFound(err, fmt.Sprintf("fixed expense %d", expenseID))
		}
		if _, err := q.GetPeriod(ctx, periodID); err != nil {
			return notFound(err, fmt.Sprintf("period %d", periodID))
		}
		var paidAt sql.NullInt64
		if isPaid {
			paidAt = sql.NullInt64{Int64: toMillis(now), Valid: true}
		}
		if err := q.UpsertPayment(ctx, expenseID, periodID, isPaid, paidAt); err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}
		row, err := q.GetPayment(ctx, expenseID, periodID)
		if err != nil {
			return fmt.Errorf("reload payment: %w", err)
		}
		payment = toPayment(row)
		return nil
	})
	return payment, err
}

func (r *SQLiteRepository) ListPaidPayments(ctx context.Context, periodID int64) ([]core.FixedExpensePayment, error) {
	rows, err := r.queries.ListPaidPayments(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("list paid payments: %w", err)
	}
	out := make([]core.FixedExpensePayment, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPayment(row))
	}
	return out, nil
}
