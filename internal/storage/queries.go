package storage

import (
	"context"
	"database/sql"
	"math"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type (
	CategoryRow struct {
		ID   int64
		Name string
	}

	FixedExpenseRow struct {
		ID     int64
		Name   string
		Amount int64
	}

	BudgetRow struct {
		ID       int64
		PeriodID int64
		Amount   int64
	}

	TransactionRow struct {
		ID            int64
		Amount        int64
		CategoryID    int64
		CategoryName  string
		Description   string
		PaymentMethod string
		Date          int64
		CreatedAt     int64
	}

	PeriodRow struct {
		ID          int64
		StartDate   int64
		EndDate     sql.NullInt64
		IsActive    bool
		SavingsGoal sql.NullInt64
	}

	PaymentRow struct {
		ID             int64
		FixedExpenseID int64
		PeriodID       int64
		IsPaid         bool
		PaidAt         sql.NullInt64
		ExpenseName    string
		ExpenseAmount  int64
	}

	ListTransactionsParams struct {
		From          int64
		To            int64
		CategoryID    sql.NullInt64
		PaymentMethod sql.NullString
	}
)

func toMillis(t time.Time) int64 { return t.UnixMilli() }

// toMillisUpper maps a zero upper bound to "no bound".
func toMillisUpper(t time.Time) int64 {
	if t.IsZero() {
		return math.MaxInt64
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

const getCategoryByName = `SELECT id, name FROM categories WHERE name = ?1`

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (CategoryRow, error) {
	var r CategoryRow
	err := q.db.QueryRowContext(ctx, getCategoryByName, name).Scan(&r.ID, &r.Name)
	return r, err
}

const listCategories = `SELECT id, name FROM categories ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var r CategoryRow
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const transactionColumns = `t.id, t.amount, t.category_id, c.name, t.description, t.payment_method, t.date, t.created_at`

func scanTransaction(sc interface{ Scan(...any) error }) (TransactionRow, error) {
	var r TransactionRow
	err := sc.Scan(&r.ID, &r.Amount, &r.CategoryID, &r.CategoryName, &r.Description, &r.PaymentMethod, &r.Date, &r.CreatedAt)
	return r, err
}

const createTransaction = `INSERT INTO transactions (amount, category_id, description, payment_method, date, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6)
RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, amount, categoryID int64, description, method string, date, createdAt int64) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createTransaction, amount, categoryID, description, method, date, createdAt).Scan(&id)
	return id, err
}

const getTransaction = `SELECT ` + transactionColumns + `
FROM transactions t JOIN categories c ON c.id = t.category_id
WHERE t.id = ?1`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?1`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listTransactions = `SELECT ` + transactionColumns + `
FROM transactions t JOIN categories c ON c.id = t.category_id
WHERE t.date >= ?1 AND t.date <= ?2
  AND (?3 IS NULL OR t.category_id = ?3)
  AND (?4 IS NULL OR t.payment_method = ?4)
ORDER BY t.date DESC, t.id DESC`

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.From, arg.To, arg.CategoryID, arg.PaymentMethod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const periodColumns = `id, start_date, end_date, is_active, savings_goal`

func scanPeriod(sc interface{ Scan(...any) error }) (PeriodRow, error) {
	var r PeriodRow
	err := sc.Scan(&r.ID, &r.StartDate, &r.EndDate, &r.IsActive, &r.SavingsGoal)
	return r, err
}

func (q *Queries) queryPeriods(ctx context.Context, query string, args ...any) ([]PeriodRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PeriodRow
	for rows.Next() {
		r, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getPeriod = `SELECT ` + periodColumns + ` FROM periods WHERE id = ?1`

func (q *Queries) GetPeriod(ctx context.Context, id int64) (PeriodRow, error) {
	return scanPeriod(q.db.QueryRowContext(ctx, getPeriod, id))
}

const listActivePeriods = `SELECT ` + periodColumns + ` FROM periods WHERE is_active = 1 ORDER BY start_date DESC`

func (q *Queries) ListActivePeriods(ctx context.Context) ([]PeriodRow, error) {
	return q.queryPeriods(ctx, listActivePeriods)
}

const listClosedPeriods = `SELECT ` + periodColumns + ` FROM periods WHERE is_active = 0 ORDER BY end_date DESC LIMIT ?1`

func (q *Queries) ListClosedPeriods(ctx context.Context, limit int64) ([]PeriodRow, error) {
	return q.queryPeriods(ctx, listClosedPeriods, limit)
}

const createPeriod = `INSERT INTO periods (start_date, is_active) VALUES (?1, 1) RETURNING ` + periodColumns

func (q *Queries) CreatePeriod(ctx context.Context, start int64) (PeriodRow, error) {
	return scanPeriod(q.db.QueryRowContext(ctx, createPeriod, start))
}

const closePeriod = `UPDATE periods SET is_active = 0, end_date = ?2 WHERE id = ?1 AND is_active = 1`

func (q *Queries) ClosePeriod(ctx context.Context, id, end int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, closePeriod, id, end)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateSavingsGoal = `UPDATE periods SET savings_goal = ?2 WHERE id = ?1`

func (q *Queries) UpdateSavingsGoal(ctx context.Context, id, amount int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateSavingsGoal, id, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const upsertBudget = `INSERT INTO budgets (period_id, amount) VALUES (?1, ?2)
ON CONFLICT (period_id) DO UPDATE SET amount = excluded.amount
RETURNING id, period_id, amount`

func (q *Queries) UpsertBudget(ctx context.Context, periodID, amount int64) (BudgetRow, error) {
	var r BudgetRow
	err := q.db.QueryRowContext(ctx, upsertBudget, periodID, amount).Scan(&r.ID, &r.PeriodID, &r.Amount)
	return r, err
}

const getBudget = `SELECT id, period_id, amount FROM budgets WHERE period_id = ?1`

func (q *Queries) GetBudget(ctx context.Context, periodID int64) (BudgetRow, error) {
	var r BudgetRow
	err := q.db.QueryRowContext(ctx, getBudget, periodID).Scan(&r.ID, &r.PeriodID, &r.Amount)
	return r, err
}

const listFixedExpenses = `SELECT id, name, amount FROM fixed_expenses ORDER BY id`

func (q *Queries) ListFixedExpenses(ctx context.Context) ([]FixedExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listFixedExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FixedExpenseRow
	for rows.Next() {
		var r FixedExpenseRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Amount); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getFixedExpense = `SELECT id, name, amount FROM fixed_expenses WHERE id = ?1`

func (q *Queries) GetFixedExpense(ctx context.Context, id int64) (FixedExpenseRow, error) {
	var r FixedExpenseRow
	err := q.db.QueryRowContext(ctx, getFixedExpense, id).Scan(&r.ID, &r.Name, &r.Amount)
	return r, err
}

const getFixedExpenseByName = `SELECT id, name, amount FROM fixed_expenses WHERE name = ?1 COLLATE NOCASE ORDER BY id LIMIT 1`

func (q *Queries) GetFixedExpenseByName(ctx context.Context, name string) (FixedExpenseRow, error) {
	var r FixedExpenseRow
	err := q.db.QueryRowContext(ctx, getFixedExpenseByName, name).Scan(&r.ID, &r.Name, &r.Amount)
	return r, err
}

const updateFixedExpenseAmount = `UPDATE fixed_expenses SET amount = ?2 WHERE id = ?1`

func (q *Queries) UpdateFixedExpenseAmount(ctx context.Context, id, amount int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateFixedExpenseAmount, id, amount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const paymentColumns = `p.id, p.fixed_expense_id, p.period_id, p.is_paid, p.paid_at, e.name, e.amount`

func scanPayment(sc interface{ Scan(...any) error }) (PaymentRow, error) {
	var r PaymentRow
	err := sc.Scan(&r.ID, &r.FixedExpenseID, &r.PeriodID, &r.IsPaid, &r.PaidAt, &r.ExpenseName, &r.ExpenseAmount)
	return r, err
}

const getPayment = `SELECT ` + paymentColumns + `
FROM fixed_expense_payments p JOIN fixed_expenses e ON e.id = p.fixed_expense_id
WHERE p.fixed_expense_id = ?1 AND p.period_id = ?2`

func (q *Queries) GetPayment(ctx context.Context, expenseID, periodID int64) (PaymentRow, error) {
	return scanPayment(q.db.QueryRowContext(ctx, getPayment, expenseID, periodID))
}

const upsertPayment = `INSERT INTO fixed_expense_payments (fixed_expense_id, period_id, is_paid, paid_at)
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT (fixed_expense_id, period_id) DO UPDATE SET is_paid = excluded.is_paid, paid_at = excluded.paid_at`

func (q *Queries) UpsertPayment(ctx context.Context, expenseID, periodID int64, isPaid bool, paidAt sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx, upsertPayment, expenseID, periodID, isPaid, paidAt)
	return err
}

const listPaidPayments = `SELECT ` + paymentColumns + `
FROM fixed_expense_payments p JOIN fixed_expenses e ON e.id = p.fixed_expense_id
WHERE p.period_id = ?1 AND p.is_paid = 1
ORDER BY p.fixed_expense_id`

func (q *Queries) ListPaidPayments(ctx context.Context, periodID int64) ([]PaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, listPaidPayments, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentRow
	for rows.Next() {
		r, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
