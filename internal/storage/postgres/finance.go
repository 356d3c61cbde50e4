package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pasteleia/bakery/internal/domain/finance"
	"github.com/pasteleia/bakery/internal/domain/order"
)

const (
	createExpenseSQL = `INSERT INTO expenses (description, amount, category, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at`

	listExpensesSQL = `SELECT id::text, description, amount, category, date, created_at
		FROM expenses ORDER BY date DESC, created_at DESC`

	deleteExpenseSQL = `DELETE FROM expenses WHERE id = $1`

	totalIncomeSQL = `SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = 'completed'`

	totalExpensesSQL = `SELECT COALESCE(SUM(amount), 0) FROM expenses`

	incomeByPeriodSQL = `SELECT date_trunc($1, created_at AT TIME ZONE $2) AS period, SUM(total)
		FROM orders
		WHERE status = 'completed' AND created_at >= $3
		GROUP BY period ORDER BY period`

	expensesByPeriodSQL = `SELECT date_trunc($1, date AT TIME ZONE $2) AS period, SUM(amount)
		FROM expenses
		WHERE date >= $3
		GROUP BY period ORDER BY period`

	countOrdersSQL = `SELECT count(*) FROM orders WHERE status = $1`
)

var _ finance.Repository = (*FinanceRepository)(nil)

// FinanceRepository implements finance.Repository backed by PostgreSQL.
type FinanceRepository struct {
	pool *pgxpool.Pool
}

// NewFinanceRepository returns a FinanceRepository that uses the given pool.
func NewFinanceRepository(pool *pgxpool.Pool) *FinanceRepository {
	return &FinanceRepository{pool: pool}
}

// CreateExpense inserts e and fills in its generated fields.
func (r *FinanceRepository) CreateExpense(ctx context.Context, e *finance.Expense) error {
	err := r.pool.QueryRow(ctx, createExpenseSQL,
		e.Description, e.Amount, string(e.Category), e.Date,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating expense: %w", err)
	}
	return nil
}

// ListExpenses returns every expense, most recent first.
func (r *FinanceRepository) ListExpenses(ctx context.Context) ([]finance.Expense, error) {
	rows, err := r.pool.Query(ctx, listExpensesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (finance.Expense, error) {
		var (
			e        finance.Expense
			category string
		)
		err := row.Scan(&e.ID, &e.Description, &e.Amount, &category, &e.Date, &e.CreatedAt)
		e.Category = finance.Category(category)
		return e, err
	})
}

// DeleteExpense removes an expense.
func (r *FinanceRepository) DeleteExpense(ctx context.Context, id string) error {
	if !validID(id) {
		return finance.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, deleteExpenseSQL, id)
	if err != nil {
		return fmt.Errorf("deleting expense %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return finance.ErrNotFound
	}
	return nil
}

// TotalIncome sums the totals of completed orders.
func (r *FinanceRepository) TotalIncome(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, totalIncomeSQL)
}

// TotalExpenses sums every expense.
func (r *FinanceRepository) TotalExpenses(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, totalExpensesSQL)
}

func (r *FinanceRepository) sum(ctx context.Context, query string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("summing: %w", err)
	}
	return total, nil
}

// IncomeByPeriod sums completed order totals per bucket of rng.
func (r *FinanceRepository) IncomeByPeriod(ctx context.Context, rng finance.Range) ([]finance.Amount, error) {
	return r.byPeriod(ctx, incomeByPeriodSQL, rng)
}

// ExpensesByPeriod sums expenses per bucket of rng.
func (r *FinanceRepository) ExpensesByPeriod(ctx context.Context, rng finance.Range) ([]finance.Amount, error) {
	return r.byPeriod(ctx, expensesByPeriodSQL, rng)
}

func (r *FinanceRepository) byPeriod(ctx context.Context, query string, rng finance.Range) ([]finance.Amount, error) {
	loc := rng.Location
	if loc == nil {
		loc = time.UTC
	}
	rows, err := r.pool.Query(ctx, query, string(rng.Granularity), loc.String(), rng.From)
	if err != nil {
		return nil, fmt.Errorf("grouping by %s: %w", rng.Granularity, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (finance.Amount, error) {
		var (
			a    finance.Amount
			wall time.Time
		)
		err := row.Scan(&wall, &a.Value)
		// The bucket is a wall-clock time in loc.
		a.Period = time.Date(wall.Year(), wall.Month(), wall.Day(), 0, 0, 0, 0, loc)
		return a, err
	})
}

// CountOrders counts orders in status.
func (r *FinanceRepository) CountOrders(ctx context.Context, status order.Status) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s orders: %w", status, err)
	}
	return n, nil
}
