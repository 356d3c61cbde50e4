package finance

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/pasteleia/bakery/internal/domain/order"
)

// ErrNotFound is returned when a requested expense does not exist.
var ErrNotFound = errors.New("expense not found")

// ErrInvalidGranularity is returned for an unknown series bucket width.
var ErrInvalidGranularity = errors.New("unknown granularity")

// Category classifies expenses.
type Category string

// Expense categories.
const (
	CategorySupplies  Category = "Insumos"
	CategoryUtilities Category = "Servicios"
	CategoryEquipment Category = "Equipamiento"
	CategoryLogistics Category = "Logística"
	CategoryOther     Category = "Otros"
)

// Categories lists expense categories in display order.
var Categories = []Category{
	CategorySupplies,
	CategoryUtilities,
	CategoryEquipment,
	CategoryLogistics,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is money spent by the bakery.
type Expense struct {
	ID          string
	Description string
	Amount      decimal.Decimal
	Category    Category
	Date        time.Time
	CreatedAt   time.Time
}

// InvalidExpenseError reports an expense field that failed validation.
type InvalidExpenseError struct {
	Field  string
	Reason string
}

func (e *InvalidExpenseError) Error() string {
	return "invalid expense " + e.Field + ": " + e.Reason
}

// Normalize trims the description and fills in defaults.
func (e *Expense) Normalize(now time.Time) {
	e.Description = strings.TrimSpace(e.Description)
	if e.Category == "" {
		e.Category = CategorySupplies
	}
	if e.Date.IsZero() {
		e.Date = now
	}
}

// Validate checks the expense fields.
func (e *Expense) Validate() error {
	switch {
	case e.Description == "":
		return &InvalidExpenseError{Field: "description", Reason: "required"}
	case !e.Amount.IsPositive():
		return &InvalidExpenseError{Field: "amount", Reason: "must be greater than 0"}
	case !e.Category.Valid():
		return &InvalidExpenseError{Field: "category", Reason: "unknown category " + string(e.Category)}
	}
	return nil
}

// Granularity is the width of a series bucket.
type Granularity string

// Bucket widths.
const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool { return g == Day || g == Month }

// Truncate returns the start of the bucket holding t.
func (g Granularity) Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	if g == Month {
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Add moves t by n buckets.
func (g Granularity) Add(t time.Time, n int) time.Time {
	if g == Month {
		return t.AddDate(0, n, 0)
	}
	return t.AddDate(0, 0, n)
}

// Amount is a sum of money over one bucket.
type Amount struct {
	Period time.Time
	Value  decimal.Decimal
}

// Range selects the buckets of a series query.
type Range struct {
	Granularity Granularity
	From        time.Time
	Location    *time.Location
}

// Repository defines persistence operations for finance data.
type Repository interface {
	CreateExpense(ctx context.Context, e *Expense) error
	// ListExpenses returns expenses, most recent first.
	ListExpenses(ctx context.Context) ([]Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	// TotalIncome sums the totals of completed orders.
	TotalIncome(ctx context.Context) (decimal.Decimal, error)
	TotalExpenses(ctx context.Context) (decimal.Decimal, error)
	// IncomeByPeriod sums completed order totals per bucket. Buckets without
	// orders are omitted.
	IncomeByPeriod(ctx context.Context, r Range) ([]Amount, error)
	// ExpensesByPeriod sums expenses per bucket. Empty buckets are omitted.
	ExpensesByPeriod(ctx context.Context, r Range) ([]Amount, error)
	// CountOrders counts orders in the given status.
	CountOrders(ctx context.Context, status order.Status) (int, error)
}
