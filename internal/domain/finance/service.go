package finance

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
)

// Series defaults. The income change compares the last recentBuckets with the
// first previousBuckets of the series and is zero for shorter series.
const (
	DefaultSeriesLength = 7
	recentBuckets       = 3
	previousBuckets     = 4
)

// Summary is the all-time financial position.
type Summary struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Profit   decimal.Decimal
}

// Point is one bucket of a series.
type Point struct {
	Period   time.Time
	Label    string
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Profit   decimal.Decimal
}

// Series is a bucketed income and expense history.
type Series struct {
	Granularity Granularity
	Points      []Point
	Income      decimal.Decimal
	Expenses    decimal.Decimal
	Profit      decimal.Decimal
	// IncomeChange is the percentage change of recent income over the
	// earliest buckets, rounded to one decimal.
	IncomeChange decimal.Decimal
}

// Dashboard holds the back-office headline counters.
type Dashboard struct {
	Products      int
	LowStock      int
	PendingOrders int
}

// ProductCounter counts catalog products.
type ProductCounter interface {
	Count(ctx context.Context, maxStock int) (int, error)
}

// Service computes finance figures and manages expenses.
type Service struct {
	repo     Repository
	products ProductCounter
	loc      *time.Location
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the time zone used to bucket series.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a finance Service.
func NewService(repo Repository, products ProductCounter, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		products: products,
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddExpense validates and records an expense.
func (s *Service) AddExpense(ctx context.Context, e *Expense) error {
	e.ID = ""
	e.Normalize(s.now().In(s.loc))
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.repo.CreateExpense(ctx, e); err != nil {
		return errors.Wrap(err, "create expense")
	}
	return nil
}

// Expenses lists recorded expenses, most recent first.
func (s *Service) Expenses(ctx context.Context) ([]Expense, error) {
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}
	return expenses, nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return errors.Wrap(err, "delete expense")
	}
	return nil
}

// Summary returns income from completed orders, total expenses and profit.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var sum Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if sum.Income, err = s.repo.TotalIncome(ctx); err != nil {
			return errors.Wrap(err, "total income")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if sum.Expenses, err = s.repo.TotalExpenses(ctx); err != nil {
			return errors.Wrap(err, "total expenses")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sum.Profit = sum.Income.Sub(sum.Expenses)
	return &sum, nil
}

// Series returns the last n buckets of income and expenses, ending with the
// current one. A non-positive n selects DefaultSeriesLength.
func (s *Service) Series(ctx context.Context, gran Granularity, n int) (*Series, error) {
	if gran == "" {
		gran = Day
	}
	if !gran.Valid() {
		return nil, errors.Wrapf(ErrInvalidGranularity, "%q", gran)
	}
	if n <= 0 {
		n = DefaultSeriesLength
	}

	first := gran.Add(gran.Truncate(s.now().In(s.loc)), -(n - 1))
	r := Range{Granularity: gran, From: first, Location: s.loc}

	var income, expenses []Amount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if income, err = s.repo.IncomeByPeriod(gctx, r); err != nil {
			return errors.Wrap(err, "income by period")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if expenses, err = s.repo.ExpensesByPeriod(gctx, r); err != nil {
			return errors.Wrap(err, "expenses by period")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make([]Point, n)
	index := make(map[time.Time]int, n)
	for i := range points {
		period := gran.Add(first, i)
		points[i] = Point{
			Period:   period,
			Label:    label(gran, period),
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
		}
		index[period] = i
	}
	for _, a := range income {
		if i, ok := index[gran.Truncate(a.Period.In(s.loc))]; ok {
			points[i].Income = points[i].Income.Add(a.Value)
		}
	}
	for _, a := range expenses {
		if i, ok := index[gran.Truncate(a.Period.In(s.loc))]; ok {
			points[i].Expenses = points[i].Expenses.Add(a.Value)
		}
	}

	out := &Series{Granularity: gran, Points: points, Income: decimal.Zero, Expenses: decimal.Zero}
	for i := range points {
		points[i].Profit = points[i].Income.Sub(points[i].Expenses)
		out.Income = out.Income.Add(points[i].Income)
		out.Expenses = out.Expenses.Add(points[i].Expenses)
	}
	out.Profit = out.Income.Sub(out.Expenses)
	out.IncomeChange = incomeChange(points)
	return out, nil
}

func incomeChange(points []Point) decimal.Decimal {
	if len(points) < recentBuckets+previousBuckets {
		return decimal.Zero
	}
	recent, previous := decimal.Zero, decimal.Zero
	for i, p := range points {
		if i >= len(points)-recentBuckets {
			recent = recent.Add(p.Income)
		}
		if i < previousBuckets {
			previous = previous.Add(p.Income)
		}
	}
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return recent.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1)
}

func label(g Granularity, t time.Time) string {
	if g == Month {
		return t.Format("01/2006")
	}
	return t.Format("02/01")
}

// Dashboard returns product, low stock and pending order counters.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if d.Products, err = s.products.Count(ctx, 0); err != nil {
			return errors.Wrap(err, "count products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.LowStock, err = s.products.Count(ctx, product.LowStockThreshold); err != nil {
			return errors.Wrap(err, "count low stock")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if d.PendingOrders, err = s.repo.CountOrders(ctx, order.StatusPending); err != nil {
			return errors.Wrap(err, "count pending orders")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
