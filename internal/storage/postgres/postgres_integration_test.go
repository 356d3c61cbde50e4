//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pasteleia/bakery/internal/domain/auth"
	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/finance"
	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
	"github.com/pasteleia/bakery/internal/domain/recipe"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("bakery"),
		tcpostgres.WithUsername("bakery"),
		tcpostgres.WithPassword("bakery"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// A second run is a no-op.
	if err := RunMigrations(testPool); err != nil {
		log.Fatalf("migrations rerun: %v", err)
	}

	return m.Run()
}

func createTestProduct(t *testing.T, name string, stock int) *product.Product {
	t.Helper()
	p := &product.Product{
		Name:     name,
		Price:    decimal.RequireFromString("1500.50"),
		Stock:    stock,
		Active:   true,
		Category: product.CategoryTartas,
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), p))
	return p
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	p := createTestProduct(t, "Lemon pie", 4)
	assert.NotEmpty(t, p.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(got.Price))
	assert.Equal(t, product.CategoryTartas, got.Category)

	got.Active = false
	got.Category = product.CategoryBudines
	require.NoError(t, repo.Update(ctx, got))

	active, err := repo.List(ctx, product.Filter{ActiveOnly: true, Category: product.CategoryBudines})
	require.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, p.ID, a.ID)
	}

	stock, err := repo.AdjustStock(ctx, p.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)

	low, err := repo.Count(ctx, product.LowStockThreshold)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, low, 1)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func newSubmitter(t *testing.T, opts ...order.SubmitterOption) *order.Submitter {
	t.Helper()
	s, err := order.NewSubmitter(NewOrderRepository(testPool), NewInventoryRepository(testPool), opts...)
	require.NoError(t, err)
	return s
}

func submitOne(t *testing.T, s *order.Submitter, p *product.Product, qty int) (string, error) {
	t.Helper()
	c := cart.New()
	require.NoError(t, c.AddItem(*p, qty))
	d, err := order.NewCheckoutDraft(order.Customer{Name: "Ana", Phone: "3814637258"}, c)
	require.NoError(t, err)
	return s.Submit(context.Background(), d, c.Lines())
}

func TestSubmit_DecrementsStock(t *testing.T) {
	ctx := context.Background()
	p := createTestProduct(t, "Chocotorta", 5)

	id, err := submitOne(t, newSubmitter(t), p, 2)
	require.NoError(t, err)

	got, err := NewProductRepository(testPool).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	o, err := NewOrderRepository(testPool).Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Chocotorta", o.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("3001").Equal(o.Total))
}

func TestSubmit_FallbackWithoutFunction(t *testing.T) {
	ctx := context.Background()
	p := createTestProduct(t, "Budín", 5)

	_, err := testPool.Exec(ctx, `DROP FUNCTION decrement_stock(UUID, INTEGER)`)
	require.NoError(t, err)
	t.Cleanup(func() {
		// Restore the function for the other tests.
		_, err := testPool.Exec(context.Background(), `CREATE OR REPLACE FUNCTION decrement_stock(product_id UUID, quantity INTEGER)
			RETURNS VOID LANGUAGE sql AS $$ UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1; $$`)
		require.NoError(t, err)
	})

	err = NewInventoryRepository(testPool).DecrementStock(ctx, p.ID, 1)
	require.ErrorIs(t, err, order.ErrOperationNotFound)

	_, err = submitOne(t, newSubmitter(t), p, 2)
	require.NoError(t, err)

	got, err := NewProductRepository(testPool).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestOrderRepository_LifecycleAndDeletedProduct(t *testing.T) {
	ctx := context.Background()
	p := createTestProduct(t, "Cookies", 10)
	orders := NewOrderRepository(testPool)

	id, err := submitOne(t, newSubmitter(t), p, 1)
	require.NoError(t, err)

	require.NoError(t, orders.UpdateStatus(ctx, id, order.StatusCompleted))
	require.NoError(t, NewProductRepository(testPool).Delete(ctx, p.ID))

	o, err := orders.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)
	require.Len(t, o.Items, 1)
	assert.Empty(t, o.Items[0].ProductID)
	assert.Equal(t, "Cookies", o.Items[0].ProductName)

	list, err := orders.List(ctx, order.ListFilter{Status: order.StatusCompleted, Search: "an"})
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	require.NoError(t, orders.Delete(ctx, id))
	_, err = orders.Get(ctx, id)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestFinanceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFinanceRepository(testPool)

	before, err := repo.TotalExpenses(ctx)
	require.NoError(t, err)

	e := &finance.Expense{
		Description: "Harina",
		Amount:      decimal.NewFromInt(2500),
		Category:    finance.CategorySupplies,
		Date:        time.Now(),
	}
	require.NoError(t, repo.CreateExpense(ctx, e))

	after, err := repo.TotalExpenses(ctx)
	require.NoError(t, err)
	assert.True(t, before.Add(decimal.NewFromInt(2500)).Equal(after))

	buckets, err := repo.ExpensesByPeriod(ctx, finance.Range{
		Granularity: finance.Day,
		From:        time.Now().Add(-24 * time.Hour),
		Location:    time.UTC,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, buckets)

	pending, err := repo.CountOrders(ctx, order.StatusPending)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pending, 0)

	require.NoError(t, repo.DeleteExpense(ctx, e.ID))
	require.ErrorIs(t, repo.DeleteExpense(ctx, e.ID), finance.ErrNotFound)
}

func TestRecipeRepository_Steps(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipeRepository(testPool)

	withSteps := &recipe.Recipe{Name: "Alfajores", Steps: []recipe.Step{{Label: "Masa", Content: "Unir"}}}
	require.NoError(t, repo.Create(ctx, withSteps))
	freeForm := &recipe.Recipe{Name: "Budín", Instructions: "Hornear"}
	require.NoError(t, repo.Create(ctx, freeForm))

	got, err := repo.Get(ctx, withSteps.ID)
	require.NoError(t, err)
	assert.Equal(t, withSteps.Steps, got.Steps)

	got, err = repo.Get(ctx, freeForm.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Steps)

	list, err := repo.List(ctx, "alfa")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	u := &auth.User{Email: "admin@pasteleia.com", PasswordHash: []byte("hash-1")}
	require.NoError(t, repo.Upsert(ctx, u))
	u2 := &auth.User{Email: "ADMIN@pasteleia.com", PasswordHash: []byte("hash-2")}
	require.NoError(t, repo.Upsert(ctx, u2))
	assert.Equal(t, u.ID, u2.ID)

	got, err := repo.FindByEmail(ctx, "admin@pasteleia.com")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash-2"), got.PasswordHash)

	_, err = repo.FindByEmail(ctx, "nobody@pasteleia.com")
	require.ErrorIs(t, err, auth.ErrUserNotFound)
}
