package handler

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasteleia/bakery/internal/domain/auth"
	"github.com/pasteleia/bakery/internal/domain/finance"
	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
	"github.com/pasteleia/bakery/internal/domain/recipe"
)

// --- Mock implementations ---

// mockCatalog implements product.Repository and order.Inventory.
type mockCatalog struct {
	mu       sync.Mutex
	products map[string]*product.Product
	order    []string
	decErr   error
}

func newMockCatalog(products ...product.Product) *mockCatalog {
	m := &mockCatalog{products: make(map[string]*product.Product)}
	for _, p := range products {
		m.products[p.ID] = &p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *mockCatalog) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *mockCatalog) List(_ context.Context, f product.Filter) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []product.Product
	for _, id := range m.order {
		p, ok := m.products[id]
		if !ok || (f.ActiveOnly && !p.Active) || (f.Category != "" && p.Category != f.Category) {
			continue
		}
		out = append(out, *p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockCatalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, err := m.GetByID(ctx, id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockCatalog) Create(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	cp := *p
	m.products[p.ID] = &cp
	m.order = append(m.order, p.ID)
	return nil
}

func (m *mockCatalog) Update(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockCatalog) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(m.products, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return nil
}

func (m *mockCatalog) AdjustStock(_ context.Context, id string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return 0, product.ErrNotFound
	}
	p.Stock = max(p.Stock+delta, 0)
	return p.Stock, nil
}

func (m *mockCatalog) Count(_ context.Context, maxStock int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.products {
		if maxStock <= 0 || p.Stock < maxStock {
			n++
		}
	}
	return n, nil
}

func (m *mockCatalog) DecrementStock(_ context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decErr != nil {
		return m.decErr
	}
	if p, ok := m.products[id]; ok {
		p.Stock -= quantity
	}
	return nil
}

func (m *mockCatalog) IncrementStock(ctx context.Context, id string, quantity int) error {
	_, err := m.AdjustStock(ctx, id, quantity)
	return err
}

func (m *mockCatalog) Stock(ctx context.Context, id string) (int, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

func (m *mockCatalog) SetStock(_ context.Context, id string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Stock = stock
	}
	return nil
}

type mockOrders struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMockOrders() *mockOrders {
	return &mockOrders{orders: make(map[string]*order.Order)}
}

func (m *mockOrders) all() []order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out
}

func (m *mockOrders) CreateHeader(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrders) InsertItems(_ context.Context, items []order.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		o := m.orders[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return nil
}

func (m *mockOrders) List(_ context.Context, f order.ListFilter) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.all() {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(o.CustomerName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOrders) Get(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) UpdateStatus(_ context.Context, id string, status order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

// mockFinance derives income from mockOrders.
type mockFinance struct {
	mu       sync.Mutex
	orders   *mockOrders
	expenses []finance.Expense
}

func (m *mockFinance) CreateExpense(_ context.Context, e *finance.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	m.expenses = append([]finance.Expense{*e}, m.expenses...)
	return nil
}

func (m *mockFinance) ListExpenses(context.Context) ([]finance.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.expenses), nil
}

func (m *mockFinance) DeleteExpense(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.expenses)
	m.expenses = slices.DeleteFunc(m.expenses, func(e finance.Expense) bool { return e.ID == id })
	if len(m.expenses) == n {
		return finance.ErrNotFound
	}
	return nil
}

func (m *mockFinance) TotalIncome(context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range m.orders.all() {
		if o.Status == order.StatusCompleted {
			total = total.Add(o.Total)
		}
	}
	return total, nil
}

func (m *mockFinance) TotalExpenses(context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, e := range m.expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (m *mockFinance) IncomeByPeriod(context.Context, finance.Range) ([]finance.Amount, error) {
	return nil, nil
}

func (m *mockFinance) ExpensesByPeriod(_ context.Context, r finance.Range) ([]finance.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []finance.Amount
	for _, e := range m.expenses {
		out = append(out, finance.Amount{Period: r.Granularity.Truncate(e.Date), Value: e.Amount})
	}
	return out, nil
}

func (m *mockFinance) CountOrders(_ context.Context, status order.Status) (int, error) {
	n := 0
	for _, o := range m.orders.all() {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

type mockRecipes struct {
	mu      sync.Mutex
	recipes map[string]*recipe.Recipe
}

func (m *mockRecipes) List(_ context.Context, query string) ([]recipe.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recipe.Recipe
	for _, r := range m.recipes {
		if strings.Contains(strings.ToLower(r.Name), strings.ToLower(query)) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRecipes) Get(_ context.Context, id string) (*recipe.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return nil, recipe.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecipes) Create(_ context.Context, r *recipe.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	cp := *r
	m.recipes[r.ID] = &cp
	return nil
}

func (m *mockRecipes) Update(_ context.Context, r *recipe.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[r.ID]; !ok {
		return recipe.ErrNotFound
	}
	cp := *r
	m.recipes[r.ID] = &cp
	return nil
}

func (m *mockRecipes) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[id]; !ok {
		return recipe.ErrNotFound
	}
	delete(m.recipes, id)
	return nil
}

type mockUsers struct {
	users map[string]*auth.User
}

func (m *mockUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUsers) Upsert(_ context.Context, u *auth.User) error {
	u.ID = uuid.NewString()
	m.users[u.Email] = u
	return nil
}

type mockSessions struct {
	mu       sync.Mutex
	sessions map[string]auth.Session
}

func (m *mockSessions) Put(_ context.Context, key string, s auth.Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = s
	return nil
}

func (m *mockSessions) Get(_ context.Context, key string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, auth.ErrNoSession
	}
	return &s, nil
}

func (m *mockSessions) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
