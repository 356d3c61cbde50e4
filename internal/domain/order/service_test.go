package order

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/product"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders map[string]*Order

	createErr error
	itemsErr  error
	deleteErr error
	updateErr error

	calls []string
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*Order)}
}

func (m *mockOrderRepo) CreateHeader(_ context.Context, o *Order) error {
	m.calls = append(m.calls, "create")
	if m.createErr != nil {
		return m.createErr
	}
	o.ID = uuid.New().String()
	stored := *o
	m.orders[o.ID] = &stored
	return nil
}

func (m *mockOrderRepo) InsertItems(_ context.Context, items []Item) error {
	m.calls = append(m.calls, "items")
	if m.itemsErr != nil {
		return m.itemsErr
	}
	for _, it := range items {
		o, ok := m.orders[it.OrderID]
		if !ok {
			return fmt.Errorf("order %s: foreign key violation", it.OrderID)
		}
		o.Items = append(o.Items, it)
	}
	return nil
}

func (m *mockOrderRepo) List(_ context.Context, f ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(o.CustomerName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	m.calls = append(m.calls, "delete")
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.orders, id)
	return nil
}

type mockInventory struct {
	stock map[string]int

	// atomicMissing makes DecrementStock report ErrOperationNotFound.
	atomicMissing bool
	decErr        map[string]error
	incErr        error
}

func newInventory(stock map[string]int) *mockInventory {
	return &mockInventory{stock: stock, decErr: make(map[string]error)}
}

func (m *mockInventory) DecrementStock(_ context.Context, id string, qty int) error {
	if m.atomicMissing {
		return ErrOperationNotFound
	}
	if err := m.decErr[id]; err != nil {
		return err
	}
	m.stock[id] -= qty
	return nil
}

func (m *mockInventory) IncrementStock(_ context.Context, id string, qty int) error {
	if m.incErr != nil {
		return m.incErr
	}
	m.stock[id] += qty
	return nil
}

func (m *mockInventory) Stock(_ context.Context, id string) (int, error) {
	s, ok := m.stock[id]
	if !ok {
		return 0, product.ErrNotFound
	}
	return s, nil
}

func (m *mockInventory) SetStock(_ context.Context, id string, stock int) error {
	if err := m.decErr[id]; err != nil {
		return err
	}
	m.stock[id] = stock
	return nil
}

// --- Helpers ---

func newTestLine(id string, price int64, qty, stock int) cart.Line {
	return cart.Line{
		ProductID: id,
		Name:      "Product " + id,
		UnitPrice: decimal.NewFromInt(price),
		Quantity:  qty,
		Stock:     stock,
	}
}

func seedOrder(repo *mockOrderRepo, status Status) string {
	o := &Order{CustomerName: "Ana", CustomerPhone: "3814000000", Status: status, Total: decimal.NewFromInt(10)}
	_ = repo.CreateHeader(context.Background(), o)
	repo.calls = nil
	return o.ID
}

// --- Status machine ---

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusCompleted, StatusPending, true},
		{StatusCancelled, StatusPending, true},
		{StatusPending, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCompleted, StatusCompleted, false},
		{Status("shipped"), StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

// --- Drafts ---

func TestCustomerValidate(t *testing.T) {
	tests := []struct {
		name     string
		customer Customer
		fields   []string
	}{
		{name: "valid", customer: Customer{Name: " Ana ", Phone: "381 463-7258"}},
		{name: "missing name", customer: Customer{Name: "  ", Phone: "3814637258"}, fields: []string{"name"}},
		{name: "missing phone", customer: Customer{Name: "Ana"}, fields: []string{"phone"}},
		{name: "short phone", customer: Customer{Name: "Ana", Phone: "+54 381 12"}, fields: []string{"phone"}},
		{name: "both", customer: Customer{}, fields: []string{"name", "phone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.customer
			err := c.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				assert.Equal(t, "Ana", c.Name)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Len(t, vErr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, vErr.Fields, f)
			}
		})
	}
}

func TestNewCheckoutDraft(t *testing.T) {
	crt := cart.New(newTestLine("a", 100, 2, 5), newTestLine("b", 50, 1, 5))
	crt.SetFree("b", true)

	d, err := NewCheckoutDraft(Customer{Name: "Ana", Phone: "3814637258"}, crt)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(d.Total))

	_, err = NewCheckoutDraft(Customer{Name: "Ana", Phone: "3814637258"}, cart.New())
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestNewManualSaleDraft(t *testing.T) {
	crt := cart.New(newTestLine("a", 100, 1, 5))

	d, err := NewManualSaleDraft("   ", crt)
	require.NoError(t, err)
	assert.Equal(t, CounterSaleName, d.CustomerName)
	assert.Equal(t, CounterSalePhone, d.CustomerPhone)
	assert.Equal(t, StatusCompleted, d.Status)

	d, err = NewManualSaleDraft("Luis", crt)
	require.NoError(t, err)
	assert.Equal(t, "Luis", d.CustomerName)
}

// --- Service ---

func TestService_UpdateStatus(t *testing.T) {
	repo := newOrderRepo()
	id := seedOrder(repo, StatusPending)
	svc := NewService(repo)

	o, err := svc.UpdateStatus(context.Background(), id, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, StatusCompleted, repo.orders[id].Status)

	_, err = svc.UpdateStatus(context.Background(), id, StatusCancelled)
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StatusCompleted, tErr.From)

	_, err = svc.UpdateStatus(context.Background(), id, Status("lost"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	svc := NewService(newOrderRepo())

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusCompleted)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateStatus_RepositoryError(t *testing.T) {
	repo := newOrderRepo()
	id := seedOrder(repo, StatusPending)
	repo.updateErr = errors.New("connection reset")

	_, err := NewService(repo).UpdateStatus(context.Background(), id, StatusCompleted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update order status")
}

func TestService_List(t *testing.T) {
	repo := newOrderRepo()
	seedOrder(repo, StatusPending)
	seedOrder(repo, StatusCompleted)
	svc := NewService(repo)

	all, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.List(context.Background(), ListFilter{Status: StatusPending, Search: " an "})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.List(context.Background(), ListFilter{Status: "bogus"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Delete(t *testing.T) {
	repo := newOrderRepo()
	id := seedOrder(repo, StatusCancelled)

	require.NoError(t, NewService(repo).Delete(context.Background(), id))
	assert.Empty(t, repo.orders)
}
