package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an admin may move an order from one status
// to another. Pending orders settle as completed or cancelled; settled orders
// can only be reverted to pending.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusCompleted || to == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return to == StatusPending
	}
	return false
}

// Order is an order header with its lines.
type Order struct {
	ID            string
	CustomerName  string
	CustomerPhone string
	Total         decimal.Decimal
	Status        Status
	Items         []Item
	CreatedAt     time.Time
}

// Item is a denormalized snapshot of one purchased product. ProductID is
// empty once the product has been deleted from the catalog; ProductName
// keeps the name the product had when it was sold.
type Item struct {
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Free        bool
}

// Charged returns what the customer paid for the line.
func (i Item) Charged() decimal.Decimal {
	if i.Free {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status Status
	// Search matches customer name or phone, case-insensitively.
	Search string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateHeader inserts the order header, assigning ID and CreatedAt.
	CreateHeader(ctx context.Context, o *Order) error
	// InsertItems bulk-inserts order lines.
	InsertItems(ctx context.Context, items []Item) error
	List(ctx context.Context, f ListFilter) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	// Delete removes the header together with its lines.
	Delete(ctx context.Context, id string) error
}

// Inventory adjusts product stock on behalf of order submission.
type Inventory interface {
	// DecrementStock atomically reduces stock. It returns ErrOperationNotFound
	// when the data layer does not provide the atomic operation.
	DecrementStock(ctx context.Context, productID string, quantity int) error
	// IncrementStock atomically adds quantity back to the stock.
	IncrementStock(ctx context.Context, productID string, quantity int) error
	Stock(ctx context.Context, productID string) (int, error)
	SetStock(ctx context.Context, productID string, stock int) error
}
