package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
)

const orderColumns = `id::text, customer_name, customer_phone, total, status, created_at`

const (
	createOrderSQL = `INSERT INTO orders (customer_name, customer_phone, total, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at`

	insertOrderItemsSQL = `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, is_free)
		SELECT $1::uuid, NULLIF(u.product_id, '')::uuid, u.product_name, u.quantity, u.unit_price::numeric, u.is_free
		FROM unnest($2::text[], $3::text[], $4::int[], $5::text[], $6::bool[])
			AS u(product_id, product_name, quantity, unit_price, is_free)`

	listOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR status = $1)
			AND ($2 = '' OR customer_name ILIKE '%' || $2 || '%' OR customer_phone ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT order_id::text, COALESCE(product_id::text, ''), product_name, quantity, unit_price, is_free
		FROM order_items
		WHERE order_id = ANY($1::text[]::uuid[])
		ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	decrementStockSQL = `SELECT decrement_stock($1::uuid, $2::int)`

	incrementStockSQL = `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`

	setStockSQL = `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.Inventory  = (*InventoryRepository)(nil)
)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateHeader inserts the order header and fills in its ID and timestamp.
func (r *OrderRepository) CreateHeader(ctx context.Context, o *order.Order) error {
	err := r.pool.QueryRow(ctx, createOrderSQL,
		o.CustomerName, o.CustomerPhone, o.Total, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}
	return nil
}

// InsertItems inserts all lines of one order in a single statement.
func (r *OrderRepository) InsertItems(ctx context.Context, items []order.Item) error {
	if len(items) == 0 {
		return nil
	}

	var (
		productIDs = make([]string, len(items))
		names      = make([]string, len(items))
		quantities = make([]int32, len(items))
		prices     = make([]string, len(items))
		free       = make([]bool, len(items))
	)
	for i, it := range items {
		if it.ProductID != "" && !validID(it.ProductID) {
			return fmt.Errorf("order item %d: invalid product id %q", i, it.ProductID)
		}
		productIDs[i] = it.ProductID
		names[i] = it.ProductName
		quantities[i] = int32(it.Quantity)
		prices[i] = it.UnitPrice.String()
		free[i] = it.Free
	}

	orderID := items[0].OrderID
	if _, err := r.pool.Exec(ctx, insertOrderItemsSQL,
		orderID, productIDs, names, quantities, prices, free,
	); err != nil {
		return fmt.Errorf("inserting items of order %q: %w", orderID, err)
	}
	return nil
}

// List returns orders matching f with their lines, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), f.Search)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get returns one order with its lines.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	if !validID(id) {
		return nil, order.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

// UpdateStatus sets the status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	if !validID(id) {
		return order.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes an order; its lines are removed by cascade.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return order.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &o.Total, &status, &o.CreatedAt)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Free)
	return it, err
}

// InventoryRepository implements order.Inventory on the products table.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// DecrementStock calls the decrement_stock database function. A database
// without the function yields order.ErrOperationNotFound.
func (r *InventoryRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	if _, err := r.pool.Exec(ctx, decrementStockSQL, productID, quantity); err != nil {
		if hasCode(err, codeUndefinedFunction) {
			return order.ErrOperationNotFound
		}
		return fmt.Errorf("decrementing stock of %q: %w", productID, err)
	}
	return nil
}

// IncrementStock atomically adds quantity to the stock.
func (r *InventoryRepository) IncrementStock(ctx context.Context, productID string, quantity int) error {
	if _, err := r.pool.Exec(ctx, incrementStockSQL, productID, quantity); err != nil {
		return fmt.Errorf("incrementing stock of %q: %w", productID, err)
	}
	return nil
}

// Stock reads the current stock of a product.
func (r *InventoryRepository) Stock(ctx context.Context, productID string) (int, error) {
	if !validID(productID) {
		return 0, product.ErrNotFound
	}
	var stock int
	if err := r.pool.QueryRow(ctx, getStockSQL, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, fmt.Errorf("reading stock of %q: %w", productID, err)
	}
	return stock, nil
}

// SetStock overwrites the stock of a product.
func (r *InventoryRepository) SetStock(ctx context.Context, productID string, stock int) error {
	if _, err := r.pool.Exec(ctx, setStockSQL, productID, stock); err != nil {
		return fmt.Errorf("writing stock of %q: %w", productID, err)
	}
	return nil
}
