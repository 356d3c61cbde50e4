package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pasteleia/bakery/internal/domain/product"
)

const productColumns = `id::text, name, description, price, stock, active, category, image_url, created_at, updated_at`

const (
	listProductsSQL = `SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = false OR active) AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC, name
		LIMIT NULLIF($3::int, 0)`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1::text[]::uuid[])`

	createProductSQL = `INSERT INTO products (name, description, price, stock, active, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, created_at, updated_at`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, active = $6,
			category = $7, image_url = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	adjustStockSQL = `UPDATE products
		SET stock = GREATEST(stock + $2, 0), updated_at = now()
		WHERE id = $1
		RETURNING stock`

	countProductsSQL = `SELECT count(*) FROM products WHERE ($1::int <= 0 OR stock < $1::int)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns products matching f, newest first.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, f.ActiveOnly, string(f.Category), f.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if !validID(id) {
		return nil, product.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, valid)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts p and fills in its generated fields.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Name, p.Description, p.Price, p.Stock, p.Active, string(p.Category), p.ImageURL,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}

// Update stores every editable field of p.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	if !validID(p.ID) {
		return product.ErrNotFound
	}
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Active, string(p.Category), p.ImageURL,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product. Order lines referencing it lose the reference
// but keep the name snapshot.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return product.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// AdjustStock adds delta to the stock, flooring at zero.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	if !validID(id) {
		return 0, product.ErrNotFound
	}
	var stock int
	if err := r.pool.QueryRow(ctx, adjustStockSQL, id, delta).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, fmt.Errorf("adjusting stock of %q: %w", id, err)
	}
	return stock, nil
}

// Count returns the number of products, only those with stock below
// maxStock when it is positive.
func (r *ProductRepository) Count(ctx context.Context, maxStock int) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countProductsSQL, maxStock).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Active,
		&category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Category = product.Category(category)
	return p, err
}
