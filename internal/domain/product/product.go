package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// LowStockThreshold is the stock level below which a product is reported as
// running low on the admin dashboard.
const LowStockThreshold = 5

// Category groups products in the storefront.
type Category string

// Known product categories.
const (
	CategoryTartas  Category = "tartas"
	CategoryBudines Category = "budines"
	CategoryCookies Category = "cookies"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryTartas, CategoryBudines, CategoryCookies}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Active      bool
	Category    Category
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvalidFieldError reports a product attribute that failed validation.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Normalize trims text fields and fills in the default category.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.ImageURL = strings.TrimSpace(p.ImageURL)
	if p.Category == "" {
		p.Category = CategoryTartas
	}
}

// Validate checks the invariants the catalog relies on.
func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return &InvalidFieldError{Field: "name", Reason: "required"}
	case p.Price.IsNegative():
		return &InvalidFieldError{Field: "price", Reason: "must not be negative"}
	case p.Stock < 0:
		return &InvalidFieldError{Field: "stock", Reason: "must not be negative"}
	case !p.Category.Valid():
		return &InvalidFieldError{Field: "category", Reason: "unknown category " + string(p.Category)}
	}
	return nil
}

// Duplicate returns an unsaved copy of p suitable for pre-filling a new
// product form. The image is shared with the original.
func (p Product) Duplicate() Product {
	p.ID = ""
	p.Name += " (Copia)"
	p.CreatedAt = time.Time{}
	p.UpdatedAt = time.Time{}
	return p
}

// Filter narrows catalog listings.
type Filter struct {
	// ActiveOnly hides products the admin has disabled.
	ActiveOnly bool
	// Category restricts results to a single category when non-empty.
	Category Category
	// Limit caps the number of results when positive.
	Limit int
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	// AdjustStock atomically adds delta (which may be negative) to the stock
	// of the product and returns the new value.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
	// Count returns the number of products, restricted to those with stock
	// below maxStock when maxStock is positive.
	Count(ctx context.Context, maxStock int) (int, error)
}
