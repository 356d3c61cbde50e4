// Package cart holds the shopping cart of a single visitor.
//
// Quantity policy: a line never holds fewer than one unit nor more than the
// stock known for its product. AddItem and UpdateQuantity both clamp into
// that range; a line only leaves the cart through RemoveItem or Clear.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/pasteleia/bakery/internal/domain/product"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrOutOfStock      = errors.New("product is out of stock")
)

// Line is one product entry in the cart.
type Line struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	// Stock is the product stock known when the line was last touched.
	Stock    int
	ImageURL string
	// Free marks a promotional line: it is listed with its nominal price
	// but contributes nothing to the cart total.
	Free bool
}

// Subtotal returns the nominal value of the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered collection of lines, unique per product.
type Cart struct {
	lines []Line
}

// New returns a cart holding a copy of lines.
func New(lines ...Line) *Cart {
	c := &Cart{lines: make([]Line, 0, len(lines))}
	c.lines = append(c.lines, lines...)
	return c
}

func (c *Cart) index(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem puts quantity units of p into the cart. Adding a product that is
// already present increases the existing line instead of duplicating it and
// refreshes the price, name and stock from p.
func (c *Cart) AddItem(p product.Product, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if p.Stock <= 0 {
		return ErrOutOfStock
	}

	if i := c.index(p.ID); i >= 0 {
		l := &c.lines[i]
		l.Name = p.Name
		l.UnitPrice = p.Price
		l.ImageURL = p.ImageURL
		l.Stock = p.Stock
		l.Quantity = clamp(min(l.Quantity, p.Stock)+min(quantity, p.Stock), p.Stock)
		return nil
	}

	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  clamp(quantity, p.Stock),
		Stock:     p.Stock,
		ImageURL:  p.ImageURL,
	})
	return nil
}

// RemoveItem deletes the line for productID. Removing an absent product is
// not an error.
func (c *Cart) RemoveItem(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of an existing line, clamped to
// [1, stock]. It reports whether the product was in the cart.
func (c *Cart) UpdateQuantity(productID string, quantity int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity = clamp(quantity, c.lines[i].Stock)
	return true
}

// SetFree marks or unmarks a line as promotional. It reports whether the
// product was in the cart.
func (c *Cart) SetFree(productID string, free bool) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.lines[i].Free = free
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = c.lines[:0]
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for productID.
func (c *Cart) Line(productID string) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// TotalPrice returns the amount the customer pays: the sum of line
// subtotals, excluding free lines.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		if l.Free {
			continue
		}
		total = total.Add(l.Subtotal())
	}
	return total
}

// FreeValue returns the nominal value of the free lines.
func (c *Cart) FreeValue() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		if l.Free {
			total = total.Add(l.Subtotal())
		}
	}
	return total
}

// TotalItems returns the number of units across all lines, free or not.
func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		quantity = stock
	}
	if quantity < 1 {
		quantity = 1
	}
	return quantity
}
