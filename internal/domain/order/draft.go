package order

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/pasteleia/bakery/internal/domain/cart"
)

// Manual sale defaults.
const (
	CounterSaleName  = "Venta Mostrador"
	CounterSalePhone = "N/A"
)

// minPhoneDigits is the minimum number of digits of a customer phone.
const minPhoneDigits = 10

// Customer is the contact data captured at checkout.
type Customer struct {
	Name  string
	Phone string
}

// Validate trims the fields and checks them. Failures are reported as a
// *ValidationError.
func (c *Customer) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)

	fields := make(map[string]string)
	if c.Name == "" {
		fields["name"] = "name is required"
	}
	switch {
	case c.Phone == "":
		fields["phone"] = "phone is required"
	case countDigits(c.Phone) < minPhoneDigits:
		fields["phone"] = "phone must have at least 10 digits"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// Draft is an order header not yet persisted.
type Draft struct {
	CustomerName  string
	CustomerPhone string
	Total         decimal.Decimal
	Status        Status
}

// NewCheckoutDraft prepares a storefront order. The total is the cart total
// and the order starts pending.
func NewCheckoutDraft(c Customer, crt *cart.Cart) (Draft, error) {
	if err := c.Validate(); err != nil {
		return Draft{}, err
	}
	if crt.IsEmpty() {
		return Draft{}, ErrEmptyOrder
	}
	return Draft{
		CustomerName:  c.Name,
		CustomerPhone: c.Phone,
		Total:         crt.TotalPrice(),
		Status:        StatusPending,
	}, nil
}

// NewManualSaleDraft prepares an order registered at the counter. It is
// recorded as already completed.
func NewManualSaleDraft(customerName string, crt *cart.Cart) (Draft, error) {
	if crt.IsEmpty() {
		return Draft{}, ErrEmptyOrder
	}
	name := strings.TrimSpace(customerName)
	if name == "" {
		name = CounterSaleName
	}
	return Draft{
		CustomerName:  name,
		CustomerPhone: CounterSalePhone,
		Total:         crt.TotalPrice(),
		Status:        StatusCompleted,
	}, nil
}

// ItemsFor builds the order lines for orderID from cart lines.
func ItemsFor(orderID string, lines []cart.Line) []Item {
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			OrderID:     orderID,
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Free:        l.Free,
		}
	}
	return items
}
