// Package whatsapp builds the order notification handed to the customer as a
// wa.me deep link. Nothing is sent by the server: the client opens the link.
package whatsapp

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultBusinessPhone receives storefront orders when no number is configured.
const DefaultBusinessPhone = "5493814637258"

// Line is one product of the notified order.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Free      bool
}

// Order is the content of the notification.
type Order struct {
	CustomerName  string
	CustomerPhone string
	Lines         []Line
	Total         decimal.Decimal
}

// Message renders the order summary sent to the business.
func Message(o Order) string {
	var b strings.Builder
	b.WriteString("🍰 *Nuevo Pedido - Pasteleia*\n\n")
	b.WriteString("👤 *Cliente:* " + o.CustomerName + "\n")
	b.WriteString("📱 *Teléfono:* " + o.CustomerPhone + "\n\n")
	b.WriteString("📦 *Productos:*\n")

	for i, l := range o.Lines {
		subtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		b.WriteString(strconv.Itoa(i+1) + ". " + l.Name + "\n")
		b.WriteString("   Cantidad: " + strconv.Itoa(l.Quantity) + "\n")
		b.WriteString("   Precio unitario: $" + l.UnitPrice.StringFixed(2) + "\n")
		if l.Free {
			b.WriteString("   Subtotal: $0.00 (bonificado)\n\n")
			continue
		}
		b.WriteString("   Subtotal: $" + subtotal.StringFixed(2) + "\n\n")
	}

	b.WriteString("💰 *Total: $" + o.Total.StringFixed(2) + "*\n\n")
	b.WriteString("¡Gracias por tu pedido! 🎉")
	return b.String()
}

// Link returns the wa.me deep link opening a chat with businessPhone
// pre-filled with message. Non-digit characters of the phone are dropped.
func Link(businessPhone, message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits(businessPhone) + "?text=" + text
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

var argentinePhone = regexp.MustCompile(`^(\+?54)?0?[1-9]\d{8,9}$`)

// ValidArgentinePhone reports whether phone looks like an Argentine number,
// such as 3816485599, 03816485599 or +543816485599. Spaces and dashes are
// ignored.
func ValidArgentinePhone(phone string) bool {
	return argentinePhone.MatchString(strings.NewReplacer(" ", "", "-", "").Replace(phone))
}

// Notifier renders deep links for a fixed business phone.
type Notifier struct {
	phone string
}

// NewNotifier creates a Notifier. An empty phone selects DefaultBusinessPhone.
func NewNotifier(businessPhone string) *Notifier {
	if digits(businessPhone) == "" {
		businessPhone = DefaultBusinessPhone
	}
	return &Notifier{phone: businessPhone}
}

// OrderLink returns the deep link announcing o.
func (n *Notifier) OrderLink(o Order) string {
	return Link(n.phone, Message(o))
}
