package handler

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/pasteleia/bakery/internal/domain/auth"
	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/finance"
	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
	"github.com/pasteleia/bakery/internal/domain/recipe"
)

func encodeTime(e *jx.Encoder, field string, t time.Time) {
	if t.IsZero() {
		return
	}
	e.FieldStart(field)
	e.Str(t.Format(time.RFC3339))
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	if p.ID != "" {
		e.FieldStart("id")
		e.Str(p.ID)
	}
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	encodeMoney(e, "price", p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("active")
	e.Bool(p.Active)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("imageUrl")
	e.Str(p.ImageURL)
	encodeTime(e, "createdAt", p.CreatedAt)
	encodeTime(e, "updatedAt", p.UpdatedAt)
	e.ObjEnd()
}

func encodeProducts(e *jx.Encoder, products []product.Product) {
	e.ArrStart()
	for _, p := range products {
		encodeProduct(e, p)
	}
	e.ArrEnd()
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range c.Lines() {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		encodeMoney(e, "unitPrice", l.UnitPrice)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("stock")
		e.Int(l.Stock)
		e.FieldStart("imageUrl")
		e.Str(l.ImageURL)
		e.FieldStart("free")
		e.Bool(l.Free)
		encodeMoney(e, "subtotal", l.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalItems")
	e.Int(c.TotalItems())
	encodeMoney(e, "totalPrice", c.TotalPrice())
	encodeMoney(e, "freeValue", c.FreeValue())
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customerName")
	e.Str(o.CustomerName)
	e.FieldStart("customerPhone")
	e.Str(o.CustomerPhone)
	encodeMoney(e, "total", o.Total)
	e.FieldStart("status")
	e.Str(string(o.Status))
	encodeTime(e, "createdAt", o.CreatedAt)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		if it.ProductID == "" {
			e.Null()
		} else {
			e.Str(it.ProductID)
		}
		e.FieldStart("productName")
		e.Str(it.ProductName)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		encodeMoney(e, "unitPrice", it.UnitPrice)
		e.FieldStart("free")
		e.Bool(it.Free)
		encodeMoney(e, "subtotal", it.Charged())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeExpense(e *jx.Encoder, x finance.Expense) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(x.ID)
	e.FieldStart("description")
	e.Str(x.Description)
	encodeMoney(e, "amount", x.Amount)
	e.FieldStart("category")
	e.Str(string(x.Category))
	e.FieldStart("date")
	e.Str(x.Date.Format(time.DateOnly))
	encodeTime(e, "createdAt", x.CreatedAt)
	e.ObjEnd()
}

func encodeRecipe(e *jx.Encoder, r recipe.Recipe) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(r.ID)
	e.FieldStart("name")
	e.Str(r.Name)
	e.FieldStart("description")
	e.Str(r.Description)
	e.FieldStart("yield")
	e.Str(r.Yield)
	e.FieldStart("ingredients")
	e.Str(r.Ingredients)
	e.FieldStart("instructions")
	e.Str(r.Instructions)
	e.FieldStart("steps")
	if r.Steps == nil {
		e.Null()
	} else {
		e.ArrStart()
		for _, s := range r.Steps {
			e.ObjStart()
			e.FieldStart("label")
			e.Str(s.Label)
			e.FieldStart("content")
			e.Str(s.Content)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	encodeTime(e, "createdAt", r.CreatedAt)
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s *finance.Summary) {
	e.ObjStart()
	encodeMoney(e, "income", s.Income)
	encodeMoney(e, "expenses", s.Expenses)
	encodeMoney(e, "profit", s.Profit)
	e.ObjEnd()
}

func encodeSeries(e *jx.Encoder, s *finance.Series) {
	e.ObjStart()
	e.FieldStart("granularity")
	e.Str(string(s.Granularity))
	e.FieldStart("points")
	e.ArrStart()
	for _, p := range s.Points {
		e.ObjStart()
		e.FieldStart("period")
		e.Str(p.Period.Format(time.DateOnly))
		e.FieldStart("label")
		e.Str(p.Label)
		encodeMoney(e, "income", p.Income)
		encodeMoney(e, "expenses", p.Expenses)
		encodeMoney(e, "profit", p.Profit)
		e.ObjEnd()
	}
	e.ArrEnd()
	encodeMoney(e, "income", s.Income)
	encodeMoney(e, "expenses", s.Expenses)
	encodeMoney(e, "profit", s.Profit)
	encodeMoney(e, "incomeChange", s.IncomeChange)
	e.ObjEnd()
}

func encodeSession(e *jx.Encoder, s *auth.Session) {
	e.ObjStart()
	e.FieldStart("authenticated")
	e.Bool(s != nil)
	if s != nil {
		e.FieldStart("email")
		e.Str(s.Email)
		encodeTime(e, "expiresAt", s.ExpiresAt)
	}
	e.ObjEnd()
}
