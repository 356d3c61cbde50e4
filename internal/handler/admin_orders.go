package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/order"
)

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.orders.List(r.Context(), order.ListFilter{
		Status: order.Status(q.Get("status")),
		Search: q.Get("q"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range orders {
			encodeOrder(e, o)
		}
		e.ArrEnd()
	})
}

func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

func (h *Handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		status, err = d.Str()
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

func (h *Handler) adminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saleItem struct {
	productID string
	quantity  int
	free      bool
}

// adminManualSale registers a counter sale. Lines are built from the current
// catalog with the same clamping as the storefront cart; free lines are
// listed but not charged.
func (h *Handler) adminManualSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		customerName string
		items        []saleItem
	)
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "customerName":
			var err error
			customerName, err = d.Str()
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				it := saleItem{quantity: 1}
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						it.productID, err = d.Str()
					case "quantity":
						it.quantity, err = d.Int()
					case "free":
						it.free, err = d.Bool()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				items = append(items, it)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	c := cart.New()
	for _, it := range items {
		p, err := h.products.Lookup(ctx, it.productID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if err := c.AddItem(*p, it.quantity); err != nil {
			h.fail(w, r, err)
			return
		}
		if it.free {
			c.SetFree(it.productID, true)
		}
	}

	draft, err := order.NewManualSaleDraft(customerName, c)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	orderID, err := h.submitter.Submit(ctx, draft, c.Lines())
	var serr *order.SubmissionError
	if errors.As(err, &serr) {
		zctx.From(ctx).Error("Manual sale failed",
			zap.String("step", string(serr.Step)),
			zap.Error(err),
		)
		writeSubmissionError(w, serr)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Str(orderID)
		encodeMoney(e, "total", draft.Total)
		encodeMoney(e, "freeValue", c.FreeValue())
		e.ObjEnd()
	})
}
