package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/notify/whatsapp"
)

// checkout submits the cart of the visitor as a pending order. On success the
// cart is cleared and the WhatsApp deep link is returned. A failed submission
// leaves the cart untouched so the customer can retry.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var customer order.Customer
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			customer.Name, err = d.Str()
		case "phone":
			customer.Phone, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	s := h.openCart(w, r)
	snap := s.Snapshot()
	if snap.IsEmpty() {
		writeMessage(w, http.StatusBadRequest, "cart is empty")
		return
	}
	draft, err := order.NewCheckoutDraft(customer, snap)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.cfg.StrictPhone && !whatsapp.ValidArgentinePhone(draft.CustomerPhone) {
		h.fail(w, r, &order.ValidationError{Fields: map[string]string{
			"phone": "phone must be an Argentine number",
		}})
		return
	}

	lines := snap.Lines()
	orderID, err := h.submitter.Submit(ctx, draft, lines)
	var serr *order.SubmissionError
	if errors.As(err, &serr) {
		zctx.From(ctx).Error("Checkout failed",
			zap.String("step", string(serr.Step)),
			zap.String("order_id", serr.OrderID),
			zap.Error(err),
		)
		writeSubmissionError(w, serr)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	link := h.notifier.OrderLink(whatsapp.Order{
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
		Lines:         notificationLines(lines),
		Total:         draft.Total,
	})
	s.Clear(ctx)

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", orderID),
		zap.Int("lines", len(lines)),
		zap.String("total", draft.Total.StringFixed(2)),
	)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("orderId")
		e.Str(orderID)
		e.FieldStart("whatsappUrl")
		e.Str(link)
		e.ObjEnd()
	})
}

func writeSubmissionError(w http.ResponseWriter, serr *order.SubmissionError) {
	writeJSON(w, http.StatusInternalServerError, func(e *jx.Encoder) {
		e.ObjStart()
		encodeErrorFields(e, http.StatusInternalServerError, serr.UserMessage())
		e.FieldStart("step")
		e.Str(string(serr.Step))
		e.FieldStart("recorded")
		e.Bool(serr.Recorded())
		if serr.Recorded() {
			e.FieldStart("orderId")
			e.Str(serr.OrderID)
		}
		e.ObjEnd()
	})
}

func notificationLines(lines []cart.Line) []whatsapp.Line {
	out := make([]whatsapp.Line, len(lines))
	for i, l := range lines {
		out[i] = whatsapp.Line{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Free:      l.Free,
		}
	}
	return out
}
