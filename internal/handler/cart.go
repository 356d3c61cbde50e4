package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/pasteleia/bakery/internal/domain/cart"
)

// openCart loads the cart of the visitor, issuing a cart cookie on first
// contact.
func (h *Handler) openCart(w http.ResponseWriter, r *http.Request) *cart.Store {
	var id string
	if c, err := r.Cookie(CartCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CartCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(h.cfg.CartTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return cart.Open(r.Context(), h.carts, id)
}

func writeCart(w http.ResponseWriter, status int, s *cart.Store) {
	snap := s.Snapshot()
	writeJSON(w, status, func(e *jx.Encoder) { encodeCart(e, snap) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeCart(w, http.StatusOK, h.openCart(w, r))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if productID == "" {
		h.fail(w, r, badRequest("productId is required"))
		return
	}

	p, err := h.products.Get(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s := h.openCart(w, r)
	if err := s.AddItem(r.Context(), *p, quantity); err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, s)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	quantity, found := 0, false
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		found = true
		var err error
		quantity, err = d.Int()
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		h.fail(w, r, badRequest("quantity is required"))
		return
	}

	s := h.openCart(w, r)
	if !s.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), quantity) {
		writeMessage(w, http.StatusNotFound, "product is not in the cart")
		return
	}
	writeCart(w, http.StatusOK, s)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.openCart(w, r)
	s.RemoveItem(r.Context(), chi.URLParam(r, "productID"))
	writeCart(w, http.StatusOK, s)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s := h.openCart(w, r)
	s.Clear(r.Context())
	writeCart(w, http.StatusOK, s)
}
