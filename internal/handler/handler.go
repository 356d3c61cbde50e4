// Package handler exposes the storefront and back-office JSON API.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pasteleia/bakery/internal/domain/auth"
	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/finance"
	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
	"github.com/pasteleia/bakery/internal/domain/recipe"
	"github.com/pasteleia/bakery/internal/notify/whatsapp"
	"github.com/pasteleia/bakery/pkg/httpmiddleware"
)

// Cookie names.
const (
	CartCookie    = "bakery_cart"
	SessionCookie = "bakery_session"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// SecureCookies marks cookies Secure; enable behind TLS.
	SecureCookies bool
	// CartTTL is the lifetime of the cart cookie.
	CartTTL time.Duration
	// Location interprets expense dates without a zone.
	Location *time.Location
	// LoginRateLimit caps sign-in attempts per client IP and minute.
	// Zero disables the limit.
	LoginRateLimit int
	// StrictPhone additionally requires an Argentine number at checkout.
	StrictPhone bool
}

// Deps are the services behind the API.
type Deps struct {
	Products  *product.Service
	Carts     cart.Storage
	Submitter *order.Submitter
	Orders    *order.Service
	Finance   *finance.Service
	Recipes   *recipe.Service
	Auth      *auth.Service
	Notifier  *whatsapp.Notifier
	// Media serves uploaded images under /media/ when set.
	Media http.Handler
}

// Handler routes API requests to the domain services.
type Handler struct {
	cfg       Config
	products  *product.Service
	carts     cart.Storage
	submitter *order.Submitter
	orders    *order.Service
	finance   *finance.Service
	recipes   *recipe.Service
	auth      *auth.Service
	notifier  *whatsapp.Notifier
	media     http.Handler
}

// New creates a Handler.
func New(cfg Config, d Deps) *Handler {
	if cfg.CartTTL <= 0 {
		cfg.CartTTL = 30 * 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Handler{
		cfg:       cfg,
		products:  d.Products,
		carts:     d.Carts,
		submitter: d.Submitter,
		orders:    d.Orders,
		finance:   d.Finance,
		recipes:   d.Recipes,
		auth:      d.Auth,
		notifier:  d.Notifier,
		media:     d.Media,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/featured", h.featuredProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/items", h.addCartItem)
		r.Patch("/cart/items/{productID}", h.updateCartItem)
		r.Delete("/cart/items/{productID}", h.removeCartItem)

		r.Post("/checkout", h.checkout)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.AdminGuard)

		r.Get("/login", h.loginStatus)
		r.With(h.loginLimit()...).Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Get("/dashboard", h.dashboard)

		r.Route("/api", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.adminListProducts)
				r.Post("/", h.adminCreateProduct)
				r.Get("/{id}", h.adminGetProduct)
				r.Put("/{id}", h.adminUpdateProduct)
				r.Delete("/{id}", h.adminDeleteProduct)
				r.Post("/{id}/duplicate", h.adminDuplicateProduct)
				r.Post("/{id}/stock", h.adminAdjustStock)
				r.Post("/{id}/image", h.adminUploadImage)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.adminListOrders)
				r.Get("/{id}", h.adminGetOrder)
				r.Patch("/{id}/status", h.adminUpdateOrderStatus)
				r.Delete("/{id}", h.adminDeleteOrder)
			})
			r.Post("/sales", h.adminManualSale)
			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", h.adminListExpenses)
				r.Post("/", h.adminAddExpense)
				r.Delete("/{id}", h.adminDeleteExpense)
			})
			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", h.adminListRecipes)
				r.Post("/", h.adminCreateRecipe)
				r.Get("/{id}", h.adminGetRecipe)
				r.Put("/{id}", h.adminUpdateRecipe)
				r.Delete("/{id}", h.adminDeleteRecipe)
			})
			r.Get("/finance/summary", h.adminFinanceSummary)
			r.Get("/finance/series", h.adminFinanceSeries)
		})
	})

	if h.media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", h.media))
	}
	return r
}

func (h *Handler) loginLimit() []func(http.Handler) http.Handler {
	if h.cfg.LoginRateLimit <= 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{
		httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
			Max:    h.cfg.LoginRateLimit,
			Window: time.Minute,
		}),
	}
}
