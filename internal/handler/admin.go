package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/auth"
)

// Back-office paths the guard redirects between.
const (
	adminLoginPath     = "/admin/login"
	adminDashboardPath = "/admin/dashboard"
	adminAPIPrefix     = "/admin/api/"
)

type sessionKey struct{}

// SessionFromContext returns the session attached by AdminGuard.
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*auth.Session)
	return s, ok
}

// session resolves the session cookie. Store failures are logged and treated
// as signed out.
func (h *Handler) session(r *http.Request) (*auth.Session, string) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, ""
	}
	sess, err := h.auth.Lookup(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			zctx.From(r.Context()).Warn("Session lookup failed", zap.Error(err))
		}
		return nil, c.Value
	}
	return sess, c.Value
}

// AdminGuard protects the back office. Signed-in users visiting the login
// page are sent to the dashboard; anonymous requests to any other admin path
// are redirected to the login page, or rejected with 401 for API calls.
func (h *Handler) AdminGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := h.session(r)

		if r.URL.Path == adminLoginPath {
			if sess != nil && r.Method == http.MethodGet {
				http.Redirect(w, r, adminDashboardPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if sess == nil {
			if strings.HasPrefix(r.URL.Path, adminAPIPrefix) {
				writeMessage(w, http.StatusUnauthorized, "authentication required")
				return
			}
			http.Redirect(w, r, adminLoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/admin",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// loginStatus is only reached without a session.
func (h *Handler) loginStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, nil) })
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var email, password string
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			email, err = d.Str()
		case "password":
			password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	token, sess, err := h.auth.SignIn(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			zctx.From(r.Context()).Info("Sign-in rejected", zap.String("email", email))
		}
		h.fail(w, r, err)
		return
	}
	h.setSessionCookie(w, token, int(h.auth.TTL().Seconds()))
	zctx.From(r.Context()).Info("Signed in", zap.String("user_id", sess.UserID))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, sess) })
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	_, token := h.session(r)
	if err := h.auth.SignOut(r.Context(), token); err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.finance.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess, _ := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("products")
		e.Int(d.Products)
		e.FieldStart("lowStock")
		e.Int(d.LowStock)
		e.FieldStart("pendingOrders")
		e.Int(d.PendingOrders)
		if sess != nil {
			e.FieldStart("email")
			e.Str(sess.Email)
		}
		e.ObjEnd()
	})
}
