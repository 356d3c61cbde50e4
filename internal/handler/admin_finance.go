package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/pasteleia/bakery/internal/domain/finance"
)

func (h *Handler) adminListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.finance.Expenses(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, x := range expenses {
			encodeExpense(e, x)
		}
		e.ArrEnd()
	})
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func (h *Handler) parseDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, h.cfg.Location); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, badRequest("invalid date " + strconv.Quote(s))
	}
	return t, nil
}

func (h *Handler) adminAddExpense(w http.ResponseWriter, r *http.Request) {
	var x finance.Expense
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "description":
			x.Description, err = d.Str()
		case "amount":
			x.Amount, err = readDecimal(d)
		case "category":
			var c string
			c, err = d.Str()
			x.Category = finance.Category(c)
		case "date":
			var s string
			if s, err = d.Str(); err != nil || s == "" {
				return err
			}
			x.Date, err = h.parseDate(s)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.finance.AddExpense(r.Context(), &x); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeExpense(e, x) })
}

func (h *Handler) adminDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.finance.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminFinanceSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.finance.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSummary(e, s) })
}

// adminFinanceSeries serves ?granularity=day|month&n=<buckets>.
func (h *Handler) adminFinanceSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n := 0
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 366 {
			h.fail(w, r, badRequest("n must be between 1 and 366"))
			return
		}
		n = v
	}

	s, err := h.finance.Series(r.Context(), finance.Granularity(q.Get("granularity")), n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSeries(e, s) })
}
