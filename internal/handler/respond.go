package handler

import (
	"io"
	"net/http"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/auth"
	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/finance"
	"github.com/pasteleia/bakery/internal/domain/order"
	"github.com/pasteleia/bakery/internal/domain/product"
	"github.com/pasteleia/bakery/internal/domain/recipe"
	"github.com/pasteleia/bakery/internal/media"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// requestError is a malformed request, answered with 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		encodeErrorFields(e, status, msg)
		e.ObjEnd()
	})
}

func encodeErrorFields(e *jx.Encoder, status int, msg string) {
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
}

// fail maps err to a response. Unexpected errors are logged and hidden.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr     *requestError
		validation *order.ValidationError
	)
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
			e.ObjStart()
			encodeErrorFields(e, http.StatusUnprocessableEntity, "invalid customer data")
			e.FieldStart("fields")
			e.ObjStart()
			keys := make([]string, 0, len(validation.Fields))
			for k := range validation.Fields {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				e.FieldStart(k)
				e.Str(validation.Fields[k])
			}
			e.ObjEnd()
			e.ObjEnd()
		})
		return
	}
	if errors.As(err, &reqErr) {
		writeMessage(w, http.StatusBadRequest, reqErr.msg)
		return
	}

	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMessage(w, status, "internal error")
		return
	}
	writeMessage(w, status, err.Error())
}

func statusOf(err error) int {
	var (
		productField *product.InvalidFieldError
		recipeField  *recipe.InvalidFieldError
		expenseField *finance.InvalidExpenseError
	)
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, finance.ErrNotFound),
		errors.Is(err, recipe.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &productField),
		errors.As(err, &recipeField),
		errors.As(err, &expenseField),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, finance.ErrInvalidGranularity):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrIllegalTransition),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, media.ErrExists):
		return http.StatusConflict
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, product.ErrUploadsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// decodeObject reads a JSON object body, calling fn for every field.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return badRequest("cannot read body")
	}
	if len(data) > maxBodyBytes {
		return badRequest("body too large")
	}
	if err := jx.DecodeBytes(data).Obj(fn); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return reqErr
		}
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// readDecimal accepts a JSON number or a numeric string.
func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	} else {
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, badRequest("invalid amount " + raw)
	}
	return v, nil
}

func encodeMoney(e *jx.Encoder, field string, v decimal.Decimal) {
	e.FieldStart(field)
	e.Float64(v.InexactFloat64())
}
