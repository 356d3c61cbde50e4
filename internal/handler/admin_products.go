package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/pasteleia/bakery/internal/domain/product"
)

// maxImageBytes bounds product image uploads.
const maxImageBytes = 5 << 20

// decodeProduct overlays the fields present in the body onto p.
func decodeProduct(r *http.Request, p *product.Product) error {
	return decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = readDecimal(d)
		case "stock":
			p.Stock, err = d.Int()
		case "active":
			p.Active, err = d.Bool()
		case "category":
			var c string
			c, err = d.Str()
			p.Category = product.Category(c)
		case "imageUrl":
			p.ImageURL, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

func writeProduct(w http.ResponseWriter, status int, p *product.Product) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeProduct(e, *p) })
}

func (h *Handler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.All(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProducts(e, products) })
}

func (h *Handler) adminGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeProduct(w, http.StatusOK, p)
}

func (h *Handler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	p := &product.Product{Active: true}
	if err := decodeProduct(r, p); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}
	writeProduct(w, http.StatusCreated, p)
}

func (h *Handler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := decodeProduct(r, p); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		h.fail(w, r, err)
		return
	}
	writeProduct(w, http.StatusOK, p)
}

func (h *Handler) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminDuplicateProduct returns an unsaved copy to pre-fill the create form.
func (h *Handler) adminDuplicateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Duplicate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeProduct(w, http.StatusOK, p)
}

func (h *Handler) adminAdjustStock(w http.ResponseWriter, r *http.Request) {
	delta, found := 0, false
	if err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "delta" {
			return d.Skip()
		}
		found = true
		var err error
		delta, err = d.Int()
		return err
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	if !found {
		h.fail(w, r, badRequest("delta is required"))
		return
	}

	stock, err := h.products.AdjustStock(r.Context(), chi.URLParam(r, "id"), delta)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("stock")
		e.Int(stock)
		e.ObjEnd()
	})
}

// adminUploadImage accepts a multipart form with an "image" file part.
func (h *Handler) adminUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		h.fail(w, r, badRequest("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		h.fail(w, r, badRequest("image file is required"))
		return
	}
	defer func() { _ = file.Close() }()

	p, err := h.products.UploadImage(r.Context(), chi.URLParam(r, "id"),
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeProduct(w, http.StatusOK, p)
}
