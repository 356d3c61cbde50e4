package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/pasteleia/bakery/internal/domain/recipe"
)

func decodeRecipe(r *http.Request, rec *recipe.Recipe) error {
	return decodeObject(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			rec.Name, err = d.Str()
		case "description":
			rec.Description, err = d.Str()
		case "yield":
			rec.Yield, err = d.Str()
		case "ingredients":
			rec.Ingredients, err = d.Str()
		case "instructions":
			rec.Instructions, err = d.Str()
		case "steps":
			rec.Steps = nil
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.Arr(func(d *jx.Decoder) error {
				var s recipe.Step
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "label":
						s.Label, err = d.Str()
					case "content":
						s.Content, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				rec.Steps = append(rec.Steps, s)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
}

func writeRecipe(w http.ResponseWriter, status int, rec *recipe.Recipe) {
	writeJSON(w, status, func(e *jx.Encoder) { encodeRecipe(e, *rec) })
}

func (h *Handler) adminListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, rec := range recipes {
			encodeRecipe(e, rec)
		}
		e.ArrEnd()
	})
}

func (h *Handler) adminGetRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeRecipe(w, http.StatusOK, rec)
}

func (h *Handler) adminCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var rec recipe.Recipe
	if err := decodeRecipe(r, &rec); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.recipes.Create(r.Context(), &rec); err != nil {
		h.fail(w, r, err)
		return
	}
	writeRecipe(w, http.StatusCreated, &rec)
}

func (h *Handler) adminUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := decodeRecipe(r, rec); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.recipes.Update(r.Context(), rec); err != nil {
		h.fail(w, r, err)
		return
	}
	writeRecipe(w, http.StatusOK, rec)
}

func (h *Handler) adminDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.recipes.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
