package handler

import (
	"net/http"

	"github.com/xenking/qpos/internal/domain/auth"
	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/settings"
)

// putStatus is 201 for POST (create) and 200 for PUT (replace).
func putStatus(r *http.Request) int {
	if r.Method == http.MethodPost {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (h *Handler) ListMenu(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toMenuItems(h.Menu.Items()))
}

func (h *Handler) PutMenuItem(w http.ResponseWriter, r *http.Request) {
	var item catalog.MenuItem
	if !decode(w, r, &item) {
		return
	}
	item.ID = r.PathValue("id")
	saved, err := h.Menu.PutItem(item)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, putStatus(r), toMenuItem(saved))
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Menu.DeleteItem(r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Menu.Categories())
}

func (h *Handler) PutCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if !decode(w, r, &c) {
		return
	}
	c.ID = r.PathValue("id")
	saved, err := h.Menu.PutCategory(c)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, putStatus(r), saved)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Menu.DeleteCategory(r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetTax(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toTax(h.Settings.Tax()))
}

// UpdateTax applies a partial update; omitted fields keep their value.
func (h *Handler) UpdateTax(w http.ResponseWriter, r *http.Request) {
	var u settings.TaxUpdate
	if !decode(w, r, &u) {
		return
	}
	cfg, err := h.Settings.UpdateTax(u)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTax(cfg))
}

func (h *Handler) GetRestaurant(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.Restaurant())
}

func (h *Handler) UpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	var rs settings.Restaurant
	if !decode(w, r, &rs) {
		return
	}
	saved, err := h.Settings.UpdateRestaurant(rs)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) GetGeneral(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.General())
}

func (h *Handler) UpdateGeneral(w http.ResponseWriter, r *http.Request) {
	var g settings.General
	if !decode(w, r, &g) {
		return
	}
	saved, err := h.Settings.UpdateGeneral(g)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) ListDiscounts(w http.ResponseWriter, _ *http.Request) {
	ds := h.Settings.Discounts()
	out := make([]discountResponse, len(ds))
	for i, d := range ds {
		out[i] = toDiscount(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) PutDiscount(w http.ResponseWriter, r *http.Request) {
	var d settings.DiscountType
	if !decode(w, r, &d) {
		return
	}
	d.ID = r.PathValue("id")
	saved, err := h.Settings.PutDiscount(d)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, putStatus(r), toDiscount(saved))
}

func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.DeleteDiscount(r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Users.Users())
}

func (h *Handler) PutUser(w http.ResponseWriter, r *http.Request) {
	var u auth.User
	if !decode(w, r, &u) {
		return
	}
	u.ID = r.PathValue("id")
	saved, err := h.Users.Put(u)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, putStatus(r), saved)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, struct {
		ID   string    `json:"id"`
		Name string    `json:"name"`
		Role auth.Role `json:"role"`
	}{p.ID, p.DisplayName, p.Role})
}
