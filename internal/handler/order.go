package handler

import (
	"net/http"
	"strconv"

	"github.com/xenking/qpos/internal/domain/checkout"
	"github.com/xenking/qpos/internal/domain/order"
)

// etag identifies a version of the order store.
func etag(version uint64) string {
	return `"v` + strconv.FormatUint(version, 10) + `"`
}

// notModified sets the ETag header and reports whether the client's copy is
// current, in which case a 304 has been written.
func (h *Handler) notModified(w http.ResponseWriter, r *http.Request) bool {
	tag := etag(h.Orders.Version())
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

type previewRequest struct {
	Items []checkout.LineRequest `json:"items"`
}

type previewResponse struct {
	Items  []lineResponse `json:"items"`
	Totals totalsResponse `json:"totals"`
}

// PreviewCart prices a cart under the current tax settings without creating
// an order.
func (h *Handler) PreviewCart(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Checkout.Preview(req.Items)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Items: toLines(p.Lines), Totals: toTotals(p.Totals)})
}

// FireOrder sends a new order to the kitchen.
func (h *Handler) FireOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if !decode(w, r, &req) {
		return
	}
	o, err := h.Checkout.Fire(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, toOrder(o))
}

type chargeResponse struct {
	Order      orderResponse `json:"order"`
	Delivered  bool          `json:"delivered"`
	Fallback   string        `json:"fallback,omitempty"`
	PrintError string        `json:"printError,omitempty"`
}

// ChargeOrder creates the order and prints its receipt. A failed print is
// reported in the body; the order is created regardless.
func (h *Handler) ChargeOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if !decode(w, r, &req) {
		return
	}
	res, err := h.Checkout.Charge(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/orders/"+res.Order.ID)
	writeJSON(w, http.StatusCreated, chargeResponse{
		Order:      toOrder(res.Order),
		Delivered:  res.Print.Delivered,
		Fallback:   res.Print.Fallback,
		PrintError: res.PrintError,
	})
}

// ListOrders lists every live order; ?sort=asc|desc orders by creation time.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	dir, err := order.ParseSortDirection(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.notModified(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, toOrders(h.Orders.All(dir)))
}

// ActiveOrders is the kitchen queue, oldest first.
func (h *Handler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	if h.notModified(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, toOrders(h.Orders.Active()))
}

// CompletedOrders is the order history, newest first.
func (h *Handler) CompletedOrders(w http.ResponseWriter, r *http.Request) {
	if h.notModified(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, toOrders(h.Orders.Completed()))
}

// OrdersVersion lets pollers check for changes cheaply.
func (h *Handler) OrdersVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Version uint64 `json:"version"`
	}{h.Orders.Version()})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.Orders.SetStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	fail(w, r, h.Orders.Delete(r.Context(), r.PathValue("id")))
}

// PrintReceipt prints an order's receipt again.
func (h *Handler) PrintReceipt(w http.ResponseWriter, r *http.Request) {
	res, err := h.Checkout.Reprint(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetReceipt returns the receipt text without printer control codes.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	text, err := h.Checkout.Receipt(r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// PurgeCompleted moves completed orders to the archive.
func (h *Handler) PurgeCompleted(w http.ResponseWriter, r *http.Request) {
	n := h.Orders.PurgeCompleted(r.Context())
	writeJSON(w, http.StatusOK, struct {
		Purged int `json:"purged"`
	}{n})
}
