// Package handler exposes the POS over HTTP/JSON.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/xenking/qpos/internal/domain/auth"
	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/checkout"
	"github.com/xenking/qpos/internal/domain/order"
	"github.com/xenking/qpos/internal/domain/settings"
	"github.com/xenking/qpos/internal/storage/kv"
)

// Flusher writes queued persistence before a backup is taken.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Deps are the services the handlers delegate to.
type Deps struct {
	Menu     *catalog.Service
	Settings *settings.Service
	Users    *auth.Directory
	Orders   *order.Store
	Checkout *checkout.Service
	// Store and Flusher back the backup export.
	Store   kv.Store
	Flusher Flusher
}

// HandlerConfig holds non-dependency configuration.
type HandlerConfig struct {
	// Location decides calendar days for reports.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler serves the /api routes.
type Handler struct {
	Deps
	loc *time.Location
	now func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig, deps Deps) *Handler {
	h := &Handler{Deps: deps, loc: cfg.Location, now: cfg.Now}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

var (
	staff   = []auth.Role{auth.RoleCashier, auth.RoleKitchen}
	cashier = []auth.Role{auth.RoleCashier}
	admin   = []auth.Role{auth.RoleAdmin}
)

// Routes registers every API route on a new mux, guarded by a.
func (h *Handler) Routes(a *Authenticator) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, roles []auth.Role, fn http.HandlerFunc) {
		mux.Handle(pattern, a.Require(roles...)(fn))
	}

	// Menu.
	handle("GET /api/menu", staff, h.ListMenu)
	handle("PUT /api/menu/{id}", admin, h.PutMenuItem)
	handle("POST /api/menu", admin, h.PutMenuItem)
	handle("DELETE /api/menu/{id}", admin, h.DeleteMenuItem)
	handle("GET /api/categories", staff, h.ListCategories)
	handle("PUT /api/categories/{id}", admin, h.PutCategory)
	handle("POST /api/categories", admin, h.PutCategory)
	handle("DELETE /api/categories/{id}", admin, h.DeleteCategory)

	// Settings.
	handle("GET /api/settings/tax", staff, h.GetTax)
	handle("PATCH /api/settings/tax", admin, h.UpdateTax)
	handle("GET /api/settings/restaurant", staff, h.GetRestaurant)
	handle("PUT /api/settings/restaurant", admin, h.UpdateRestaurant)
	handle("GET /api/settings/general", staff, h.GetGeneral)
	handle("PUT /api/settings/general", admin, h.UpdateGeneral)
	handle("GET /api/discounts", staff, h.ListDiscounts)
	handle("PUT /api/discounts/{id}", admin, h.PutDiscount)
	handle("POST /api/discounts", admin, h.PutDiscount)
	handle("DELETE /api/discounts/{id}", admin, h.DeleteDiscount)

	// Staff.
	handle("GET /api/users", admin, h.ListUsers)
	handle("PUT /api/users/{id}", admin, h.PutUser)
	handle("POST /api/users", admin, h.PutUser)
	handle("DELETE /api/users/{id}", admin, h.DeleteUser)
	handle("GET /api/me", staff, h.Me)

	// Till and kitchen.
	handle("POST /api/cart/preview", cashier, h.PreviewCart)
	handle("POST /api/orders", cashier, h.FireOrder)
	handle("POST /api/orders/charge", cashier, h.ChargeOrder)
	handle("GET /api/orders", staff, h.ListOrders)
	handle("GET /api/orders/active", staff, h.ActiveOrders)
	handle("GET /api/orders/completed", staff, h.CompletedOrders)
	handle("GET /api/orders/version", staff, h.OrdersVersion)
	handle("GET /api/orders/{id}", staff, h.GetOrder)
	handle("PUT /api/orders/{id}/status", staff, h.SetOrderStatus)
	handle("DELETE /api/orders/{id}", admin, h.DeleteOrder)
	handle("POST /api/orders/{id}/print", cashier, h.PrintReceipt)
	handle("GET /api/orders/{id}/receipt", cashier, h.GetReceipt)
	handle("DELETE /api/orders/completed", admin, h.PurgeCompleted)

	// Back office.
	handle("GET /api/reports/daily", admin, h.DailyReport)
	handle("GET /api/admin/export", admin, h.Export)
	handle("POST /api/admin/import", admin, h.Import)

	return mux
}
