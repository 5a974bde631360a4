// Package order implements the order lifecycle: creation with frozen totals,
// status changes, kitchen and history views, purge and daily reports.
package order

import (
	"context"
	"time"

	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/pricing"
	"github.com/xenking/qpos/internal/domain/settings"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted:
		return true
	default:
		return false
	}
}

// ParseStatus validates a status received from a client.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", poserr.InvalidInput("unknown order status %q", v)
	}
	return s, nil
}

// Line is an ordered quantity of a menu item. Item is a snapshot taken when
// the line was added.
type Line struct {
	ID       string           `json:"id"`
	Item     catalog.MenuItem `json:"menuItem"`
	Quantity int              `json:"quantity"`
	Note     string           `json:"notes,omitempty"`
}

// Order is a placed order. Totals are computed once at creation and never
// recomputed.
type Order struct {
	ID              string `json:"id"`
	CustomerName    string `json:"customerName"`
	CustomerContact string `json:"customerContact,omitempty"`
	Lines           []Line `json:"items"`
	pricing.Totals
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (o *Order) clone() *Order {
	c := *o
	c.Lines = append([]Line(nil), o.Lines...)
	return &c
}

// ComputeTotals prices lines under cfg.
func ComputeTotals(lines []Line, cfg settings.TaxConfiguration) (pricing.Totals, error) {
	items := make([]pricing.Item, len(lines))
	for i, l := range lines {
		items[i] = pricing.Item{Price: l.Item.Price, Quantity: l.Quantity}
	}
	return pricing.Compute(items, cfg)
}

// EventKind names a change to the order collection.
type EventKind string

const (
	EventCreated       EventKind = "order.created"
	EventStatusChanged EventKind = "order.status_changed"
	EventPurged        EventKind = "order.purged"
)

// Event describes a committed change. Version is the store version after the
// change.
type Event struct {
	Kind    EventKind `json:"kind"`
	OrderID string    `json:"orderId,omitempty"`
	Status  Status    `json:"status,omitempty"`
	Count   int       `json:"count,omitempty"`
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
}

// Notifier receives events after each committed mutation. Notify must not
// block.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
