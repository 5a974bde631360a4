package order

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/settings"
	"github.com/xenking/qpos/internal/storage/kv"
)

const (
	idPrefix  = "ORD-"
	dayLayout = "20060102"
)

// SortDirection orders listings by creation time.
type SortDirection int

const (
	NewestFirst SortDirection = iota
	OldestFirst
)

// ParseSortDirection accepts "asc" and "desc". Empty selects NewestFirst.
func ParseSortDirection(v string) (SortDirection, error) {
	switch strings.ToLower(v) {
	case "", "desc":
		return NewestFirst, nil
	case "asc":
		return OldestFirst, nil
	default:
		return 0, poserr.InvalidInput("unknown sort direction %q", v)
	}
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for CreatedAt and order numbering.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the time zone defining a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithMeterProvider registers order counters with mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Store) { s.meter = mp.Meter("github.com/xenking/qpos/internal/domain/order") }
}

// Store owns all orders. Mutations are serialized; reads see the latest
// committed state. Every mutation hands the changed collections to the
// persister and emits an Event.
//
// Purged orders move to an append-only archive that still counts towards
// numbering and daily reports.
type Store struct {
	persist  kv.Persister
	notifier Notifier
	lg       *zap.Logger
	now      func() time.Time
	loc      *time.Location
	meter    metric.Meter

	created       metric.Int64Counter
	statusChanges metric.Int64Counter

	mu      sync.RWMutex
	orders  []*Order // creation order
	archive []*Order
	version uint64
	synced  bool // stored orders have been read
}

// NewStore creates an empty Store.
func NewStore(persist kv.Persister, notifier Notifier, lg *zap.Logger, opts ...Option) (*Store, error) {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	s := &Store{
		persist:  persist,
		notifier: notifier,
		lg:       lg,
		now:      time.Now,
		loc:      time.Local,
		meter:    noop.NewMeterProvider().Meter(""),
		synced:   true,
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.created, err = s.meter.Int64Counter("qpos.orders.created",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	if s.statusChanges, err = s.meter.Int64Counter("qpos.orders.status_changes",
		metric.WithDescription("Order status changes"),
	); err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return s, nil
}

// Load restores orders and the archive from store. If storage cannot be
// read the store starts empty and keeps its changes in memory until Sync
// merges them with the stored orders.
func (s *Store) Load(ctx context.Context, store kv.Store) {
	s.mu.Lock()
	s.synced = false
	s.mu.Unlock()

	if err := s.Sync(ctx, store); err != nil {
		s.lg.Warn("Load orders, starting empty until storage recovers", zap.Error(err))
	}
}

// Sync reads the stored orders if Load could not, and merges the orders
// taken since then into them. A merged order whose id is already used in
// storage gets the next free number of its day.
func (s *Store) Sync(ctx context.Context, store kv.Store) error {
	s.mu.RLock()
	synced := s.synced
	s.mu.RUnlock()
	if synced {
		return nil
	}

	var orders, archive []*Order
	if err := s.loadStored(ctx, store, kv.KeyOrders, &orders); err != nil {
		return err
	}
	if err := s.loadStored(ctx, store, kv.KeyOrderArchive, &archive); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synced {
		return nil
	}

	live, archived := s.orders, s.archive
	s.orders, s.archive = orders, archive

	taken := slices.Concat(live, archived)
	slices.SortStableFunc(taken, func(a, b *Order) int { return a.CreatedAt.Compare(b.CreatedAt) })
	merged := make([]*Order, 0, len(taken))
	for _, o := range taken {
		if hasID(o.ID, s.orders, s.archive, merged) {
			day := o.CreatedAt.In(s.loc).Format(dayLayout)
			id := formatID(day, nextSeq(day, s.orders, s.archive, merged))
			s.lg.Warn("Order renumbered after storage recovered",
				zap.String("from", o.ID),
				zap.String("to", id),
			)
			o.ID = id
		}
		merged = append(merged, o)
	}
	s.orders = append(s.orders, live...)
	s.archive = append(s.archive, archived...)

	s.synced = true
	s.version++
	if len(taken) > 0 {
		s.persistLocked(kv.KeyOrders, kv.KeyOrderArchive)
	}
	s.lg.Info("Orders loaded",
		zap.Int("live", len(s.orders)),
		zap.Int("archived", len(s.archive)),
		zap.Int("merged", len(taken)),
	)
	return nil
}

// loadStored reads one order collection. An undecodable document is logged
// and treated as empty.
func (s *Store) loadStored(ctx context.Context, store kv.Store, key string, dst *[]*Order) error {
	_, err := kv.Load(ctx, store, key, dst)
	var corrupt *kv.CorruptError
	if errors.As(err, &corrupt) {
		s.lg.Warn("Stored orders unreadable, ignoring", zap.String("key", key), zap.Error(err))
		*dst = nil
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load orders")
	}
	return nil
}

// persistLocked hands the named collections to the persister. Until the
// stored orders have been read nothing is written, so they cannot be
// overwritten.
func (s *Store) persistLocked(keys ...string) {
	if !s.synced {
		return
	}
	for _, key := range keys {
		switch key {
		case kv.KeyOrders:
			s.persist.Persist(key, s.orders)
		case kv.KeyOrderArchive:
			s.persist.Persist(key, s.archive)
		}
	}
}

// CreateRequest is the input for Create.
type CreateRequest struct {
	CustomerName    string
	CustomerContact string
	Lines           []Line
}

// Create prices the lines under cfg and stores a new pending order.
// Zero-quantity lines are dropped; an order with no remaining lines is
// rejected. A blank customer name becomes "Customer #NNNN".
func (s *Store) Create(ctx context.Context, req CreateRequest, cfg settings.TaxConfiguration) (*Order, error) {
	lines := make([]Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		if l.Quantity < 0 {
			return nil, poserr.InvalidInput("line %q: negative quantity %d", l.Item.Name, l.Quantity)
		}
		if l.Quantity == 0 {
			continue
		}
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return nil, poserr.InvalidInput("order has no items")
	}

	totals, err := ComputeTotals(lines, cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	now := s.now()
	day := now.In(s.loc).Format(dayLayout)
	seq := nextSeq(day, s.orders, s.archive)

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = fmt.Sprintf("Customer #%04d", (len(s.orders)+len(s.archive)+1)%10000)
	}

	o := &Order{
		ID:              formatID(day, seq),
		CustomerName:    name,
		CustomerContact: strings.TrimSpace(req.CustomerContact),
		Lines:           lines,
		Totals:          totals,
		Status:          StatusPending,
		CreatedAt:       now,
	}
	s.orders = append(s.orders, o)
	s.version++
	version := s.version
	s.persistLocked(kv.KeyOrders)
	out := o.clone()
	s.mu.Unlock()

	s.created.Add(ctx, 1)
	s.notifier.Notify(ctx, Event{Kind: EventCreated, OrderID: o.ID, Status: o.Status, Version: version, At: now})
	return out, nil
}

func formatID(day string, seq int) string {
	return fmt.Sprintf("%s%s-%03d", idPrefix, day, seq)
}

// nextSeq returns the next sequence number for day (YYYYMMDD): one more than
// the highest number used that day in any of sets.
func nextSeq(day string, sets ...[]*Order) int {
	prefix := idPrefix + day + "-"
	highest := 0
	for _, orders := range sets {
		for _, o := range orders {
			rest, ok := strings.CutPrefix(o.ID, prefix)
			if !ok {
				continue
			}
			if n, err := strconv.Atoi(rest); err == nil && n > highest {
				highest = n
			}
		}
	}
	return highest + 1
}

func hasID(id string, sets ...[]*Order) bool {
	for _, orders := range sets {
		for _, o := range orders {
			if o.ID == id {
				return true
			}
		}
	}
	return false
}

// SetStatus overwrites the status of order id. Any transition is allowed,
// including backwards and same-state ones.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, poserr.InvalidInput("unknown order status %q", status)
	}

	s.mu.Lock()
	o := s.findLocked(id)
	if o == nil {
		s.mu.Unlock()
		return nil, poserr.NotFound("order", id)
	}
	prev := o.Status
	o.Status = status
	s.version++
	version := s.version
	s.persistLocked(kv.KeyOrders)
	out := o.clone()
	s.mu.Unlock()

	s.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(prev)),
		attribute.String("to", string(status)),
	))
	s.notifier.Notify(ctx, Event{Kind: EventStatusChanged, OrderID: id, Status: status, Version: version, At: s.now()})
	return out, nil
}

func (s *Store) findLocked(id string) *Order {
	for _, o := range s.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Get returns the order with the given id. Archived orders are found too, so
// their receipts can still be reprinted.
func (s *Store) Get(id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o := s.findLocked(id); o != nil {
		return o.clone(), nil
	}
	for _, o := range s.archive {
		if o.ID == id {
			return o.clone(), nil
		}
	}
	return nil, poserr.NotFound("order", id)
}

// Active returns orders that are not completed, oldest first. This is the
// kitchen queue.
func (s *Store) Active() []*Order {
	return s.list(func(o *Order) bool { return o.Status != StatusCompleted }, OldestFirst)
}

// Completed returns completed orders, newest first.
func (s *Store) Completed() []*Order {
	return s.list(func(o *Order) bool { return o.Status == StatusCompleted }, NewestFirst)
}

// All returns every live order sorted by creation time.
func (s *Store) All(dir SortDirection) []*Order {
	return s.list(func(*Order) bool { return true }, dir)
}

func (s *Store) list(keep func(*Order) bool, dir SortDirection) []*Order {
	s.mu.RLock()
	out := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o.clone())
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *Order) int {
		if dir == OldestFirst {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// PurgeCompleted moves completed orders from the live collection to the
// archive and returns how many were moved.
func (s *Store) PurgeCompleted(ctx context.Context) int {
	s.mu.Lock()
	live := s.orders[:0:0]
	moved := 0
	for _, o := range s.orders {
		if o.Status == StatusCompleted {
			s.archive = append(s.archive, o)
			moved++
			continue
		}
		live = append(live, o)
	}
	if moved == 0 {
		s.mu.Unlock()
		return 0
	}
	s.orders = live
	s.version++
	version := s.version
	s.persistLocked(kv.KeyOrderArchive, kv.KeyOrders)
	s.mu.Unlock()

	s.lg.Info("Purged completed orders", zap.Int("count", moved))
	s.notifier.Notify(ctx, Event{Kind: EventPurged, Count: moved, Version: version, At: s.now()})
	return moved
}

// Delete is not supported; orders are only ever archived.
func (s *Store) Delete(_ context.Context, id string) error {
	return poserr.Unsupported(fmt.Sprintf("delete order %q", id))
}

// Version returns a counter that increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Archived returns purged orders in purge order.
func (s *Store) Archived() []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Order, len(s.archive))
	for i, o := range s.archive {
		out[i] = o.clone()
	}
	return out
}
