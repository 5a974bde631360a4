//go:build integration

package integration

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/backup"
	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/checkout"
	"github.com/xenking/qpos/internal/domain/order"
	"github.com/xenking/qpos/internal/domain/receipt"
	"github.com/xenking/qpos/internal/domain/settings"
	"github.com/xenking/qpos/internal/printer"
	"github.com/xenking/qpos/internal/storage/kv"
	"github.com/xenking/qpos/internal/storage/postgres"
)

var fixedNow = time.Date(2024, time.March, 5, 18, 30, 0, 0, time.UTC)

// till is one process lifetime of the POS on top of a shared store.
type till struct {
	persist  *kv.WriteBehind
	orders   *order.Store
	settings *settings.Service
	checkout *checkout.Service
}

func startTill(t *testing.T, store kv.Store) *till {
	t.Helper()
	ctx := context.Background()
	lg := zap.NewNop()
	clock := func() time.Time { return fixedNow }

	persist := kv.NewWriteBehind(store, lg, 0)
	menu := catalog.NewService(persist, lg)
	menu.Load(ctx, store)
	prefs := settings.NewService(persist, lg, "USD")
	prefs.Load(ctx, store)
	orders, err := order.NewStore(persist, order.NopNotifier{}, lg,
		order.WithClock(clock), order.WithLocation(time.UTC))
	require.NoError(t, err)
	orders.Load(ctx, store)

	dispatcher, err := printer.NewDispatcher(printer.Unavailable{}, printer.NewSpoolSurface(t.TempDir()), lg)
	require.NoError(t, err)
	svc, err := checkout.NewService(orders, menu, prefs,
		receipt.NewFormatter(prefs, receipt.WithClock(clock), receipt.WithLocation(time.UTC)),
		dispatcher, receipt.Width80mm, lg)
	require.NoError(t, err)

	return &till{persist: persist, orders: orders, settings: prefs, checkout: svc}
}

func (tl *till) stop(t *testing.T) {
	t.Helper()
	require.NoError(t, tl.persist.Flush(context.Background()))
	require.Zero(t, tl.persist.Pending())
}

func TestOrdersSurviveRestart(t *testing.T) {
	pool := newPool(t)
	resetStore(t, pool)
	store := postgres.NewStore(pool)
	ctx := context.Background()

	first := startTill(t, store)
	rate := decimal.RequireFromString("10")
	_, err := first.settings.UpdateTax(settings.TaxUpdate{TaxRate: &rate})
	require.NoError(t, err)

	req := checkout.Request{
		CustomerName: "Alice",
		Lines:        []checkout.LineRequest{{MenuItemID: "1", Quantity: 2}},
	}
	charged, err := first.checkout.Charge(ctx, req)
	require.NoError(t, err)
	assert.False(t, charged.Print.Delivered)
	assert.NotEmpty(t, charged.Print.Fallback)

	fired, err := first.checkout.Fire(ctx, req)
	require.NoError(t, err)
	_, err = first.orders.SetStatus(ctx, charged.Order.ID, order.StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, 1, first.orders.PurgeCompleted(ctx))
	first.stop(t)

	second := startTill(t, store)
	active := second.orders.Active()
	require.Len(t, active, 1)
	assert.Equal(t, fired.ID, active[0].ID)
	assert.True(t, fired.Total.Equal(active[0].Total))
	assert.True(t, second.settings.Tax().TaxRate.Equal(rate))

	archived, err := second.orders.Get(charged.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, archived.Status)

	next, err := second.checkout.Fire(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240305-003", next.ID)
	second.stop(t)

	doc, err := backup.FromStore(ctx, store, fixedNow)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, backup.Write(&buf, doc, true))
	sum, err := backup.Inspect(&buf, true)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Counts["orders"])
	assert.Equal(t, 1, sum.Counts["orderArchive"])
}
