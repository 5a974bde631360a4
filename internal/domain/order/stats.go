package order

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const topItemsLimit = 5

// ItemStat is the sales of one menu item.
type ItemStat struct {
	MenuItemID string          `json:"menuItemId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// DailyStats summarizes the orders created on one calendar day.
type DailyStats struct {
	Date         string          `json:"date"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalOrders  int             `json:"totalOrders"`
	AverageOrder decimal.Decimal `json:"averageOrder"`
	TopItems     []ItemStat      `json:"topItems"`
}

// DailyStats reports on orders created on the calendar day containing day,
// in the store's location. Archived orders are included, so purging history
// does not change reports.
func (s *Store) DailyStats(day time.Time) DailyStats {
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	stats := DailyStats{
		Date:         start.Format(time.DateOnly),
		TotalRevenue: decimal.Zero,
		AverageOrder: decimal.Zero,
		TopItems:     []ItemStat{},
	}

	byItem := make(map[string]*ItemStat)
	var seen []string
	visit := func(o *Order) {
		if o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			return
		}
		stats.TotalOrders++
		stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
		for _, l := range o.Lines {
			st, ok := byItem[l.Item.ID]
			if !ok {
				st = &ItemStat{MenuItemID: l.Item.ID, Name: l.Item.Name, Revenue: decimal.Zero}
				byItem[l.Item.ID] = st
				seen = append(seen, l.Item.ID)
			}
			st.Quantity += l.Quantity
			st.Revenue = st.Revenue.Add(l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
	}

	s.mu.RLock()
	for _, o := range s.archive {
		visit(o)
	}
	for _, o := range s.orders {
		visit(o)
	}
	s.mu.RUnlock()

	if stats.TotalOrders > 0 {
		stats.AverageOrder = stats.TotalRevenue.Div(decimal.NewFromInt(int64(stats.TotalOrders)))
	}

	items := make([]ItemStat, 0, len(seen))
	for _, id := range seen {
		items = append(items, *byItem[id])
	}
	// Stable sort keeps first-seen order among equal quantities.
	slices.SortStableFunc(items, func(a, b ItemStat) int { return b.Quantity - a.Quantity })
	if len(items) > topItemsLimit {
		items = items[:topItemsLimit]
	}
	stats.TopItems = items
	return stats
}
