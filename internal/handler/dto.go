package handler

import (
	"time"

	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/order"
	"github.com/xenking/qpos/internal/domain/pricing"
	"github.com/xenking/qpos/internal/domain/settings"
)

// Response shapes. Amounts are sent as JSON numbers; the store keeps them as
// exact decimal strings.

type menuItemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
}

func toMenuItem(m catalog.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price.InexactFloat64(),
		Category:    m.Category,
		Description: m.Description,
		Image:       m.Image,
	}
}

func toMenuItems(items []catalog.MenuItem) []menuItemResponse {
	out := make([]menuItemResponse, len(items))
	for i, m := range items {
		out[i] = toMenuItem(m)
	}
	return out
}

type totalsResponse struct {
	Subtotal      float64 `json:"subtotal"`
	Tax           float64 `json:"tax"`
	ServiceCharge float64 `json:"serviceCharge"`
	Discount      float64 `json:"discount"`
	Total         float64 `json:"total"`
}

func toTotals(t pricing.Totals) totalsResponse {
	return totalsResponse{
		Subtotal:      t.Subtotal.InexactFloat64(),
		Tax:           t.Tax.InexactFloat64(),
		ServiceCharge: t.ServiceCharge.InexactFloat64(),
		Discount:      t.Discount.InexactFloat64(),
		Total:         t.Total.InexactFloat64(),
	}
}

type lineResponse struct {
	ID       string           `json:"id"`
	MenuItem menuItemResponse `json:"menuItem"`
	Quantity int              `json:"quantity"`
	Notes    string           `json:"notes,omitempty"`
}

func toLines(lines []order.Line) []lineResponse {
	out := make([]lineResponse, len(lines))
	for i, l := range lines {
		out[i] = lineResponse{ID: l.ID, MenuItem: toMenuItem(l.Item), Quantity: l.Quantity, Notes: l.Note}
	}
	return out
}

type orderResponse struct {
	ID              string         `json:"id"`
	CustomerName    string         `json:"customerName"`
	CustomerContact string         `json:"customerContact,omitempty"`
	Items           []lineResponse `json:"items"`
	totalsResponse
	Status    order.Status `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

func toOrder(o *order.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerContact: o.CustomerContact,
		Items:           toLines(o.Lines),
		totalsResponse:  toTotals(o.Totals),
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}
}

func toOrders(orders []*order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrder(o)
	}
	return out
}

type taxResponse struct {
	TaxRate                float64 `json:"taxRate"`
	ServiceChargeRate      float64 `json:"serviceChargeRate"`
	AutoApplyTax           bool    `json:"autoApplyTax"`
	AutoApplyServiceCharge bool    `json:"autoApplyServiceCharge"`
}

func toTax(c settings.TaxConfiguration) taxResponse {
	return taxResponse{
		TaxRate:                c.TaxRate.InexactFloat64(),
		ServiceChargeRate:      c.ServiceChargeRate.InexactFloat64(),
		AutoApplyTax:           c.AutoApplyTax,
		AutoApplyServiceCharge: c.AutoApplyServiceCharge,
	}
}

type discountResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Active     bool    `json:"active"`
}

func toDiscount(d settings.DiscountType) discountResponse {
	return discountResponse{ID: d.ID, Name: d.Name, Percentage: d.Percentage.InexactFloat64(), Active: d.Active}
}

type itemStatResponse struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

type dailyStatsResponse struct {
	Date         string             `json:"date"`
	TotalRevenue float64            `json:"totalRevenue"`
	TotalOrders  int                `json:"totalOrders"`
	AverageOrder float64            `json:"averageOrder"`
	TopItems     []itemStatResponse `json:"topItems"`
}

func toDailyStats(s order.DailyStats) dailyStatsResponse {
	top := make([]itemStatResponse, len(s.TopItems))
	for i, it := range s.TopItems {
		top[i] = itemStatResponse{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Revenue:    it.Revenue.InexactFloat64(),
		}
	}
	return dailyStatsResponse{
		Date:         s.Date,
		TotalRevenue: s.TotalRevenue.InexactFloat64(),
		TotalOrders:  s.TotalOrders,
		AverageOrder: s.AverageOrder.InexactFloat64(),
		TopItems:     top,
	}
}
