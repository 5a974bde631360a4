package order

import (
	"github.com/google/uuid"

	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/pricing"
	"github.com/xenking/qpos/internal/domain/settings"
)

// Cart collects lines before an order is fired. Adding an item already in the
// cart increases its quantity. A Cart is not safe for concurrent use.
type Cart struct {
	lines []Line
}

// Add adds qty of item to the cart and returns the resulting line.
func (c *Cart) Add(item catalog.MenuItem, qty int, note string) (Line, error) {
	if qty <= 0 {
		return Line{}, poserr.InvalidInput("quantity must be positive, got %d", qty)
	}
	for i := range c.lines {
		if c.lines[i].Item.ID == item.ID && c.lines[i].Note == note {
			c.lines[i].Quantity += qty
			return c.lines[i], nil
		}
	}
	l := Line{ID: uuid.New().String(), Item: item, Quantity: qty, Note: note}
	c.lines = append(c.lines, l)
	return l, nil
}

// SetQuantity changes the quantity of a line. Zero removes the line.
func (c *Cart) SetQuantity(lineID string, qty int) error {
	if qty < 0 {
		return poserr.InvalidInput("negative quantity %d", qty)
	}
	for i := range c.lines {
		if c.lines[i].ID != lineID {
			continue
		}
		if qty == 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		c.lines[i].Quantity = qty
		return nil
	}
	return poserr.NotFound("cart line", lineID)
}

// Remove deletes a line.
func (c *Cart) Remove(lineID string) error {
	return c.SetQuantity(lineID, 0)
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

// Len returns the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// Totals previews the order totals under cfg.
func (c *Cart) Totals(cfg settings.TaxConfiguration) (pricing.Totals, error) {
	return ComputeTotals(c.lines, cfg)
}

// Clear empties the cart.
func (c *Cart) Clear() { c.lines = nil }
