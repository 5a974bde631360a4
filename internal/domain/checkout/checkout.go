// Package checkout implements the till flows: previewing a cart, firing an
// order to the kitchen, charging it and printing receipts.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/order"
	"github.com/xenking/qpos/internal/domain/pricing"
	"github.com/xenking/qpos/internal/domain/receipt"
	"github.com/xenking/qpos/internal/domain/settings"
	"github.com/xenking/qpos/internal/printer"
)

// Menu resolves menu items.
type Menu interface {
	Item(id string) (catalog.MenuItem, error)
}

// Settings provides the configuration read at call time.
type Settings interface {
	Tax() settings.TaxConfiguration
	Restaurant() settings.Restaurant
}

// Receipts renders receipt text.
type Receipts interface {
	Format(in receipt.Input) (string, error)
}

// Printer delivers receipt text.
type Printer interface {
	Dispatch(ctx context.Context, job printer.Job) (printer.Result, error)
}

// LineRequest asks for a quantity of a menu item.
type LineRequest struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
	Note       string `json:"notes,omitempty"`
}

// Request is an order as entered at the till.
type Request struct {
	CustomerName    string        `json:"customerName"`
	CustomerContact string        `json:"customerContact,omitempty"`
	Lines           []LineRequest `json:"items"`
}

// Preview is the priced content of a cart.
type Preview struct {
	Lines  []order.Line   `json:"items"`
	Totals pricing.Totals `json:"totals"`
}

// ChargeResult is the outcome of Charge. The order exists even when printing
// failed; PrintError then describes why.
type ChargeResult struct {
	Order      *order.Order   `json:"order"`
	Print      printer.Result `json:"print"`
	PrintError string         `json:"printError,omitempty"`
}

// Service runs the till flows. Payment is simulated: charging an order always
// succeeds once the order is created.
type Service struct {
	orders   *order.Store
	menu     Menu
	settings Settings
	receipts Receipts
	printer  Printer
	width    receipt.Width
	lg       *zap.Logger
}

// NewService creates a Service printing receipts of the given width.
func NewService(
	orders *order.Store,
	menu Menu,
	cfg Settings,
	receipts Receipts,
	p Printer,
	width receipt.Width,
	lg *zap.Logger,
) (*Service, error) {
	if err := width.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		orders:   orders,
		menu:     menu,
		settings: cfg,
		receipts: receipts,
		printer:  p,
		width:    width,
		lg:       lg,
	}, nil
}

// cart resolves the requested lines against the menu.
func (s *Service) cart(reqs []LineRequest) (*order.Cart, error) {
	var c order.Cart
	for _, r := range reqs {
		if r.Quantity == 0 {
			continue
		}
		item, err := s.menu.Item(r.MenuItemID)
		if err != nil {
			return nil, err
		}
		if _, err := c.Add(item, r.Quantity, r.Note); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// Preview prices the requested lines under the current tax configuration
// without creating an order.
func (s *Service) Preview(reqs []LineRequest) (*Preview, error) {
	c, err := s.cart(reqs)
	if err != nil {
		return nil, err
	}
	totals, err := c.Totals(s.settings.Tax())
	if err != nil {
		return nil, err
	}
	return &Preview{Lines: c.Lines(), Totals: totals}, nil
}

// Fire creates a pending order and sends it to the kitchen queue.
func (s *Service) Fire(ctx context.Context, req Request) (*order.Order, error) {
	c, err := s.cart(req.Lines)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.Create(ctx, order.CreateRequest{
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		Lines:           c.Lines(),
	}, s.settings.Tax())
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	s.lg.Info("Order fired",
		zap.String("order_id", o.ID),
		zap.Int("lines", len(o.Lines)),
		zap.String("total", o.Total.String()),
	)
	return o, nil
}

// Charge creates the order like Fire, then prints its receipt.
func (s *Service) Charge(ctx context.Context, req Request) (*ChargeResult, error) {
	o, err := s.Fire(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &ChargeResult{Order: o}
	pr, err := s.print(ctx, o)
	if err != nil {
		s.lg.Error("Print receipt after charge", zap.String("order_id", o.ID), zap.Error(err))
		res.PrintError = err.Error()
		return res, nil
	}
	res.Print = pr
	return res, nil
}

// Reprint prints the receipt of an existing order again.
func (s *Service) Reprint(ctx context.Context, id string) (printer.Result, error) {
	o, err := s.orders.Get(id)
	if err != nil {
		return printer.Result{}, err
	}
	return s.print(ctx, o)
}

// Receipt renders the receipt of an existing order without control
// sequences.
func (s *Service) Receipt(id string) (string, error) {
	o, err := s.orders.Get(id)
	if err != nil {
		return "", err
	}
	text, err := s.render(o)
	if err != nil {
		return "", err
	}
	return receipt.StripControl(text), nil
}

func (s *Service) render(o *order.Order) (string, error) {
	items := make([]receipt.Item, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = receipt.Item{Name: l.Item.Name, Quantity: l.Quantity, UnitPrice: l.Item.Price}
	}
	return s.receipts.Format(receipt.Input{
		Items:        items,
		Totals:       o.Totals,
		OrderID:      o.ID,
		CustomerName: o.CustomerName,
		Restaurant:   s.settings.Restaurant(),
		Width:        s.width,
	})
}

func (s *Service) print(ctx context.Context, o *order.Order) (printer.Result, error) {
	text, err := s.render(o)
	if err != nil {
		return printer.Result{}, errors.Wrap(err, "format receipt")
	}
	res, err := s.printer.Dispatch(ctx, printer.Job{Title: o.ID, Text: text, Width: s.width})
	if err != nil {
		return printer.Result{}, errors.Wrap(err, "dispatch receipt")
	}
	return res, nil
}
