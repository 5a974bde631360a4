// Package receipt renders orders as fixed-width text for ESC/POS thermal
// printers.
//
// The output mixes printable rows with the printer's init and paper-cut
// control sequences. Use StripControl before showing it to a person.
package receipt

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/pricing"
	"github.com/xenking/qpos/internal/domain/settings"
)

// ESC/POS control sequences.
const (
	InitCommand = "\x1B\x40"
	CutCommand  = "\x1D\x56\x00"
)

// Width is the number of characters per printed line.
type Width int

// Supported paper widths.
const (
	Width58mm Width = 32
	Width80mm Width = 48
)

// Validate rejects widths other than Width58mm and Width80mm.
func (w Width) Validate() error {
	switch w {
	case Width58mm, Width80mm:
		return nil
	default:
		return poserr.InvalidInput("unsupported receipt width %d", int(w))
	}
}

// PaperMM returns the paper width in millimetres.
func (w Width) PaperMM() int {
	if w == Width58mm {
		return 58
	}
	return 80
}

// WidthForPaper maps a paper width in millimetres (58 or 80) to a Width.
func WidthForPaper(mm int) (Width, error) {
	switch mm {
	case 58:
		return Width58mm, nil
	case 80:
		return Width80mm, nil
	default:
		return 0, poserr.InvalidInput("unsupported paper width %dmm", mm)
	}
}

// longNameThreshold is the item name length above which the unit price is
// printed on its own row.
const longNameThreshold = 20

// Footer rows printed under the totals.
var footer = []string{
	"Thank you for your visit!",
	"Please come again",
	"",
	"Powered by QPOS",
}

// Item is a receipt line.
type Item struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Input is everything printed on a receipt.
type Input struct {
	Items        []Item
	Totals       pricing.Totals
	OrderID      string
	CustomerName string
	Restaurant   settings.Restaurant
	Width        Width
}

// Money renders an amount with the configured currency.
type Money interface {
	Format(amount decimal.Decimal) string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithClock sets the time source for the date and time rows.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// WithLocation sets the time zone for the date and time rows.
func WithLocation(loc *time.Location) Option {
	return func(f *Formatter) { f.loc = loc }
}

// Formatter renders receipts. It is safe for concurrent use.
type Formatter struct {
	money Money
	now   func() time.Time
	loc   *time.Location
}

// NewFormatter returns a Formatter that renders amounts with money.
func NewFormatter(money Money, opts ...Option) *Formatter {
	f := &Formatter{
		money: money,
		now:   time.Now,
		loc:   time.Local,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Format renders in as receipt text.
func (f *Formatter) Format(in Input) (string, error) {
	if err := in.Width.Validate(); err != nil {
		return "", err
	}
	for _, it := range in.Items {
		if it.Quantity < 0 {
			return "", poserr.InvalidInput("item %q: negative quantity %d", it.Name, it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return "", poserr.InvalidInput("item %q: negative price %s", it.Name, it.UnitPrice)
		}
	}

	l := &layout{width: int(in.Width)}
	now := f.now().In(f.loc)

	l.raw(InitCommand)

	// Header.
	l.blank()
	l.center(strings.ToUpper(in.Restaurant.Name))
	if in.Restaurant.Address != "" {
		l.center(in.Restaurant.Address)
	}
	if in.Restaurant.Phone != "" {
		l.center(in.Restaurant.Phone)
	}
	l.blank()

	l.divider()
	if in.OrderID != "" {
		l.pair("Order:", in.OrderID)
	}
	if in.CustomerName != "" {
		l.pair("Customer:", in.CustomerName)
	}
	l.pair("Date:", now.Format("1/2/2006"))
	l.pair("Time:", now.Format("3:04:05 PM"))
	l.divider()

	// Items.
	l.blank()
	for _, it := range in.Items {
		lineTotal := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		l.pair(strconv.Itoa(it.Quantity)+"x "+it.Name, f.money.Format(lineTotal))
		if len([]rune(it.Name)) > longNameThreshold {
			l.pair("   @ "+f.money.Format(it.UnitPrice)+" each", "")
		}
	}
	l.blank()
	l.divider()

	// Totals.
	t := in.Totals
	l.pair("Subtotal:", f.money.Format(t.Subtotal))
	if t.Discount.IsPositive() {
		l.pair("Discount:", "-"+f.money.Format(t.Discount))
	}
	if t.ServiceCharge.IsPositive() {
		l.pair("Service Charge:", f.money.Format(t.ServiceCharge))
	}
	if t.Tax.IsPositive() {
		l.pair("Tax:", f.money.Format(t.Tax))
	}
	l.divider()
	l.pair("TOTAL:", f.money.Format(t.Total))
	l.divider()

	// Footer.
	l.blank()
	for _, s := range footer {
		if s == "" {
			l.blank()
			continue
		}
		l.center(s)
	}
	l.raw("\n\n\n")
	l.raw(CutCommand)

	return l.String(), nil
}

var controlStripper = strings.NewReplacer(InitCommand, "", CutCommand, "")

// StripControl removes printer control sequences from text.
func StripControl(text string) string {
	return controlStripper.Replace(text)
}
