// Package money formats monetary amounts for display according to the
// configured currency.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Position controls where the currency symbol is placed.
type Position string

const (
	// PositionBefore renders the symbol before the amount ("$12.00").
	PositionBefore Position = "before"
	// PositionAfter renders the symbol after the amount ("12.00 CHF").
	PositionAfter Position = "after"
)

// Currency describes how amounts in a currency are displayed.
type Currency struct {
	Code     string   `json:"code"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Decimals int32    `json:"decimals"`
}

// DefaultCode is used when no currency is configured or the configured code
// is unknown.
const DefaultCode = "USD"

// Supported lists every currency the POS can display.
var Supported = []Currency{
	{Code: "USD", Symbol: "$", Name: "US Dollar", Position: PositionBefore, Decimals: 2},
	{Code: "EUR", Symbol: "€", Name: "Euro", Position: PositionBefore, Decimals: 2},
	{Code: "GBP", Symbol: "£", Name: "British Pound", Position: PositionBefore, Decimals: 2},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Position: PositionBefore, Decimals: 2},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Position: PositionBefore, Decimals: 0},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Position: PositionBefore, Decimals: 2},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Position: PositionBefore, Decimals: 2},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Position: PositionBefore, Decimals: 2},
	{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc", Position: PositionAfter, Decimals: 2},
	{Code: "SEK", Symbol: "kr", Name: "Swedish Krona", Position: PositionAfter, Decimals: 2},
}

// Lookup returns the supported currency with the given ISO code
// (case-insensitive).
func Lookup(code string) (Currency, bool) {
	for _, c := range Supported {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Currency{}, false
}

// LookupOrDefault is like Lookup but falls back to USD.
func LookupOrDefault(code string) Currency {
	if c, ok := Lookup(code); ok {
		return c
	}
	c, _ := Lookup(DefaultCode)
	return c
}

// Formatter renders amounts in a single currency.
type Formatter struct {
	cur Currency
}

// NewFormatter returns a Formatter for the given currency.
func NewFormatter(c Currency) Formatter {
	return Formatter{cur: c}
}

// Currency returns the currency this formatter renders.
func (f Formatter) Currency() Currency {
	return f.cur
}

// Format rounds amount half away from zero to the currency precision and
// places the symbol.
func (f Formatter) Format(amount decimal.Decimal) string {
	s := amount.StringFixed(f.cur.Decimals)
	if f.cur.Position == PositionAfter {
		return s + " " + f.cur.Symbol
	}
	return f.cur.Symbol + s
}
