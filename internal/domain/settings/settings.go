// Package settings holds the back-office configuration: tax and service
// charge rates, discount types, restaurant identity and display currency.
package settings

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/qpos/internal/domain/money"
	"github.com/xenking/qpos/internal/domain/poserr"
)

var hundred = decimal.NewFromInt(100)

// TaxConfiguration holds the percentage rates applied to an order subtotal.
// It is passed by value into pricing at call time.
type TaxConfiguration struct {
	TaxRate                decimal.Decimal `json:"taxRate"`
	ServiceChargeRate      decimal.Decimal `json:"serviceChargeRate"`
	AutoApplyTax           bool            `json:"autoApplyTax"`
	AutoApplyServiceCharge bool            `json:"autoApplyServiceCharge"`
}

// Validate rejects negative rates.
func (c TaxConfiguration) Validate() error {
	if c.TaxRate.IsNegative() {
		return poserr.InvalidInput("negative tax rate %s", c.TaxRate)
	}
	if c.ServiceChargeRate.IsNegative() {
		return poserr.InvalidInput("negative service charge rate %s", c.ServiceChargeRate)
	}
	return nil
}

// TaxUpdate is a partial update of TaxConfiguration. Nil fields are left
// unchanged.
type TaxUpdate struct {
	TaxRate                *decimal.Decimal `json:"taxRate,omitempty"`
	ServiceChargeRate      *decimal.Decimal `json:"serviceChargeRate,omitempty"`
	AutoApplyTax           *bool            `json:"autoApplyTax,omitempty"`
	AutoApplyServiceCharge *bool            `json:"autoApplyServiceCharge,omitempty"`
}

// Apply returns c with the non-nil fields of u applied.
func (u TaxUpdate) Apply(c TaxConfiguration) TaxConfiguration {
	if u.TaxRate != nil {
		c.TaxRate = *u.TaxRate
	}
	if u.ServiceChargeRate != nil {
		c.ServiceChargeRate = *u.ServiceChargeRate
	}
	if u.AutoApplyTax != nil {
		c.AutoApplyTax = *u.AutoApplyTax
	}
	if u.AutoApplyServiceCharge != nil {
		c.AutoApplyServiceCharge = *u.AutoApplyServiceCharge
	}
	return c
}

// DiscountType is a named percentage discount. Discount types can be managed
// but are not applied to orders yet.
type DiscountType struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	Active     bool            `json:"active"`
}

// Validate checks the percentage lies in [0, 100].
func (d DiscountType) Validate() error {
	if d.Name == "" {
		return poserr.InvalidInput("discount name required")
	}
	if d.Percentage.IsNegative() || d.Percentage.GreaterThan(hundred) {
		return poserr.InvalidInput("discount percentage %s out of range", d.Percentage)
	}
	return nil
}

// Restaurant identifies the venue on receipts.
type Restaurant struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// General holds display preferences.
type General struct {
	CurrencyCode string `json:"currency"`
}

// Validate rejects currency codes outside money.Supported.
func (g General) Validate() error {
	if _, ok := money.Lookup(g.CurrencyCode); !ok {
		return poserr.InvalidInput("unsupported currency %q", g.CurrencyCode)
	}
	return nil
}

// DefaultTax is the configuration of a fresh installation: 8.5% tax applied
// automatically, no service charge.
func DefaultTax() TaxConfiguration {
	return TaxConfiguration{
		TaxRate:           decimal.RequireFromString("8.5"),
		ServiceChargeRate: decimal.Zero,
		AutoApplyTax:      true,
	}
}

// DefaultDiscounts returns the discount types of a fresh installation.
func DefaultDiscounts() []DiscountType {
	return []DiscountType{
		{ID: "1", Name: "Senior Citizen", Percentage: decimal.NewFromInt(10), Active: true},
		{ID: "2", Name: "Student", Percentage: decimal.NewFromInt(5), Active: true},
		{ID: "3", Name: "Staff", Percentage: decimal.NewFromInt(15), Active: true},
	}
}

// DefaultRestaurant returns the restaurant identity of a fresh installation.
func DefaultRestaurant() Restaurant {
	return Restaurant{
		Name:    "DonerG",
		Address: "123 Main Street, City, State 12345",
		Phone:   "(555) 123-4567",
		Email:   "info@donerg.com",
		Website: "www.donerg.com",
	}
}
