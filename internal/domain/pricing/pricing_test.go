package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/settings"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestCompute_TaxOnly(t *testing.T) {
	cfg := settings.TaxConfiguration{TaxRate: dec("8.5"), AutoApplyTax: true}

	got, err := Compute([]Item{
		{Price: dec("12.00"), Quantity: 2},
		{Price: dec("3.50"), Quantity: 1},
	}, cfg)
	require.NoError(t, err)

	assertDecimal(t, "27.50", got.Subtotal, "subtotal")
	assertDecimal(t, "2.3375", got.Tax, "tax")
	assertDecimal(t, "0", got.ServiceCharge, "service charge")
	assertDecimal(t, "0", got.Discount, "discount")
	assertDecimal(t, "29.8375", got.Total, "total")
}

func TestCompute_Empty(t *testing.T) {
	configs := []settings.TaxConfiguration{
		{},
		{TaxRate: dec("8.5"), AutoApplyTax: true},
		{TaxRate: dec("20"), ServiceChargeRate: dec("12.5"), AutoApplyTax: true, AutoApplyServiceCharge: true},
	}
	for _, cfg := range configs {
		got, err := Compute(nil, cfg)
		require.NoError(t, err)
		assert.True(t, got.Subtotal.IsZero())
		assert.True(t, got.Tax.IsZero())
		assert.True(t, got.ServiceCharge.IsZero())
		assert.True(t, got.Discount.IsZero())
		assert.True(t, got.Total.IsZero())
	}
}

func TestCompute_FlagsGateRates(t *testing.T) {
	items := []Item{{Price: dec("100"), Quantity: 1}}

	tests := []struct {
		name    string
		cfg     settings.TaxConfiguration
		tax     string
		service string
		total   string
	}{
		{
			name:    "rates set but not applied",
			cfg:     settings.TaxConfiguration{TaxRate: dec("10"), ServiceChargeRate: dec("5")},
			tax:     "0",
			service: "0",
			total:   "100",
		},
		{
			name:    "service charge only",
			cfg:     settings.TaxConfiguration{TaxRate: dec("10"), ServiceChargeRate: dec("5"), AutoApplyServiceCharge: true},
			tax:     "0",
			service: "5",
			total:   "105",
		},
		{
			name: "both applied to subtotal",
			cfg: settings.TaxConfiguration{
				TaxRate: dec("10"), ServiceChargeRate: dec("5"),
				AutoApplyTax: true, AutoApplyServiceCharge: true,
			},
			tax:     "10",
			service: "5",
			total:   "115",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(items, tt.cfg)
			require.NoError(t, err)
			assertDecimal(t, tt.tax, got.Tax, "tax")
			assertDecimal(t, tt.service, got.ServiceCharge, "service charge")
			assertDecimal(t, tt.total, got.Total, "total")
		})
	}
}

func TestCompute_Linear(t *testing.T) {
	cfg := settings.TaxConfiguration{
		TaxRate: dec("8.5"), ServiceChargeRate: dec("12.5"),
		AutoApplyTax: true, AutoApplyServiceCharge: true,
	}
	items := []Item{
		{Price: dec("12.00"), Quantity: 2},
		{Price: dec("3.33"), Quantity: 3},
		{Price: dec("0.99"), Quantity: 0},
	}
	doubled := make([]Item, len(items))
	for i, it := range items {
		doubled[i] = Item{Price: it.Price, Quantity: it.Quantity * 2}
	}

	base, err := Compute(items, cfg)
	require.NoError(t, err)
	twice, err := Compute(doubled, cfg)
	require.NoError(t, err)

	two := decimal.NewFromInt(2)
	assert.True(t, base.Subtotal.Mul(two).Equal(twice.Subtotal))
	assert.True(t, base.Tax.Mul(two).Equal(twice.Tax))
	assert.True(t, base.ServiceCharge.Mul(two).Equal(twice.ServiceCharge))
	assert.True(t, twice.Discount.IsZero())
}

func TestCompute_InvalidInput(t *testing.T) {
	cfg := settings.TaxConfiguration{TaxRate: dec("8.5"), AutoApplyTax: true}

	_, err := Compute([]Item{{Price: dec("1"), Quantity: -1}}, cfg)
	require.ErrorIs(t, err, poserr.ErrInvalidInput)

	_, err = Compute([]Item{{Price: dec("-1"), Quantity: 1}}, cfg)
	require.ErrorIs(t, err, poserr.ErrInvalidInput)

	_, err = Compute(nil, settings.TaxConfiguration{TaxRate: dec("-1")})
	require.ErrorIs(t, err, poserr.ErrInvalidInput)
}
