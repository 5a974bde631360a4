package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter_Format(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		amount string
		want   string
	}{
		{name: "usd rounds half up", code: "USD", amount: "2.3375", want: "$2.34"},
		{name: "usd pads decimals", code: "USD", amount: "27.5", want: "$27.50"},
		{name: "zero", code: "USD", amount: "0", want: "$0.00"},
		{name: "yen has no decimals", code: "JPY", amount: "1234.5", want: "¥1235"},
		{name: "franc after amount", code: "CHF", amount: "12", want: "12.00 CHF"},
		{name: "krona after amount", code: "SEK", amount: "9.999", want: "10.00 kr"},
		{name: "euro symbol", code: "EUR", amount: "3.5", want: "€3.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Lookup(tt.code)
			require.True(t, ok)

			got := NewFormatter(c).Format(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup(t *testing.T) {
	c, ok := Lookup("gbp")
	require.True(t, ok)
	assert.Equal(t, "£", c.Symbol)

	_, ok = Lookup("XXX")
	assert.False(t, ok)
}

func TestLookupOrDefault_Unknown(t *testing.T) {
	c := LookupOrDefault("nope")
	assert.Equal(t, "USD", c.Code)
	assert.Equal(t, "$", c.Symbol)
}
