package receipt

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/qpos/internal/domain/money"
	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/pricing"
	"github.com/xenking/qpos/internal/domain/settings"
)

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedClock() time.Time {
	return time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
}

func newTestFormatter(code string) *Formatter {
	return NewFormatter(
		money.NewFormatter(money.LookupOrDefault(code)),
		WithClock(fixedClock),
		WithLocation(time.UTC),
	)
}

func sampleInput(width Width) Input {
	return Input{
		Items: []Item{
			{Name: "Super Delicious Burger", Quantity: 2, UnitPrice: dec("10.00")},
			{Name: "Chips", Quantity: 1, UnitPrice: dec("6.00")},
		},
		Totals: pricing.Totals{
			Subtotal:      dec("26.00"),
			Tax:           dec("2.21"),
			ServiceCharge: decimal.Zero,
			Discount:      decimal.Zero,
			Total:         dec("28.21"),
		},
		OrderID:      "ORD-20240305-001",
		CustomerName: "Alice",
		Restaurant: settings.Restaurant{
			Name:    "DonerG",
			Address: "123 Main Street",
			Phone:   "(555) 123-4567",
		},
		Width: width,
	}
}

// printableRows returns receipt rows without control codes and blank rows.
func printableRows(text string) []string {
	var rows []string
	for _, r := range strings.Split(StripControl(text), "\n") {
		if r != "" {
			rows = append(rows, r)
		}
	}
	return rows
}

func indexOfPrefix(rows []string, prefix string) int {
	for i, r := range rows {
		if strings.HasPrefix(r, prefix) {
			return i
		}
	}
	return -1
}

// --- Layout helpers ---

func TestCenterText(t *testing.T) {
	assert.Equal(t, "  ab   ", centerText("ab", 7))
	assert.Equal(t, "abcdefgh", centerText("abcdefgh", 4))
}

func TestRightAlign(t *testing.T) {
	assert.Equal(t, "     abc", rightAlign("abc", 8))
	assert.Equal(t, "abcd", rightAlign("abcdefgh", 4))
}

func TestFormatLine(t *testing.T) {
	tests := []struct {
		name        string
		left, right string
		want        string
	}{
		{name: "fits", left: "Hello", right: "$1", want: "Hello   $1"},
		{name: "truncates left", left: "abcdefghij", right: "12", want: "abcde...12"},
		{name: "left only", left: "abc", right: "", want: "abc       "},
		{name: "right only", left: "", right: "abc", want: "       abc"},
		{name: "right overflows", left: "x", right: "0123456789AB", want: "0123456789"},
		{name: "no room for ellipsis", left: "abcdef", right: "12345678", want: "..12345678"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatLine(tt.left, tt.right, 10)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 10)
		})
	}
}

func TestDivider(t *testing.T) {
	assert.Equal(t, "=====", divider('=', 5))
}

// --- Formatter ---

func TestFormat_RowsHaveExactWidth(t *testing.T) {
	for _, w := range []Width{Width58mm, Width80mm} {
		for _, code := range []string{"USD", "CHF", "JPY"} {
			out, err := newTestFormatter(code).Format(sampleInput(w))
			require.NoError(t, err)

			for _, row := range printableRows(out) {
				assert.Equalf(t, int(w), runewidth.StringWidth(row), "width %d, currency %s, row %q", w, code, row)
			}
		}
	}
}

func TestFormat_ControlCodes(t *testing.T) {
	out, err := newTestFormatter("USD").Format(sampleInput(Width80mm))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, InitCommand+"\n"))
	assert.True(t, strings.HasSuffix(out, "\n\n\n"+CutCommand))

	stripped := StripControl(out)
	assert.NotContains(t, stripped, InitCommand)
	assert.NotContains(t, stripped, CutCommand)
}

func TestFormat_Header(t *testing.T) {
	out, err := newTestFormatter("USD").Format(sampleInput(Width58mm))
	require.NoError(t, err)
	rows := printableRows(out)

	assert.Equal(t, centerText("DONERG", 32), rows[0])
	assert.Equal(t, formatLine("Order:", "ORD-20240305-001", 32), rows[indexOfPrefix(rows, "Order:")])
	assert.Equal(t, formatLine("Customer:", "Alice", 32), rows[indexOfPrefix(rows, "Customer:")])
	assert.Equal(t, formatLine("Date:", "3/5/2024", 32), rows[indexOfPrefix(rows, "Date:")])
	assert.Equal(t, formatLine("Time:", "2:07:09 PM", 32), rows[indexOfPrefix(rows, "Time:")])
}

func TestFormat_OptionalHeaderRows(t *testing.T) {
	in := sampleInput(Width58mm)
	in.CustomerName = ""
	in.Restaurant = settings.Restaurant{Name: "Corner Cafe"}

	out, err := newTestFormatter("USD").Format(in)
	require.NoError(t, err)
	rows := printableRows(out)

	assert.Equal(t, -1, indexOfPrefix(rows, "Customer:"))
	// Name is followed directly by the divider when address and phone are empty.
	assert.Equal(t, centerText("CORNER CAFE", 32), rows[0])
	assert.Equal(t, divider('-', 32), rows[1])
}

func TestFormat_LongItemName(t *testing.T) {
	in := sampleInput(Width58mm)
	in.Items = []Item{
		{Name: "Almond Crusted Salmon Big", Quantity: 1, UnitPrice: dec("21.00")},
		{Name: "Chips", Quantity: 3, UnitPrice: dec("6.00")},
	}

	out, err := newTestFormatter("USD").Format(in)
	require.NoError(t, err)
	rows := printableRows(out)

	i := indexOfPrefix(rows, "1x ")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "1x Almond Crusted Salmo...$21.00", rows[i])
	assert.Equal(t, formatLine("   @ $21.00 each", "", 32), rows[i+1])

	j := indexOfPrefix(rows, "3x ")
	require.GreaterOrEqual(t, j, 0)
	assert.Equal(t, formatLine("3x Chips", "$18.00", 32), rows[j])
	assert.False(t, strings.HasPrefix(rows[j+1], "   @"))
}

func TestFormat_TotalsBlock(t *testing.T) {
	t.Run("zero rows hidden", func(t *testing.T) {
		out, err := newTestFormatter("USD").Format(sampleInput(Width80mm))
		require.NoError(t, err)
		rows := printableRows(out)

		assert.GreaterOrEqual(t, indexOfPrefix(rows, "Subtotal:"), 0)
		assert.GreaterOrEqual(t, indexOfPrefix(rows, "Tax:"), 0)
		assert.Equal(t, -1, indexOfPrefix(rows, "Discount:"))
		assert.Equal(t, -1, indexOfPrefix(rows, "Service Charge:"))
		assert.Equal(t, formatLine("TOTAL:", "$28.21", 48), rows[indexOfPrefix(rows, "TOTAL:")])
	})

	t.Run("all rows shown", func(t *testing.T) {
		in := sampleInput(Width80mm)
		in.Totals = pricing.Totals{
			Subtotal:      dec("10"),
			Discount:      dec("1"),
			ServiceCharge: dec("0.5"),
			Tax:           dec("0.85"),
			Total:         dec("10.35"),
		}
		out, err := newTestFormatter("USD").Format(in)
		require.NoError(t, err)
		rows := printableRows(out)

		sub := indexOfPrefix(rows, "Subtotal:")
		require.GreaterOrEqual(t, sub, 0)
		assert.Equal(t, formatLine("Discount:", "-$1.00", 48), rows[sub+1])
		assert.Equal(t, formatLine("Service Charge:", "$0.50", 48), rows[sub+2])
		assert.Equal(t, formatLine("Tax:", "$0.85", 48), rows[sub+3])
		assert.Equal(t, divider('-', 48), rows[sub+4])
	})

	t.Run("tax hidden when zero", func(t *testing.T) {
		in := sampleInput(Width80mm)
		in.Totals.Tax = decimal.Zero
		out, err := newTestFormatter("USD").Format(in)
		require.NoError(t, err)
		assert.Equal(t, -1, indexOfPrefix(printableRows(out), "Tax:"))
	})
}

func TestFormat_CurrencyAfterAmount(t *testing.T) {
	out, err := newTestFormatter("CHF").Format(sampleInput(Width80mm))
	require.NoError(t, err)

	assert.Contains(t, out, formatLine("TOTAL:", "28.21 CHF", 48))
	assert.NotContains(t, out, "$")
}

func TestFormat_Footer(t *testing.T) {
	out, err := newTestFormatter("USD").Format(sampleInput(Width58mm))
	require.NoError(t, err)

	want := centerText("Thank you for your visit!", 32) + "\n" +
		centerText("Please come again", 32) + "\n\n" +
		centerText("Powered by QPOS", 32) + "\n\n\n\n" + CutCommand
	assert.True(t, strings.HasSuffix(out, want))
}

func TestFormat_InvalidInput(t *testing.T) {
	f := newTestFormatter("USD")

	_, err := f.Format(sampleInput(Width(40)))
	require.ErrorIs(t, err, poserr.ErrInvalidInput)

	in := sampleInput(Width58mm)
	in.Items[0].Quantity = -1
	_, err = f.Format(in)
	require.ErrorIs(t, err, poserr.ErrInvalidInput)

	in = sampleInput(Width58mm)
	in.Items[1].UnitPrice = decimal.RequireFromString("-0.01")
	_, err = f.Format(in)
	require.ErrorIs(t, err, poserr.ErrInvalidInput)
	require.ErrorContains(t, err, "negative price")
}

func TestWidthForPaper(t *testing.T) {
	w, err := WidthForPaper(58)
	require.NoError(t, err)
	assert.Equal(t, Width58mm, w)
	assert.Equal(t, 58, w.PaperMM())

	w, err = WidthForPaper(80)
	require.NoError(t, err)
	assert.Equal(t, Width80mm, w)

	_, err = WidthForPaper(76)
	require.ErrorIs(t, err, poserr.ErrInvalidInput)
}
