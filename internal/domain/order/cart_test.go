package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/qpos/internal/domain/poserr"
)

func TestCart_AddMergesSameItem(t *testing.T) {
	var c Cart

	first, err := c.Add(pizza, 1, "")
	require.NoError(t, err)
	merged, err := c.Add(pizza, 2, "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 3, merged.Quantity)
	assert.Equal(t, 1, c.Len())

	// A different note is a separate line.
	_, err = c.Add(pizza, 1, "no olives")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestCart_SetQuantity(t *testing.T) {
	var c Cart

	l, err := c.Add(coffee, 1, "")
	require.NoError(t, err)

	require.NoError(t, c.SetQuantity(l.ID, 4))
	assert.Equal(t, 4, c.Lines()[0].Quantity)

	require.NoError(t, c.SetQuantity(l.ID, 0))
	assert.Zero(t, c.Len())

	require.ErrorIs(t, c.SetQuantity(l.ID, 1), poserr.ErrNotFound)
	require.ErrorIs(t, c.SetQuantity(l.ID, -1), poserr.ErrInvalidInput)
}

func TestCart_Totals(t *testing.T) {
	var c Cart

	_, err := c.Add(pizza, 2, "")
	require.NoError(t, err)
	l, err := c.Add(coffee, 1, "")
	require.NoError(t, err)

	got, err := c.Totals(taxOnly())
	require.NoError(t, err)
	assert.True(t, dec("29.8375").Equal(got.Total))

	require.NoError(t, c.Remove(l.ID))
	got, err = c.Totals(taxOnly())
	require.NoError(t, err)
	assert.True(t, dec("24").Equal(got.Subtotal))

	c.Clear()
	got, err = c.Totals(taxOnly())
	require.NoError(t, err)
	assert.True(t, got.Total.IsZero())
}

func TestCart_AddRejectsNonPositive(t *testing.T) {
	var c Cart

	_, err := c.Add(pizza, 0, "")
	require.ErrorIs(t, err, poserr.ErrInvalidInput)
	assert.Zero(t, c.Len())
}
