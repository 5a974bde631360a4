package poserr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		target  error
		message string
	}{
		{
			name:    "invalid input",
			err:     InvalidInput("quantity %d", -1),
			target:  ErrInvalidInput,
			message: "quantity -1: invalid input",
		},
		{
			name:    "not found",
			err:     NotFound("order", "ORD-20240305-001"),
			target:  ErrNotFound,
			message: `order "ORD-20240305-001": not found`,
		},
		{
			name:    "unsupported",
			err:     Unsupported("delete order"),
			target:  ErrUnsupported,
			message: "delete order: unsupported operation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
			assert.EqualError(t, tt.err, tt.message)

			wrapped := errors.Wrap(tt.err, "handler")
			assert.ErrorIs(t, wrapped, tt.target)
		})
	}
}
