// Package poserr defines the error categories shared by all POS domain
// packages. Domain errors wrap one of these sentinels so callers can classify
// failures with errors.Is regardless of which component raised them.
package poserr

import "github.com/go-faster/errors"

var (
	// ErrInvalidInput marks malformed or out-of-range arguments such as a
	// negative price, a negative quantity or an empty order.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a reference to an unknown order, menu item or category.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported marks operations that are declared but not implemented,
	// e.g. order deletion or data import.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrTransientIO marks recoverable printer or persistence I/O failures.
	ErrTransientIO = errors.New("transient i/o failure")
)

// InvalidInput returns an error wrapping ErrInvalidInput with the formatted
// message.
func InvalidInput(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, format, args...)
}

// NotFound returns an error wrapping ErrNotFound for the given kind and id.
func NotFound(kind, id string) error {
	return errors.Wrapf(ErrNotFound, "%s %q", kind, id)
}

// Unsupported returns an error wrapping ErrUnsupported for the named operation.
func Unsupported(op string) error {
	return errors.Wrap(ErrUnsupported, op)
}

// TransientIO returns an error wrapping ErrTransientIO with the formatted
// message.
func TransientIO(format string, args ...any) error {
	return errors.Wrapf(ErrTransientIO, format, args...)
}
