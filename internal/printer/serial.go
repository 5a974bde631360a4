package printer

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"go.bug.st/serial"
)

// DefaultBaudRate is the line speed of common ESC/POS printers.
const DefaultBaudRate = 9600

// ErrNoDevice is returned when no serial device is configured or detected.
var ErrNoDevice = errors.New("no serial printer device")

// Port is an open connection to a printer.
type Port interface {
	io.Writer
	io.Closer
}

// PortOpener opens the printer connection.
type PortOpener interface {
	Open(ctx context.Context) (Port, error)
}

// SerialOpener opens a serial port. With an empty Device the first port
// reported by the system is used.
type SerialOpener struct {
	device   string
	baudRate int

	list func() ([]string, error)
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewSerialOpener returns a SerialOpener for device at baud. A non-positive
// baud selects DefaultBaudRate.
func NewSerialOpener(device string, baud int) *SerialOpener {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &SerialOpener{
		device:   device,
		baudRate: baud,
		list:     serial.GetPortsList,
		open:     serial.Open,
	}
}

// Open implements PortOpener.
func (o *SerialOpener) Open(ctx context.Context) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device := o.device
	if device == "" {
		ports, err := o.list()
		if err != nil {
			return nil, errors.Wrap(err, "list serial ports")
		}
		if len(ports) == 0 {
			return nil, ErrNoDevice
		}
		device = ports[0]
	}

	p, err := o.open(device, &serial.Mode{
		BaudRate: o.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", device)
	}
	return p, nil
}

// Unavailable is a PortOpener for installations without a printer.
type Unavailable struct{}

func (Unavailable) Open(context.Context) (Port, error) { return nil, ErrNoDevice }
