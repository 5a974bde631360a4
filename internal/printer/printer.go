// Package printer delivers receipt text to a thermal printer, falling back to
// a human-visible print surface when the printer cannot be reached.
package printer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/receipt"
)

// DefaultTimeout bounds a single transmission to the printer.
const DefaultTimeout = 5 * time.Second

// Job is a receipt to print.
type Job struct {
	// Title names the receipt on the fallback surface.
	Title string
	// Text is the formatted receipt including control sequences.
	Text  string
	Width receipt.Width
}

// Result describes how a job was delivered.
type Result struct {
	// Delivered is true when the printer accepted the bytes.
	Delivered bool `json:"delivered"`
	// Fallback is where the receipt was rendered instead, if not delivered.
	Fallback string `json:"fallback,omitempty"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the transmission timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Dispatcher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMeterProvider registers the dispatch counter with mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Dispatcher) { p.meter = mp.Meter("github.com/xenking/qpos/internal/printer") }
}

// Dispatcher sends receipts to the printer. Only the fallback surface failing
// is an error; an unreachable printer is reported through Result.
type Dispatcher struct {
	opener  PortOpener
	surface Surface
	lg      *zap.Logger
	timeout time.Duration
	meter   metric.Meter

	dispatched metric.Int64Counter
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opener PortOpener, surface Surface, lg *zap.Logger, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		opener:  opener,
		surface: surface,
		lg:      lg,
		timeout: DefaultTimeout,
		meter:   noop.NewMeterProvider().Meter(""),
	}
	for _, o := range opts {
		o(d)
	}

	var err error
	if d.dispatched, err = d.meter.Int64Counter("qpos.receipts.dispatched",
		metric.WithDescription("Receipts dispatched, by delivery outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return d, nil
}

// Dispatch transmits job to the printer. On any printer failure the text is
// stripped of control sequences and rendered on the fallback surface.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) (Result, error) {
	err := d.transmit(ctx, []byte(job.Text))
	if err == nil {
		d.record(ctx, true)
		return Result{Delivered: true}, nil
	}
	d.lg.Warn("Printer unavailable, using fallback surface",
		zap.String("title", job.Title),
		zap.Error(err),
	)

	job.Text = receipt.StripControl(job.Text)
	loc, err := d.surface.Render(context.WithoutCancel(ctx), job)
	if err != nil {
		return Result{}, poserr.TransientIO("render fallback for %q: %s", job.Title, err)
	}
	d.record(ctx, false)
	return Result{Delivered: false, Fallback: loc}, nil
}

func (d *Dispatcher) record(ctx context.Context, delivered bool) {
	d.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.Bool("delivered", delivered)))
}

// transmit opens the port and writes data within the timeout. A write that
// does not finish in time is abandoned by closing the port.
func (d *Dispatcher) transmit(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	port, err := d.opener.Open(ctx)
	if err != nil {
		return errors.Wrap(err, "open printer")
	}

	written := make(chan error, 1)
	go func() {
		_, err := port.Write(data)
		written <- err
	}()

	select {
	case <-ctx.Done():
		_ = port.Close()
		return errors.Wrap(ctx.Err(), "write to printer")
	case err := <-written:
		closeErr := port.Close()
		if err != nil {
			return errors.Wrap(err, "write to printer")
		}
		if closeErr != nil {
			return errors.Wrap(closeErr, "close printer")
		}
		return nil
	}
}
