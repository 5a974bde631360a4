package printer

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/poserr"
	"github.com/xenking/qpos/internal/domain/receipt"
)

// --- Mock implementations ---

type mockPort struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	writeErr error
	block    chan struct{}
	closed   bool
}

func (p *mockPort) Write(b []byte) (int, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.buf.Write(b)
}

func (p *mockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.block != nil {
		select {
		case <-p.block:
		default:
			close(p.block)
		}
	}
	return nil
}

type mockOpener struct {
	port *mockPort
	err  error
}

func (o *mockOpener) Open(context.Context) (Port, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.port, nil
}

type mockSurface struct {
	jobs []Job
	err  error
}

func (s *mockSurface) Render(_ context.Context, job Job) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.jobs = append(s.jobs, job)
	return "surface://receipt", nil
}

// --- Helpers ---

const sampleText = receipt.InitCommand + "\n  DONERG\n" + receipt.CutCommand

func newDispatcher(t *testing.T, opener PortOpener, surface Surface, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(opener, surface, zap.NewNop(), opts...)
	require.NoError(t, err)
	return d
}

// --- Tests ---

func TestDispatch_Delivered(t *testing.T) {
	port := &mockPort{}
	surface := &mockSurface{}
	d := newDispatcher(t, &mockOpener{port: port}, surface)

	res, err := d.Dispatch(context.Background(), Job{Title: "ORD-1", Text: sampleText, Width: receipt.Width80mm})
	require.NoError(t, err)

	assert.True(t, res.Delivered)
	assert.Equal(t, sampleText, port.buf.String())
	assert.True(t, port.closed)
	assert.Empty(t, surface.jobs)
}

func TestDispatch_FallbackOnOpenError(t *testing.T) {
	surface := &mockSurface{}
	d := newDispatcher(t, Unavailable{}, surface)

	res, err := d.Dispatch(context.Background(), Job{Title: "ORD-1", Text: sampleText, Width: receipt.Width58mm})
	require.NoError(t, err)

	assert.False(t, res.Delivered)
	assert.Equal(t, "surface://receipt", res.Fallback)
	require.Len(t, surface.jobs, 1)
	assert.Equal(t, "\n  DONERG\n", surface.jobs[0].Text)
	assert.Equal(t, receipt.Width58mm, surface.jobs[0].Width)
}

func TestDispatch_FallbackOnWriteError(t *testing.T) {
	port := &mockPort{writeErr: errors.New("device disconnected")}
	surface := &mockSurface{}
	d := newDispatcher(t, &mockOpener{port: port}, surface)

	res, err := d.Dispatch(context.Background(), Job{Text: sampleText, Width: receipt.Width80mm})
	require.NoError(t, err)

	assert.False(t, res.Delivered)
	assert.True(t, port.closed)
	require.Len(t, surface.jobs, 1)
	assert.NotContains(t, surface.jobs[0].Text, receipt.CutCommand)
}

func TestDispatch_FallbackOnTimeout(t *testing.T) {
	port := &mockPort{block: make(chan struct{})}
	surface := &mockSurface{}
	d := newDispatcher(t, &mockOpener{port: port}, surface, WithTimeout(20*time.Millisecond))

	start := time.Now()
	res, err := d.Dispatch(context.Background(), Job{Text: sampleText, Width: receipt.Width80mm})
	require.NoError(t, err)

	assert.False(t, res.Delivered)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, surface.jobs, 1)
}

func TestDispatch_SurfaceFailureIsTransient(t *testing.T) {
	d := newDispatcher(t, Unavailable{}, &mockSurface{err: errors.New("disk full")})

	_, err := d.Dispatch(context.Background(), Job{Title: "ORD-20240305-007", Text: sampleText, Width: receipt.Width80mm})
	require.ErrorIs(t, err, poserr.ErrTransientIO)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "ORD-20240305-007")
}

func TestSerialOpener_AutoDetect(t *testing.T) {
	port := &fakeSerialPort{}
	var opened string
	var mode *serial.Mode

	o := NewSerialOpener("", 0)
	o.list = func() ([]string, error) { return []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, nil }
	o.open = func(name string, m *serial.Mode) (serial.Port, error) {
		opened, mode = name, m
		return port, nil
	}

	p, err := o.Open(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, "/dev/ttyUSB0", opened)
	assert.Equal(t, DefaultBaudRate, mode.BaudRate)
}

func TestSerialOpener_NoDevice(t *testing.T) {
	o := NewSerialOpener("", 19200)
	o.list = func() ([]string, error) { return nil, nil }

	_, err := o.Open(context.Background())
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestSerialOpener_ConfiguredDevice(t *testing.T) {
	o := NewSerialOpener("/dev/ttyS3", 19200)
	o.list = func() ([]string, error) {
		t.Error("port list must not be queried")
		return nil, nil
	}
	o.open = func(name string, m *serial.Mode) (serial.Port, error) {
		assert.Equal(t, "/dev/ttyS3", name)
		assert.Equal(t, 19200, m.BaudRate)
		return nil, errors.New("permission denied")
	}

	_, err := o.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyS3")
}

func TestSpoolSurface_Render(t *testing.T) {
	dir := t.TempDir()
	s := NewSpoolSurface(dir)

	path, err := s.Render(context.Background(), Job{
		Title: "ORD-20240305-001",
		Text:  "1x Fish & Chips   <$6.00>",
		Width: receipt.Width58mm,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "Receipt - ORD-20240305-001")
	assert.Contains(t, html, "width: 58mm")
	assert.Contains(t, html, "Fish &amp; Chips   &lt;$6.00&gt;")
	assert.Contains(t, html, "window.print()")
}

// fakeSerialPort satisfies serial.Port for opener tests.
type fakeSerialPort struct {
	serial.Port
}
