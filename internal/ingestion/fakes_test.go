package ingestion

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"candle-collector/internal/exchange"
)

var errConnClosed = errors.New("use of closed network connection")

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type fakeFrame struct {
	messageType int
	data        []byte
	err         error
}

// fakeConn is an in-memory exchange.Conn. Inbound frames are pushed through
// frames; outbound frames are captured on writes.
type fakeConn struct {
	frames   chan fakeFrame
	writes   chan []byte
	writeErr error
	// failAfter lets that many writes through before writeErr applies.
	failAfter int

	mu     sync.Mutex
	writeN int

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan fakeFrame, 16),
		writes: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		if f.err != nil {
			return 0, nil, f.err
		}
		return f.messageType, f.data, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	c.writeN++
	n := c.writeN
	c.mu.Unlock()

	if c.writeErr != nil && n > c.failAfter {
		return c.writeErr
	}
	select {
	case c.writes <- append([]byte(nil), data...):
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) pushText(s string) {
	c.frames <- fakeFrame{messageType: exchange.TextMessage, data: []byte(s)}
}

type dialResult struct {
	conn *fakeConn
	err  error
}

// fakeDialer hands out results in order, then blocks until ctx ends.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	calls   int
}

func (d *fakeDialer) Dial(ctx context.Context) (exchange.Conn, error) {
	d.mu.Lock()
	d.calls++
	if len(d.results) == 0 {
		d.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	r := d.results[0]
	d.results = d.results[1:]
	d.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}

func (d *fakeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// recordingSleep captures requested delays and returns immediately.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// manualTicker fires only when the test sends on ch.
type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

// tick blocks until the keepalive loop has taken the tick.
func (t *manualTicker) tick() {
	t.ch <- time.Now()
}

// frameRecorder is a FrameHandler collecting payloads.
type frameRecorder struct {
	frames chan string
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{frames: make(chan string, 16)}
}

func (r *frameRecorder) HandleFrame(_ context.Context, payload []byte) {
	r.frames <- string(payload)
}
