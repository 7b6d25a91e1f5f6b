package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"candle-collector/internal/domain"
	"candle-collector/internal/exchange"
	"candle-collector/internal/observability"
)

// errStreamClosed reports that the server closed the connection.
var errStreamClosed = errors.New("stream closed by server")

// FrameHandler consumes inbound text frames. It runs on the read goroutine,
// so a slow handler delays the next read.
type FrameHandler interface {
	HandleFrame(ctx context.Context, payload []byte)
}

// SupervisorOptions contains configuration for creating a Supervisor.
type SupervisorOptions struct {
	// Name labels logs and metrics, e.g. "candles" or "trades".
	Name         string
	Dialer       exchange.Dialer
	Subscription domain.Subscription
	Handler      FrameHandler

	Policy            ReconnectPolicy // Default: FixedDelay{Delay: 5s}
	HeartbeatInterval time.Duration   // Default: 29s
	WriteTimeout      time.Duration   // Default: 10s
	ReadTimeout       time.Duration   // Default: none
	// OnStateChange is called synchronously on every state transition.
	OnStateChange func(domain.ConnectionState)
	Logger        *log.Logger

	// Sleep and NewTicker replace real timers in tests.
	Sleep     func(ctx context.Context, d time.Duration) error
	NewTicker NewTickerFunc
}

// Supervisor keeps one subscription streaming: it dials, subscribes, runs the
// keepalive and read loop, and reconnects according to its policy when any
// of them fails.
type Supervisor struct {
	name              string
	dialer            exchange.Dialer
	subscription      domain.Subscription
	subscribeFrame    []byte
	handler           FrameHandler
	policy            ReconnectPolicy
	heartbeatInterval time.Duration
	writeTimeout      time.Duration
	readTimeout       time.Duration
	onStateChange     func(domain.ConnectionState)
	logger            *log.Logger
	sleep             func(ctx context.Context, d time.Duration) error
	newTicker         NewTickerFunc

	state atomic.Int32
}

// NewSupervisor creates a supervisor. The subscribe frame is rendered once here.
func NewSupervisor(opts SupervisorOptions) (*Supervisor, error) {
	if opts.Dialer == nil {
		return nil, errors.New("supervisor: dialer is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("supervisor: handler is required")
	}

	frame, err := exchange.SubscribeFrame(opts.Subscription)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = "stream"
	}

	policy := opts.Policy
	if policy == nil {
		policy = FixedDelay{Delay: DefaultReconnectDelay}
	}

	heartbeat := opts.HeartbeatInterval
	if heartbeat == 0 {
		heartbeat = DefaultHeartbeatInterval
	}

	writeTimeout := opts.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	newTicker := opts.NewTicker
	if newTicker == nil {
		newTicker = newRealTicker
	}

	return &Supervisor{
		name:              name,
		dialer:            opts.Dialer,
		subscription:      opts.Subscription,
		subscribeFrame:    frame,
		handler:           opts.Handler,
		policy:            policy,
		heartbeatInterval: heartbeat,
		writeTimeout:      writeTimeout,
		readTimeout:       opts.ReadTimeout,
		onStateChange:     opts.OnStateChange,
		logger:            logger,
		sleep:             sleep,
		newTicker:         newTicker,
	}, nil
}

// Name returns the stream name used in logs and metrics.
func (s *Supervisor) Name() string {
	return s.name
}

// State returns the current connection state.
func (s *Supervisor) State() domain.ConnectionState {
	return domain.ConnectionState(s.state.Load())
}

func (s *Supervisor) setState(state domain.ConnectionState) {
	if domain.ConnectionState(s.state.Swap(int32(state))) == state {
		return
	}
	observability.SetConnectionState(s.name, int32(state))
	if s.onStateChange != nil {
		s.onStateChange(state)
	}
}

// Run streams until ctx is cancelled, returning ctx.Err(), or until the
// policy refuses another attempt. The attempt count restarts after every
// session that received at least one frame.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Printf("[%s] Starting supervisor for %v on %v", s.name, s.subscription.Symbols, s.subscription.Channels)

	attempt := 0
	for {
		streamed, err := s.runSession(ctx)
		s.setState(domain.StateDisconnected)

		if ctx.Err() != nil {
			s.logger.Printf("[%s] Supervisor stopping", s.name)
			return ctx.Err()
		}

		if streamed {
			attempt = 0
		}
		attempt++

		delay, ok := s.policy.Next(attempt)
		if !ok {
			return fmt.Errorf("%s: giving up after %d failed attempts: %w", s.name, attempt, err)
		}

		s.logger.Printf("[%s] Connection lost: %v; reconnecting in %v (attempt %d)", s.name, err, delay, attempt)
		observability.RecordReconnect(s.name)

		if err := s.sleep(ctx, delay); err != nil {
			s.logger.Printf("[%s] Supervisor stopping", s.name)
			return err
		}
	}
}

// runSession runs one connection from dial to failure. It reports whether
// the session reached Streaming.
func (s *Supervisor) runSession(ctx context.Context) (bool, error) {
	s.setState(domain.StateConnecting)

	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}

	sess := newSession(conn, s.writeTimeout)
	defer sess.close()

	if err := sess.send(s.subscribeFrame); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	s.setState(domain.StateSubscribed)

	var streamed atomic.Bool
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return keepAlive(gctx, sess, s.newTicker(s.heartbeatInterval), s.name)
	})
	g.Go(func() error {
		return s.readLoop(gctx, sess, &streamed)
	})
	// Closing the connection is the only way to unblock ReadMessage.
	g.Go(func() error {
		<-gctx.Done()
		sess.close()
		return nil
	})

	err = g.Wait()
	return streamed.Load(), err
}

// readLoop dispatches frames until the connection fails or ctx ends.
func (s *Supervisor) readLoop(ctx context.Context, sess *session, streamed *atomic.Bool) error {
	for {
		messageType, data, err := sess.read(s.readTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if exchange.IsCloseError(err) {
				return fmt.Errorf("%w: %v", errStreamClosed, err)
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if !streamed.Swap(true) {
			s.setState(domain.StateStreaming)
			s.logger.Printf("[%s] Streaming", s.name)
		}

		if messageType != exchange.TextMessage {
			s.logger.Printf("[%s] Ignoring non-text frame (type %d, %d bytes)", s.name, messageType, len(data))
			continue
		}

		observability.RecordFrame(s.name, time.Now().Unix())
		s.handler.HandleFrame(ctx, data)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
