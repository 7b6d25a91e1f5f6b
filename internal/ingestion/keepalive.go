package ingestion

import (
	"context"
	"fmt"
	"time"

	"candle-collector/internal/exchange"
	"candle-collector/internal/observability"
)

// DefaultHeartbeatInterval keeps the feed from closing idle connections.
const DefaultHeartbeatInterval = 29 * time.Second

// Ticker abstracts time.Ticker for tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates a Ticker firing every d.
type NewTickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// keepAlive sends a ping frame on every tick until ctx ends or a send fails.
// The first ping goes out one interval after start.
func keepAlive(ctx context.Context, s *session, ticker Ticker, stream string) error {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if err := s.send(exchange.PingFrame); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
			observability.RecordHeartbeat(stream)
		}
	}
}
