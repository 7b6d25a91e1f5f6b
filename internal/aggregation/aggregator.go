// Package aggregation turns stored trades into per-timeframe OHLC candles.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"candle-collector/internal/domain"
	"candle-collector/internal/observability"
	"candle-collector/internal/storage"
)

// Aggregation run statuses reported to metrics.
const (
	StatusOK         = "ok"
	StatusEmpty      = "empty"
	StatusStoreError = "store_error"
)

// TickerFunc starts a ticker firing every d and returns its channel and stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func newRealTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Aggregator periodically computes candles from the trade store.
type Aggregator struct {
	trades     storage.TradeStore
	candles    storage.CandleStore
	pairs      []string
	timeframes []domain.Timeframe
	window     WindowFunc
	logger     *log.Logger
	now        func() time.Time
	newTicker  TickerFunc
}

// AggregatorOptions contains configuration for creating an Aggregator.
type AggregatorOptions struct {
	TradeStore  storage.TradeStore
	CandleStore storage.CandleStore
	Pairs       []string
	Timeframes  []domain.Timeframe // Default: domain.DefaultTimeframes()
	Window      WindowFunc         // Default: AlignedWindow
	Logger      *log.Logger
	Now         func() time.Time
	NewTicker   TickerFunc
}

// NewAggregator creates a new candle aggregator.
func NewAggregator(opts AggregatorOptions) (*Aggregator, error) {
	if opts.TradeStore == nil || opts.CandleStore == nil {
		return nil, errors.New("trade store and candle store are required")
	}
	if len(opts.Pairs) == 0 {
		return nil, errors.New("at least one pair is required")
	}

	a := &Aggregator{
		trades:     opts.TradeStore,
		candles:    opts.CandleStore,
		pairs:      opts.Pairs,
		timeframes: opts.Timeframes,
		window:     opts.Window,
		logger:     opts.Logger,
		now:        opts.Now,
		newTicker:  opts.NewTicker,
	}
	if len(a.timeframes) == 0 {
		a.timeframes = domain.DefaultTimeframes()
	}
	if a.window == nil {
		a.window = AlignedWindow
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.newTicker == nil {
		a.newTicker = newRealTicker
	}
	return a, nil
}

// Run starts one periodic task per timeframe and blocks until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, tf := range a.timeframes {
		tf := tf
		g.Go(func() error {
			a.runTimeframe(gctx, tf)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (a *Aggregator) runTimeframe(ctx context.Context, tf domain.Timeframe) {
	ticks, stop := a.newTicker(tf.Duration)
	defer stop()

	a.logger.Printf("[aggregate %s] Started, interval %s", tf.Label, tf.Duration)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			// Errors are logged inside RunOnce; the next tick proceeds regardless.
			_, _ = a.RunOnce(ctx, tf, a.now())
		}
	}
}

// RunOnce aggregates the window selected for now across all pairs and stores
// the resulting candles as one batch. A failed trade query skips that pair.
// Returns the number of candles written.
func (a *Aggregator) RunOnce(ctx context.Context, tf domain.Timeframe, now time.Time) (int, error) {
	started := time.Now()
	w := a.window(now, tf)

	batch := make([]*domain.Candle, 0, len(a.pairs))
	for _, pair := range a.pairs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		trades, err := a.trades.GetByTimeRange(ctx, pair, w.Start, w.End)
		if err != nil {
			a.logger.Printf("[aggregate %s] Error querying trades for %s: %v", tf.Label, pair, err)
			continue
		}

		if c := ComputeCandle(pair, tf, w, trades); c != nil {
			batch = append(batch, c)
		}
	}

	if len(batch) == 0 {
		observability.RecordAggregation(tf.Label, StatusEmpty, 0, time.Since(started).Seconds())
		return 0, nil
	}

	if err := a.candles.InsertBulk(ctx, batch); err != nil {
		observability.RecordAggregation(tf.Label, StatusStoreError, 0, time.Since(started).Seconds())
		a.logger.Printf("[aggregate %s] Error storing %d candles: %v", tf.Label, len(batch), err)
		return 0, fmt.Errorf("store candles: %w", err)
	}

	observability.RecordAggregation(tf.Label, StatusOK, len(batch), time.Since(started).Seconds())
	return len(batch), nil
}
