package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"candle-collector/internal/domain"
	"candle-collector/internal/exchange"
	"candle-collector/internal/normalization"
	"candle-collector/internal/observability"
	"candle-collector/internal/storage"
)

// DefaultBackfillStart is the earliest candle the historical load requests.
var DefaultBackfillStart = time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)

// CandleSource returns raw candle rows; *exchange.RESTClient implements it.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, interval string, start, end time.Time, limit int) ([][]json.RawMessage, error)
}

// Backfiller loads historical candles from the REST API into the candle store.
type Backfiller struct {
	source     CandleSource
	store      storage.CandleStore
	pairs      []string
	timeframes []domain.Timeframe
	pageLimit  int
	logger     *log.Logger
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Source     CandleSource
	Store      storage.CandleStore
	Pairs      []string
	Timeframes []domain.Timeframe // Default: domain.DefaultTimeframes()
	PageLimit  int                // Default: exchange.DefaultCandleLimit rows per request
	Logger     *log.Logger
}

// NewBackfiller creates a new historical candle backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	timeframes := opts.Timeframes
	if len(timeframes) == 0 {
		timeframes = domain.DefaultTimeframes()
	}

	pageLimit := opts.PageLimit
	if pageLimit <= 0 {
		pageLimit = exchange.DefaultCandleLimit
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Backfiller{
		source:     opts.Source,
		store:      opts.Store,
		pairs:      opts.Pairs,
		timeframes: timeframes,
		pageLimit:  pageLimit,
		logger:     logger,
	}
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	Pages         int
	CandlesStored int
	RowsRejected  int
	Errors        int
	Duration      time.Duration
}

// BackfillSince backfills candles from a given time until now.
func (b *Backfiller) BackfillSince(ctx context.Context, since time.Time) (*BackfillResult, error) {
	return b.BackfillRange(ctx, since, time.Now())
}

// BackfillRange loads every pair and timeframe for [from, to]. A failed page
// is counted and logged and the run moves on; only cancellation aborts it.
func (b *Backfiller) BackfillRange(ctx context.Context, from, to time.Time) (*BackfillResult, error) {
	start := time.Now()
	result := &BackfillResult{}

	if !from.Before(to) {
		return result, fmt.Errorf("backfill: empty range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	b.logger.Printf("Starting backfill from %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))

	for _, pair := range b.pairs {
		for _, tf := range b.timeframes {
			if err := b.backfillSeries(ctx, pair, tf, from, to, result); err != nil {
				result.Duration = time.Since(start)
				return result, err
			}
		}
	}

	result.Duration = time.Since(start)
	b.logger.Printf("Backfill complete: %d candles, %d pages, %d rejected rows, %d errors in %v",
		result.CandlesStored, result.Pages, result.RowsRejected, result.Errors, result.Duration)

	return result, nil
}

// backfillSeries pages one pair/timeframe in windows of pageLimit candles.
func (b *Backfiller) backfillSeries(ctx context.Context, pair string, tf domain.Timeframe, from, to time.Time, result *BackfillResult) error {
	span := time.Duration(b.pageLimit) * tf.Duration

	for pageStart := from; pageStart.Before(to); pageStart = pageStart.Add(span) {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Both bounds are inclusive on the API side
		pageEnd := pageStart.Add(span - time.Millisecond)
		if pageEnd.After(to) {
			pageEnd = to
		}

		n, rejected, err := b.backfillPage(ctx, pair, tf, pageStart, pageEnd)
		result.Pages++
		result.RowsRejected += rejected
		observability.RecordBackfill(tf.Interval, n, err)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Errors++
			b.logger.Printf("Error backfilling %s %s page %s: %v", pair, tf.Interval, pageStart.Format(time.RFC3339), err)
			continue
		}
		result.CandlesStored += n
	}

	return nil
}

func (b *Backfiller) backfillPage(ctx context.Context, pair string, tf domain.Timeframe, start, end time.Time) (stored, rejected int, err error) {
	rows, err := b.source.GetCandles(ctx, pair, tf.Interval, start, end, b.pageLimit)
	if err != nil {
		return 0, 0, err
	}

	candles := make([]*domain.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := normalization.ParseCandleRow(pair, tf.Interval, row)
		if err != nil {
			rejected++
			continue
		}
		candles = append(candles, c)
	}

	if len(candles) == 0 {
		return 0, rejected, nil
	}
	if err := b.store.InsertBulk(ctx, candles); err != nil {
		return 0, rejected, fmt.Errorf("store candles: %w", err)
	}
	return len(candles), rejected, nil
}
