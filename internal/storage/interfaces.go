package storage

import (
	"context"

	"candle-collector/internal/domain"
)

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a trade. A trade whose (pair, trade_id) already exists is
	// silently ignored, so replays and duplicated frames are absorbed.
	Insert(ctx context.Context, t *domain.Trade) error

	// GetByID retrieves a trade by pair and exchange id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, pair, tradeID string) (*domain.Trade, error)

	// GetByTimeRange retrieves trades for a pair with event time in [start, end),
	// ordered by event time ASC, trade_id ASC. Trade ids at the same event time
	// follow domain.CompareTradeIDs, so integer ids compare numerically.
	GetByTimeRange(ctx context.Context, pair string, start, end int64) ([]*domain.Trade, error)
}

// CandleStore provides access to candles storage.
type CandleStore interface {
	// InsertBulk writes candles atomically. An existing (pair, time_frame, utc_begin)
	// row is replaced. Empty input is a no-op.
	InsertBulk(ctx context.Context, candles []*domain.Candle) error

	// GetByTimeRange retrieves candles for a pair and timeframe with utc_begin in [start, end),
	// ordered by utc_begin ASC.
	GetByTimeRange(ctx context.Context, pair, timeFrame string, start, end int64) ([]*domain.Candle, error)
}

// ValidateCandle checks the fields every store requires.
func ValidateCandle(c *domain.Candle) error {
	if c == nil || c.Pair == "" || c.TimeFrame == "" {
		return ErrInvalidInput
	}
	return nil
}

// ValidateTrade checks the fields every store requires.
func ValidateTrade(t *domain.Trade) error {
	if t == nil || t.Pair == "" || t.TradeID == "" || !t.Side.IsValid() {
		return ErrInvalidInput
	}
	return nil
}
