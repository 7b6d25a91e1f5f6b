package ingestion

import (
	"context"
	"log"

	"candle-collector/internal/domain"
	"candle-collector/internal/normalization"
	"candle-collector/internal/observability"
	"candle-collector/internal/storage"
)

// Stream names used in logs and metric labels.
const (
	StreamCandles = "candles"
	StreamTrades  = "trades"
)

// CandleSink normalizes candle frames and upserts them. Invalid frames are
// counted and dropped; store errors are logged and dropped.
type CandleSink struct {
	store  storage.CandleStore
	logger *log.Logger
}

// NewCandleSink creates a sink writing to store.
func NewCandleSink(store storage.CandleStore, logger *log.Logger) *CandleSink {
	if logger == nil {
		logger = log.Default()
	}
	return &CandleSink{store: store, logger: logger}
}

// HandleFrame implements FrameHandler.
func (s *CandleSink) HandleFrame(ctx context.Context, payload []byte) {
	c, err := normalization.ParseCandle(payload)
	if err != nil {
		observability.RecordDrop(StreamCandles, normalization.Reason(err))
		return
	}

	if err := s.store.InsertBulk(ctx, []*domain.Candle{c}); err != nil {
		observability.RecordStoreError(StreamCandles)
		s.logger.Printf("[%s] Error storing %s %s candle at %d: %v", StreamCandles, c.Pair, c.TimeFrame, c.UTCBegin, err)
		return
	}
	observability.RecordStored(StreamCandles, 1)
}

// TradeSink normalizes trade frames and inserts them. Duplicates are
// absorbed by the store.
type TradeSink struct {
	store  storage.TradeStore
	schema normalization.TradeSchema
	logger *log.Logger
}

// NewTradeSink creates a sink writing to store with the given schema.
func NewTradeSink(store storage.TradeStore, schema normalization.TradeSchema, logger *log.Logger) *TradeSink {
	if logger == nil {
		logger = log.Default()
	}
	return &TradeSink{store: store, schema: schema, logger: logger}
}

// HandleFrame implements FrameHandler.
func (s *TradeSink) HandleFrame(ctx context.Context, payload []byte) {
	t, err := s.schema.Parse(payload)
	if err != nil {
		observability.RecordDrop(StreamTrades, normalization.Reason(err))
		return
	}

	if err := s.store.Insert(ctx, t); err != nil {
		observability.RecordStoreError(StreamTrades)
		s.logger.Printf("[%s] Error storing trade %s/%s: %v", StreamTrades, t.Pair, t.TradeID, err)
		return
	}
	observability.RecordStored(StreamTrades, 1)
}

var (
	_ FrameHandler = (*CandleSink)(nil)
	_ FrameHandler = (*TradeSink)(nil)
)
