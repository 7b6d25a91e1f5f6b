package storage

import (
	"context"
	"log"

	"candle-collector/internal/domain"
	"candle-collector/internal/observability"
)

// MirroredCandleStore writes candles to a primary store and copies them to a
// secondary store (e.g. ClickHouse for analytics). Reads go to the primary only.
type MirroredCandleStore struct {
	primary CandleStore
	mirror  CandleStore
	logger  *log.Logger
}

// NewMirroredCandleStore creates a CandleStore that mirrors writes.
func NewMirroredCandleStore(primary, mirror CandleStore, logger *log.Logger) *MirroredCandleStore {
	if logger == nil {
		logger = log.Default()
	}
	return &MirroredCandleStore{primary: primary, mirror: mirror, logger: logger}
}

// InsertBulk writes to the primary store. Mirror failures are logged and never
// fail the call.
func (s *MirroredCandleStore) InsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if err := s.primary.InsertBulk(ctx, candles); err != nil {
		return err
	}
	if s.mirror == nil || len(candles) == 0 {
		return nil
	}
	if err := s.mirror.InsertBulk(ctx, candles); err != nil {
		observability.RecordMirrorError()
		s.logger.Printf("[mirror] Error mirroring %d candles: %v", len(candles), err)
	}
	return nil
}

// GetByTimeRange reads from the primary store.
func (s *MirroredCandleStore) GetByTimeRange(ctx context.Context, pair, timeFrame string, start, end int64) ([]*domain.Candle, error) {
	return s.primary.GetByTimeRange(ctx, pair, timeFrame, start, end)
}

var _ CandleStore = (*MirroredCandleStore)(nil)
