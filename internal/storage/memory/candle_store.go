package memory

import (
	"context"
	"sort"
	"sync"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[domain.CandleKey]*domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[domain.CandleKey]*domain.Candle),
	}
}

// InsertBulk writes candles atomically, replacing rows with the same key.
func (s *CandleStore) InsertBulk(_ context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	// First pass: validate the whole batch so a bad row writes nothing
	for _, c := range candles {
		if err := storage.ValidateCandle(c); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range candles {
		candleCopy := *c
		s.data[c.Key()] = &candleCopy
	}

	return nil
}

// GetByTimeRange retrieves candles for a pair and timeframe with utc_begin in [start, end).
func (s *CandleStore) GetByTimeRange(_ context.Context, pair, timeFrame string, start, end int64) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candle
	for _, c := range s.data {
		if c.Pair == pair && c.TimeFrame == timeFrame && c.UTCBegin >= start && c.UTCBegin < end {
			candleCopy := *c
			result = append(result, &candleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UTCBegin < result[j].UTCBegin
	})

	return result, nil
}

// All returns every stored candle ordered by (pair, time_frame, utc_begin).
func (s *CandleStore) All() []*domain.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Candle, 0, len(s.data))
	for _, c := range s.data {
		candleCopy := *c
		result = append(result, &candleCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Pair != b.Pair {
			return a.Pair < b.Pair
		}
		if a.TimeFrame != b.TimeFrame {
			return a.TimeFrame < b.TimeFrame
		}
		return a.UTCBegin < b.UTCBegin
	})

	return result
}

var _ storage.CandleStore = (*CandleStore)(nil)
