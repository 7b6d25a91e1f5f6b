package memory

import (
	"context"
	"sort"
	"sync"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage"
)

type tradeKey struct {
	pair    string
	tradeID string
}

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[tradeKey]*domain.Trade // keyed by (pair, trade_id)
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[tradeKey]*domain.Trade),
	}
}

// Insert adds a trade. Duplicates of (pair, trade_id) are ignored.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if err := storage.ValidateTrade(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tradeKey{pair: t.Pair, tradeID: t.TradeID}
	if _, exists := s.data[key]; exists {
		return nil
	}

	tradeCopy := *t
	s.data[key] = &tradeCopy
	return nil
}

// GetByID retrieves a trade by pair and exchange id. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, pair, tradeID string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeKey{pair: pair, tradeID: tradeID}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tradeCopy := *t
	return &tradeCopy, nil
}

// GetByTimeRange retrieves trades for a pair with event time in [start, end).
func (s *TradeStore) GetByTimeRange(_ context.Context, pair string, start, end int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Pair == pair && t.EventTime >= start && t.EventTime < end {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EventTime != result[j].EventTime {
			return result[i].EventTime < result[j].EventTime
		}
		return domain.CompareTradeIDs(result[i].TradeID, result[j].TradeID) < 0
	})

	return result, nil
}

// Count returns the number of stored trades.
func (s *TradeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ storage.TradeStore = (*TradeStore)(nil)
