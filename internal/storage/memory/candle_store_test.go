package memory

import (
	"context"
	"errors"
	"testing"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage"
)

func TestCandleStore_InsertBulkAndGet(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	candles := []*domain.Candle{
		{Pair: "BTC_USDT", TimeFrame: "1m", Open: 1, High: 2, Low: 0.5, Close: 1.5, UTCBegin: 60000},
		{Pair: "BTC_USDT", TimeFrame: "1m", Open: 1.5, High: 3, Low: 1, Close: 2, UTCBegin: 0},
		{Pair: "BTC_USDT", TimeFrame: "15m", Open: 1, High: 3, Low: 0.5, Close: 2, UTCBegin: 0},
	}

	if err := store.InsertBulk(ctx, candles); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "BTC_USDT", "1m", 0, 120000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(result))
	}
	if result[0].UTCBegin != 0 || result[1].UTCBegin != 60000 {
		t.Errorf("Expected ascending utc_begin, got %d, %d", result[0].UTCBegin, result[1].UTCBegin)
	}
}

func TestCandleStore_UpsertByKey(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	first := []*domain.Candle{{Pair: "BTC_USDT", TimeFrame: "1m", Close: 1, UTCBegin: 0}}
	second := []*domain.Candle{{Pair: "BTC_USDT", TimeFrame: "1m", Close: 2, UTCBegin: 0}}

	if err := store.InsertBulk(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, second); err != nil {
		t.Fatalf("Second insert failed: %v", err)
	}

	all := store.All()
	if len(all) != 1 {
		t.Fatalf("Expected 1 candle after re-run, got %d", len(all))
	}
	if all[0].Close != 2 {
		t.Errorf("Expected last write to win (close=2), got %v", all[0].Close)
	}
}

func TestCandleStore_InvalidBatchWritesNothing(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	candles := []*domain.Candle{
		{Pair: "BTC_USDT", TimeFrame: "1m", UTCBegin: 0},
		{Pair: "", TimeFrame: "1m", UTCBegin: 60000},
	}

	err := store.InsertBulk(ctx, candles)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}

	if len(store.All()) != 0 {
		t.Errorf("Expected 0 candles (all-or-nothing), got %d", len(store.All()))
	}
}

func TestCandleStore_EmptyBatch(t *testing.T) {
	store := NewCandleStore()

	if err := store.InsertBulk(context.Background(), nil); err != nil {
		t.Errorf("Expected nil error for empty batch, got %v", err)
	}
}
