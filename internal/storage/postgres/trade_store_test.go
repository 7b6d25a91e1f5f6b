package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage"
)

func createTestTrade(pair, tradeID string, ts int64, price, qty string, side domain.Side) *domain.Trade {
	p := decimal.RequireFromString(price)
	q := decimal.RequireFromString(qty)
	return &domain.Trade{
		TradeID:    tradeID,
		Pair:       pair,
		Price:      p,
		Quantity:   q,
		Amount:     p.Mul(q),
		Side:       side,
		EventTime:  ts,
		CreateTime: ts - 5,
	}
}

func TestTradeStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trade := createTestTrade("BTC_USDT", "194350542", 1700000000123, "37123.456789012345", "0.00012", domain.SideBuy)

	err := store.Insert(ctx, trade)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "BTC_USDT", "194350542")
	require.NoError(t, err)

	assert.Equal(t, trade.TradeID, retrieved.TradeID)
	assert.Equal(t, trade.Pair, retrieved.Pair)
	assert.True(t, trade.Price.Equal(retrieved.Price), "price lost precision: %s", retrieved.Price)
	assert.True(t, trade.Quantity.Equal(retrieved.Quantity))
	assert.True(t, trade.Amount.Equal(retrieved.Amount))
	assert.Equal(t, domain.SideBuy, retrieved.Side)
	assert.Equal(t, trade.EventTime, retrieved.EventTime)
	assert.Equal(t, trade.CreateTime, retrieved.CreateTime)
}

func TestTradeStore_DuplicateInsertIsNoOp(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	first := createTestTrade("BTC_USDT", "t-1", 1000, "10", "1", domain.SideBuy)
	require.NoError(t, store.Insert(ctx, first))

	replay := createTestTrade("BTC_USDT", "t-1", 2000, "99", "5", domain.SideSell)
	require.NoError(t, store.Insert(ctx, replay))

	trades, err := store.GetByTimeRange(ctx, "BTC_USDT", 0, 10000)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(1000), trades[0].EventTime)
}

func TestTradeStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)

	_, err := store.GetByID(context.Background(), "BTC_USDT", "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestTradeStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	trades := []*domain.Trade{
		createTestTrade("BTC_USDT", "b", 60000, "10", "1", domain.SideBuy),
		createTestTrade("BTC_USDT", "a", 60000, "11", "1", domain.SideSell),
		createTestTrade("BTC_USDT", "c", 119999, "12", "1", domain.SideBuy),
		createTestTrade("BTC_USDT", "d", 120000, "13", "1", domain.SideBuy),
		createTestTrade("ETH_USDT", "e", 60000, "14", "1", domain.SideBuy),
	}
	for _, tr := range trades {
		require.NoError(t, store.Insert(ctx, tr))
	}

	got, err := store.GetByTimeRange(ctx, "BTC_USDT", 60000, 120000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].TradeID)
	assert.Equal(t, "b", got[1].TradeID)
	assert.Equal(t, "c", got[2].TradeID)

	empty, err := store.GetByTimeRange(ctx, "BTC_USDT", 200000, 300000)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTradeStore_GetByTimeRangeNumericIDs(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)

	for _, id := range []string{"10", "9", "100"} {
		require.NoError(t, store.Insert(ctx, createTestTrade("BTC_USDT", id, 60000, "10", "1", domain.SideBuy)))
	}
	require.NoError(t, store.Insert(ctx, createTestTrade("BTC_USDT", "2", 60001, "10", "1", domain.SideBuy)))

	got, err := store.GetByTimeRange(ctx, "BTC_USDT", 60000, 120000)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, tr := range got {
		ids = append(ids, tr.TradeID)
	}
	assert.Equal(t, []string{"9", "10", "100", "2"}, ids)
}

func TestTradeStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)

	bad := createTestTrade("BTC_USDT", "x", 1000, "1", "1", domain.Side("hold"))
	err := store.Insert(context.Background(), bad)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
