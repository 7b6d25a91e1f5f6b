package ingestion

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candle-collector/internal/domain"
	"candle-collector/internal/normalization"
	"candle-collector/internal/storage/memory"
)

func TestCandleSink_StoresValidFrame(t *testing.T) {
	store := memory.NewCandleStore()
	sink := NewCandleSink(store, discardLogger())

	sink.HandleFrame(context.Background(), []byte(`{"channel":"candles_minute_15","data":[{"symbol":"BTC_USDT","open":"1","high":"3","low":"0.5","close":"2","quantity":"10","amount":"20","startTime":900000}]}`))

	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "MINUTE_15", all[0].TimeFrame)
	assert.Equal(t, int64(900000), all[0].UTCBegin)
	assert.Equal(t, 10.0, all[0].SellBase)
}

func TestCandleSink_UpdatesInProgressCandle(t *testing.T) {
	store := memory.NewCandleStore()
	sink := NewCandleSink(store, discardLogger())
	ctx := context.Background()

	sink.HandleFrame(ctx, []byte(`{"channel":"candles_minute_1","data":[{"symbol":"BTC_USDT","open":"1","high":"1","low":"1","close":"1","quantity":"1","amount":"1","startTime":60000}]}`))
	sink.HandleFrame(ctx, []byte(`{"channel":"candles_minute_1","data":[{"symbol":"BTC_USDT","open":"1","high":"2","low":"1","close":"2","quantity":"3","amount":"5","startTime":60000}]}`))

	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, 2.0, all[0].Close)
}

func TestCandleSink_MissingCloseNotStored(t *testing.T) {
	store := memory.NewCandleStore()
	sink := NewCandleSink(store, discardLogger())

	sink.HandleFrame(context.Background(), []byte(`{"channel":"candles_minute_1","data":[{"symbol":"BTC_USDT","open":"1","high":"1","low":"1","quantity":"1","amount":"1","startTime":60000}]}`))
	sink.HandleFrame(context.Background(), []byte(`{"event":"subscribe","channel":"candles_minute_1"}`))

	assert.Empty(t, store.All())
}

func TestTradeSink_DuplicateStoredOnce(t *testing.T) {
	store := memory.NewTradeStore()
	sink := NewTradeSink(store, normalization.DefaultTradeSchema, discardLogger())
	ctx := context.Background()

	frame := []byte(`{"channel":"trades","data":[{"symbol":"ETH_USDT","amount":"30","takerSide":"sell","quantity":"0.01","createTime":1000,"price":"3000","id":"77","ts":1002}]}`)
	sink.HandleFrame(ctx, frame)
	sink.HandleFrame(ctx, frame)

	assert.Equal(t, 1, store.Count())

	tr, err := store.GetByID(ctx, "ETH_USDT", "77")
	require.NoError(t, err)
	assert.Equal(t, domain.SideSell, tr.Side)
	assert.Equal(t, int64(1002), tr.EventTime)
}

func TestTradeSink_InvalidFrameDropped(t *testing.T) {
	store := memory.NewTradeStore()
	sink := NewTradeSink(store, normalization.DefaultTradeSchema, discardLogger())

	sink.HandleFrame(context.Background(), []byte(`{"channel":"trades","data":[{"symbol":"ETH_USDT","price":"3000"}]}`))
	sink.HandleFrame(context.Background(), []byte(`garbage`))

	assert.Equal(t, 0, store.Count())
}

type failingTradeStore struct {
	*memory.TradeStore
}

func (failingTradeStore) Insert(context.Context, *domain.Trade) error {
	return errors.New("database is down")
}

func TestTradeSink_StoreErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTradeSink(failingTradeStore{memory.NewTradeStore()}, normalization.DefaultTradeSchema, log.New(&buf, "", 0))

	sink.HandleFrame(context.Background(), []byte(`{"channel":"trades","data":[{"symbol":"ETH_USDT","amount":"30","takerSide":"sell","quantity":"0.01","price":"3000","id":"77","ts":1002}]}`))

	assert.Contains(t, buf.String(), "database is down")
	assert.Contains(t, buf.String(), "ETH_USDT/77")
}
