package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage/memory"
)

type candleRequest struct {
	symbol, interval string
	start, end       time.Time
	limit            int
}

// fakeCandleSource returns one row per requested candle start, or a scripted error.
type fakeCandleSource struct {
	mu       sync.Mutex
	requests []candleRequest
	failOn   map[string]error // keyed by symbol
}

func (f *fakeCandleSource) GetCandles(_ context.Context, symbol, interval string, start, end time.Time, limit int) ([][]json.RawMessage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, candleRequest{symbol, interval, start, end, limit})
	f.mu.Unlock()

	if err := f.failOn[symbol]; err != nil {
		return nil, err
	}

	tf, err := domain.ParseTimeframe(interval)
	if err != nil {
		return nil, err
	}

	var rows [][]json.RawMessage
	for ts := start.UnixMilli(); ts <= end.UnixMilli(); ts += tf.DurationMs() {
		row := fmt.Sprintf(`["1","2","1.5","1.8","100","60","40","25",7,%d,"1.6","%s",%d,%d]`, ts, interval, ts, ts+tf.DurationMs()-1)
		var decoded []json.RawMessage
		if err := json.Unmarshal([]byte(row), &decoded); err != nil {
			return nil, err
		}
		rows = append(rows, decoded)
	}
	return rows, nil
}

func TestBackfiller_PagesByLimit(t *testing.T) {
	source := &fakeCandleSource{}
	store := memory.NewCandleStore()

	b := NewBackfiller(BackfillOptions{
		Source:     source,
		Store:      store,
		Pairs:      []string{"BTC_USDT"},
		Timeframes: []domain.Timeframe{domain.Minute1},
		PageLimit:  10,
		Logger:     discardLogger(),
	})

	from := time.UnixMilli(0).UTC()
	to := from.Add(25 * time.Minute)

	result, err := b.BackfillRange(context.Background(), from, to)
	require.NoError(t, err)

	require.Len(t, source.requests, 3)
	assert.Equal(t, from, source.requests[0].start)
	assert.Equal(t, from.Add(10*time.Minute-time.Millisecond), source.requests[0].end)
	assert.Equal(t, from.Add(20*time.Minute), source.requests[2].start)
	assert.Equal(t, to, source.requests[2].end)
	assert.Equal(t, 10, source.requests[0].limit)
	assert.Equal(t, "MINUTE_1", source.requests[0].interval)

	// Minutes 0..25 inclusive
	assert.Equal(t, 26, result.CandlesStored)
	assert.Equal(t, 3, result.Pages)
	assert.Zero(t, result.Errors)

	got, err := store.GetByTimeRange(context.Background(), "BTC_USDT", "MINUTE_1", 0, to.UnixMilli()+1)
	require.NoError(t, err)
	require.Len(t, got, 26)
	assert.Equal(t, 25.0, got[0].BuyBase)
	assert.Equal(t, 35.0, got[0].SellBase)
}

func TestBackfiller_FailedPairContinues(t *testing.T) {
	source := &fakeCandleSource{failOn: map[string]error{"TRX_USDT": errors.New("api error 400")}}
	store := memory.NewCandleStore()

	b := NewBackfiller(BackfillOptions{
		Source:     source,
		Store:      store,
		Pairs:      []string{"TRX_USDT", "ETH_USDT"},
		Timeframes: []domain.Timeframe{domain.Hour1},
		Logger:     discardLogger(),
	})

	from := time.UnixMilli(0).UTC()
	result, err := b.BackfillRange(context.Background(), from, from.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 3, result.CandlesStored)

	trx, _ := store.GetByTimeRange(context.Background(), "TRX_USDT", "HOUR_1", 0, 1<<62)
	assert.Empty(t, trx)
}

func TestBackfiller_EmptyRange(t *testing.T) {
	b := NewBackfiller(BackfillOptions{Source: &fakeCandleSource{}, Store: memory.NewCandleStore(), Logger: discardLogger()})

	now := time.Now()
	_, err := b.BackfillRange(context.Background(), now, now)
	assert.Error(t, err)
}

func TestBackfiller_Cancelled(t *testing.T) {
	b := NewBackfiller(BackfillOptions{
		Source: &fakeCandleSource{},
		Store:  memory.NewCandleStore(),
		Pairs:  []string{"BTC_USDT"},
		Logger: discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.BackfillRange(ctx, time.UnixMilli(0), time.UnixMilli(0).Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}
