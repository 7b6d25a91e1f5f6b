package clickhouse

import (
	"context"
	"fmt"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse. The table is a
// ReplacingMergeTree keyed by (pair, time_frame, utc_begin); reads use FINAL so
// a re-inserted candle replaces the older version.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk sends all candles as one native batch.
func (s *CandleStore) InsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	for _, c := range candles {
		if err := storage.ValidateCandle(c); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			pair, time_frame, open, high, low, close,
			buy_base, sell_base, buy_quote, sell_quote, utc_begin
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			c.Pair, c.TimeFrame, c.Open, c.High, c.Low, c.Close,
			c.BuyBase, c.SellBase, c.BuyQuote, c.SellQuote, c.UTCBegin,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves candles with utc_begin in [start, end), ordered by utc_begin ASC.
func (s *CandleStore) GetByTimeRange(ctx context.Context, pair, timeFrame string, start, end int64) ([]*domain.Candle, error) {
	query := `
		SELECT pair, time_frame, open, high, low, close,
			buy_base, sell_base, buy_quote, sell_quote, utc_begin
		FROM candles FINAL
		WHERE pair = ? AND time_frame = ? AND utc_begin >= ? AND utc_begin < ?
		ORDER BY utc_begin ASC
	`

	rows, err := s.conn.Query(ctx, query, pair, timeFrame, start, end)
	if err != nil {
		return nil, fmt.Errorf("query candles by time range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanCandles(rows chRows) ([]*domain.Candle, error) {
	var candles []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		err := rows.Scan(
			&c.Pair, &c.TimeFrame, &c.Open, &c.High, &c.Low, &c.Close,
			&c.BuyBase, &c.SellBase, &c.BuyQuote, &c.SellQuote, &c.UTCBegin,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
