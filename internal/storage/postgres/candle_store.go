package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage"
)

// CandleStore implements storage.CandleStore using PostgreSQL.
type CandleStore struct {
	pool *Pool
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(pool *Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

const upsertCandleQuery = `
	INSERT INTO candles (
		pair, time_frame, open, high, low, close,
		buy_base, sell_base, buy_quote, sell_quote, utc_begin
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (pair, time_frame, utc_begin) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		buy_base = EXCLUDED.buy_base,
		sell_base = EXCLUDED.sell_base,
		buy_quote = EXCLUDED.buy_quote,
		sell_quote = EXCLUDED.sell_quote
`

// InsertBulk upserts candles in one transaction. Any failure rolls back the batch.
func (s *CandleStore) InsertBulk(ctx context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	for _, c := range candles {
		if err := storage.ValidateCandle(c); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(upsertCandleQuery,
			c.Pair, c.TimeFrame, c.Open, c.High, c.Low, c.Close,
			c.BuyBase, c.SellBase, c.BuyQuote, c.SellQuote, c.UTCBegin,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range candles {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("upsert candle: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves candles with utc_begin in [start, end), ordered by utc_begin ASC.
func (s *CandleStore) GetByTimeRange(ctx context.Context, pair, timeFrame string, start, end int64) ([]*domain.Candle, error) {
	query := `
		SELECT pair, time_frame, open, high, low, close,
			buy_base, sell_base, buy_quote, sell_quote, utc_begin
		FROM candles
		WHERE pair = $1 AND time_frame = $2 AND utc_begin >= $3 AND utc_begin < $4
		ORDER BY utc_begin ASC
	`

	rows, err := s.pool.Query(ctx, query, pair, timeFrame, start, end)
	if err != nil {
		return nil, fmt.Errorf("query candles by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.Candle
	for rows.Next() {
		var c domain.Candle
		err := rows.Scan(
			&c.Pair, &c.TimeFrame, &c.Open, &c.High, &c.Low, &c.Close,
			&c.BuyBase, &c.SellBase, &c.BuyQuote, &c.SellQuote, &c.UTCBegin,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}

	return result, nil
}
