package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"candle-collector/internal/domain"
	"candle-collector/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a trade. A row with the same (pair, tid) is left untouched.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if err := storage.ValidateTrade(t); err != nil {
		return err
	}

	query := `
		INSERT INTO trades (tid, pair, price, quantity, amount, side, create_time, time_stamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pair, tid) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.Pair,
		t.Price.String(), t.Quantity.String(), t.Amount.String(),
		string(t.Side), t.CreateTime, t.EventTime,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by pair and exchange id. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, pair, tradeID string) (*domain.Trade, error) {
	query := `
		SELECT tid, pair, price::text, quantity::text, amount::text, side, create_time, time_stamp
		FROM trades
		WHERE pair = $1 AND tid = $2
	`

	row := s.pool.QueryRow(ctx, query, pair, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade: %w", err)
	}
	return t, nil
}

// GetByTimeRange retrieves trades for a pair with time_stamp in [start, end),
// ordered by time_stamp ASC, tid ASC. tid is TEXT, so ties are re-sorted
// with domain.CompareTradeIDs after the scan.
func (s *TradeStore) GetByTimeRange(ctx context.Context, pair string, start, end int64) ([]*domain.Trade, error) {
	query := `
		SELECT tid, pair, price::text, quantity::text, amount::text, side, create_time, time_stamp
		FROM trades
		WHERE pair = $1 AND time_stamp >= $2 AND time_stamp < $3
		ORDER BY time_stamp ASC, tid ASC
	`

	rows, err := s.pool.Query(ctx, query, pair, start, end)
	if err != nil {
		return nil, fmt.Errorf("query trades by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].EventTime != result[j].EventTime {
			return result[i].EventTime < result[j].EventTime
		}
		return domain.CompareTradeIDs(result[i].TradeID, result[j].TradeID) < 0
	})

	return result, nil
}

// scanTrade reads one trades row. NUMERIC columns arrive as text to keep
// full precision.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t                       domain.Trade
		price, quantity, amount string
		side                    string
	)

	err := row.Scan(&t.TradeID, &t.Pair, &price, &quantity, &amount, &side, &t.CreateTime, &t.EventTime)
	if err != nil {
		return nil, err
	}

	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", quantity, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Side = domain.Side(side)

	return &t, nil
}
