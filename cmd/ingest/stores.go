package main

import (
	"context"
	"fmt"
	"log"

	"candle-collector/internal/config"
	"candle-collector/internal/storage"
	chstore "candle-collector/internal/storage/clickhouse"
	"candle-collector/internal/storage/memory"
	"candle-collector/internal/storage/migrations"
	pgstore "candle-collector/internal/storage/postgres"
)

// Stores holds the stores shared by ingestion, aggregation and backfill.
type Stores struct {
	Trades  storage.TradeStore
	Candles storage.CandleStore

	closers []func()
}

// Close releases store connections in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// openStores connects to PostgreSQL (and ClickHouse when configured), applies
// migrations, and returns the stores. UseMemory selects in-memory stores.
func openStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Stores, error) {
	if cfg.Storage.UseMemory {
		logger.Println("Using in-memory storage")
		return &Stores{
			Trades:  memory.NewTradeStore(),
			Candles: memory.NewCandleStore(),
		}, nil
	}

	stores := &Stores{}

	pool, err := pgstore.NewPoolWithOptions(ctx, cfg.Storage.PostgresDSN, pgstore.PoolOptions{
		MaxConns: cfg.Storage.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	stores.closers = append(stores.closers, pool.Close)

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		stores.Close()
		return nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores.Trades = pgstore.NewTradeStore(pool)
	var candles storage.CandleStore = pgstore.NewCandleStore(pool)

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.closers = append(stores.closers, func() {
			if err := conn.Close(); err != nil {
				logger.Printf("Failed to close clickhouse connection: %v", err)
			}
		})
		candles = storage.NewMirroredCandleStore(candles, chstore.NewCandleStore(conn), logger)
		logger.Println("Mirroring candles to ClickHouse")
	}

	stores.Candles = candles
	return stores, nil
}
