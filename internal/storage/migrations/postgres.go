package migrations

import (
	"context"
	"fmt"

	"candle-collector/internal/storage/postgres"
)

// RunPostgresMigrations creates the trades and candles tables.
// Every statement uses IF NOT EXISTS so startup can re-run it safely.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := loadMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	// pgx simple protocol accepts multi-statement files
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}

	return nil
}
