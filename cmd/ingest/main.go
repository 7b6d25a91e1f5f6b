// Package main runs the candle collector: live trade and candle streams,
// periodic trade-to-candle aggregation and the historical candle backfill.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"candle-collector/internal/aggregation"
	"candle-collector/internal/config"
	"candle-collector/internal/domain"
	"candle-collector/internal/exchange"
	"candle-collector/internal/ingestion"
	"candle-collector/internal/observability"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Printf("Failed to load .env: %v", err)
	}

	configPath := flag.String("config", "", "Path to YAML config file")
	mode := flag.String("mode", "live", "Mode: live or backfill")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the candle mirror (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")
	backfill := flag.Bool("backfill", false, "In live mode, also load historical candles since the configured start")
	fromTime := flag.String("from-time", "", "Start time for backfill mode (RFC3339, default: config backfill.start)")
	toTime := flag.String("to-time", "", "End time for backfill mode (RFC3339, default: now)")
	pairs := flag.String("pairs", "", "Comma-separated pairs (overrides config)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Read(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *pairs != "" {
		cfg.Pairs = config.SplitList(*pairs)
	}
	if *mode != "live" && *mode != "backfill" {
		logger.Fatalf("Unknown mode: %s", *mode)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v (use --use-memory for in-memory storage)", err)
	}
	logger.Printf("Collecting pairs: %v", cfg.Pairs)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}

	switch *mode {
	case "live":
		err = runLive(ctx, logger, cfg, stores, *backfill)
	case "backfill":
		err = runBackfill(ctx, logger, cfg, stores, *fromTime, *toTime)
	}

	done <- err
	cancel()
	stores.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// runLive streams candles and trades and aggregates trades until ctx is cancelled.
func runLive(ctx context.Context, logger *log.Logger, cfg *config.Config, stores *Stores, backfill bool) error {
	timeframes, err := cfg.ParsedTimeframes()
	if err != nil {
		return err
	}

	dialer := exchange.NewWSDialer(cfg.Exchange.WSEndpoint)
	policy := cfg.ReconnectPolicy()

	candleSup, err := ingestion.NewSupervisor(ingestion.SupervisorOptions{
		Name:              ingestion.StreamCandles,
		Dialer:            dialer,
		Subscription:      domain.CandleSubscription(cfg.Pairs, timeframes),
		Handler:           ingestion.NewCandleSink(stores.Candles, logger),
		Policy:            policy,
		HeartbeatInterval: cfg.Exchange.HeartbeatInterval,
		WriteTimeout:      cfg.Exchange.WriteTimeout,
		ReadTimeout:       cfg.Exchange.ReadTimeout,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("create candle supervisor: %w", err)
	}

	tradeSup, err := ingestion.NewSupervisor(ingestion.SupervisorOptions{
		Name:              ingestion.StreamTrades,
		Dialer:            dialer,
		Subscription:      domain.TradeSubscription(cfg.Pairs),
		Handler:           ingestion.NewTradeSink(stores.Trades, cfg.TradeSchema(), logger),
		Policy:            policy,
		HeartbeatInterval: cfg.Exchange.HeartbeatInterval,
		WriteTimeout:      cfg.Exchange.WriteTimeout,
		ReadTimeout:       cfg.Exchange.ReadTimeout,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("create trade supervisor: %w", err)
	}

	supervisors := []*ingestion.Supervisor{candleSup, tradeSup}
	if cfg.Metrics.Addr != "" {
		go startHTTPServer(ctx, logger, cfg.Metrics.Addr, supervisors)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sup := range supervisors {
		sup := sup
		g.Go(func() error {
			return sup.Run(gctx)
		})
	}

	if cfg.Aggregation.Enabled {
		agg, err := aggregation.NewAggregator(aggregation.AggregatorOptions{
			TradeStore:  stores.Trades,
			CandleStore: stores.Candles,
			Pairs:       cfg.Pairs,
			Timeframes:  timeframes,
			Window:      cfg.WindowFunc(),
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("create aggregator: %w", err)
		}
		g.Go(func() error {
			return agg.Run(gctx)
		})
	}

	if backfill {
		backfiller := newBackfiller(logger, cfg, stores, timeframes)
		g.Go(func() error {
			// A failed backfill never stops live ingestion.
			if _, err := backfiller.BackfillSince(gctx, cfg.Backfill.Start); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("Backfill failed: %v", err)
			}
			return nil
		})
	}

	logger.Println("Starting live ingestion...")
	return g.Wait()
}

// runBackfill loads historical candles for [from, to) and exits.
func runBackfill(ctx context.Context, logger *log.Logger, cfg *config.Config, stores *Stores, fromStr, toStr string) error {
	timeframes, err := cfg.ParsedTimeframes()
	if err != nil {
		return err
	}

	from := cfg.Backfill.Start
	if fromStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return fmt.Errorf("parse from-time: %w", err)
		}
	}
	to := time.Now()
	if toStr != "" {
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			return fmt.Errorf("parse to-time: %w", err)
		}
	}

	if cfg.Metrics.Addr != "" {
		go startHTTPServer(ctx, logger, cfg.Metrics.Addr, nil)
	}

	result, err := newBackfiller(logger, cfg, stores, timeframes).BackfillRange(ctx, from, to)
	if err != nil {
		return err
	}
	if result.Errors > 0 {
		return fmt.Errorf("backfill finished with %d failed pages", result.Errors)
	}
	return nil
}

func newBackfiller(logger *log.Logger, cfg *config.Config, stores *Stores, timeframes []domain.Timeframe) *ingestion.Backfiller {
	return ingestion.NewBackfiller(ingestion.BackfillOptions{
		Source:     exchange.NewRESTClient(cfg.Exchange.RESTEndpoint),
		Store:      stores.Candles,
		Pairs:      cfg.Pairs,
		Timeframes: timeframes,
		PageLimit:  cfg.Backfill.PageLimit,
		Logger:     logger,
	})
}

// newHTTPHandler serves health, metrics and stream status.
func newHTTPHandler(supervisors []*ingestion.Supervisor) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		streams := make(map[string]string, len(supervisors))
		for _, sup := range supervisors {
			streams[sup.Name()] = sup.State().String()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"streams": streams})
	})

	return mux
}

func startHTTPServer(ctx context.Context, logger *log.Logger, addr string, supervisors []*ingestion.Supervisor) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHTTPHandler(supervisors),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("Starting metrics server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}
