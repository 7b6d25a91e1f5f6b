// Package config loads the collector configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"candle-collector/internal/aggregation"
	"candle-collector/internal/domain"
	"candle-collector/internal/exchange"
	"candle-collector/internal/ingestion"
	"candle-collector/internal/normalization"
)

// DefaultPairs are the markets collected when none are configured.
var DefaultPairs = []string{"BTC_USDT", "TRX_USDT", "ETH_USDT", "DOGE_USDT", "BCH_USDT"}

// Reconnect policy names.
const (
	PolicyFixed       = "fixed"
	PolicyExponential = "exponential"
)

// Config is the full collector configuration.
type Config struct {
	Pairs      []string `yaml:"pairs"`
	Timeframes []string `yaml:"timeframes"`

	Exchange    ExchangeConfig    `yaml:"exchange"`
	Reconnect   ReconnectConfig   `yaml:"reconnect"`
	Storage     StorageConfig     `yaml:"storage"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Backfill    BackfillConfig    `yaml:"backfill"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ExchangeConfig describes the exchange endpoints and connection timings.
type ExchangeConfig struct {
	WSEndpoint        string        `yaml:"ws_endpoint"`
	RESTEndpoint      string        `yaml:"rest_endpoint"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	// RequireTradeQuantity rejects trade frames without "quantity". It is on
	// by default; turning it off derives quantity from amount / price.
	RequireTradeQuantity bool `yaml:"require_trade_quantity"`
}

// ReconnectConfig selects the reconnect policy of the stream supervisors.
type ReconnectConfig struct {
	Policy      string        `yaml:"policy"` // fixed | exponential
	Delay       time.Duration `yaml:"delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      float64       `yaml:"jitter"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// StorageConfig selects and configures the stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	UseMemory     bool   `yaml:"use_memory"`
	MaxConns      int32  `yaml:"max_conns"`
}

// AggregationConfig configures the trade-to-candle aggregator.
type AggregationConfig struct {
	Enabled bool `yaml:"enabled"`
	// Window defaults to aligned, which closes the most recent complete
	// window. minute_anchored reproduces the legacy series that started at
	// the current minute and reached into the future.
	Window string `yaml:"window"` // aligned | minute_anchored
}

// BackfillConfig configures the historical candle load.
type BackfillConfig struct {
	Start     time.Time `yaml:"start"`
	PageLimit int       `yaml:"page_limit"`
}

// MetricsConfig configures the metrics HTTP server.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Pairs:      append([]string(nil), DefaultPairs...),
		Timeframes: timeframeLabels(domain.DefaultTimeframes()),
		Exchange: ExchangeConfig{
			WSEndpoint:           exchange.DefaultWSEndpoint,
			RESTEndpoint:         exchange.DefaultRESTEndpoint,
			HeartbeatInterval:    ingestion.DefaultHeartbeatInterval,
			WriteTimeout:         10 * time.Second,
			RequireTradeQuantity: true,
		},
		Reconnect: ReconnectConfig{
			Policy: PolicyFixed,
			Delay:  ingestion.DefaultReconnectDelay,
		},
		Aggregation: AggregationConfig{
			Enabled: true,
			Window:  aggregation.WindowPolicyAligned,
		},
		Backfill: BackfillConfig{
			Start:     ingestion.DefaultBackfillStart,
			PageLimit: exchange.DefaultCandleLimit,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Load reads the configuration like Read and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Read decodes the YAML file at path on top of the defaults and applies
// environment overrides without validating, so callers can layer flags on
// top first. An empty path skips the file.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides endpoints and DSNs from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("DATABASE_URL", &c.Storage.PostgresDSN)
	set("CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)
	set("WS_ENDPOINT", &c.Exchange.WSEndpoint)
	set("REST_ENDPOINT", &c.Exchange.RESTEndpoint)

	if v, ok := lookup("PAIRS"); ok && strings.TrimSpace(v) != "" {
		c.Pairs = SplitList(v)
	}
}

// Validate checks the configuration for values the collector cannot run with.
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return errors.New("at least one pair is required")
	}
	seen := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if p == "" {
			return errors.New("pair cannot be empty")
		}
		if seen[p] {
			return fmt.Errorf("duplicate pair %q", p)
		}
		seen[p] = true
	}

	if _, err := c.ParsedTimeframes(); err != nil {
		return err
	}

	if c.Exchange.WSEndpoint == "" {
		return errors.New("exchange ws_endpoint cannot be empty")
	}
	if c.Exchange.HeartbeatInterval < 0 || c.Exchange.WriteTimeout < 0 || c.Exchange.ReadTimeout < 0 {
		return errors.New("exchange timings cannot be negative")
	}

	switch c.Reconnect.Policy {
	case "", PolicyFixed, PolicyExponential:
	default:
		return fmt.Errorf("unknown reconnect policy %q", c.Reconnect.Policy)
	}
	if c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect max_attempts cannot be negative")
	}
	if c.Reconnect.Jitter < 0 || c.Reconnect.Jitter > 1 {
		return fmt.Errorf("reconnect jitter must be within [0, 1], got %v", c.Reconnect.Jitter)
	}

	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return errors.New("storage postgres_dsn is required unless use_memory is set")
	}

	if _, err := aggregation.ParseWindowPolicy(c.Aggregation.Window); err != nil {
		return err
	}

	if c.Backfill.PageLimit < 0 {
		return errors.New("backfill page_limit cannot be negative")
	}

	return nil
}

// ParsedTimeframes resolves the configured timeframe labels.
// An empty list yields the default timeframes.
func (c *Config) ParsedTimeframes() ([]domain.Timeframe, error) {
	if len(c.Timeframes) == 0 {
		return domain.DefaultTimeframes(), nil
	}
	out := make([]domain.Timeframe, 0, len(c.Timeframes))
	seen := make(map[string]bool, len(c.Timeframes))
	for _, s := range c.Timeframes {
		tf, err := domain.ParseTimeframe(s)
		if err != nil {
			return nil, err
		}
		if seen[tf.Label] {
			continue
		}
		seen[tf.Label] = true
		out = append(out, tf)
	}
	return out, nil
}

// ReconnectPolicy builds the configured reconnect policy.
func (c *Config) ReconnectPolicy() ingestion.ReconnectPolicy {
	r := c.Reconnect
	if r.Policy == PolicyExponential {
		return ingestion.ExponentialBackoff{
			Min:         r.Delay,
			Max:         r.MaxDelay,
			Jitter:      r.Jitter,
			MaxAttempts: r.MaxAttempts,
		}
	}
	return ingestion.FixedDelay{Delay: r.Delay, MaxAttempts: r.MaxAttempts}
}

// TradeSchema returns the trade frame schema selected by the exchange settings.
func (c *Config) TradeSchema() normalization.TradeSchema {
	schema := normalization.DefaultTradeSchema
	schema.RequireQuantity = c.Exchange.RequireTradeQuantity
	return schema
}

// WindowFunc returns the configured aggregation window policy.
func (c *Config) WindowFunc() aggregation.WindowFunc {
	fn, err := aggregation.ParseWindowPolicy(c.Aggregation.Window)
	if err != nil {
		return aggregation.AlignedWindow
	}
	return fn
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func timeframeLabels(tfs []domain.Timeframe) []string {
	out := make([]string, len(tfs))
	for i, tf := range tfs {
		out[i] = tf.Label
	}
	return out
}
