// Package config loads the hindcast YAML configuration, expanding ${VAR}
// environment references and applying well-known env overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"hindcast/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the hindcast platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Binance  Binance        `yaml:"binance"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	Strategy StrategyConfig `yaml:"strategy"`
}

// Storage selects and locates the bar cache backend.
type Storage struct {
	Backend    string `yaml:"backend"` // "parquet" or "sqlite"
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and the data endpoint for the Alpaca market data
// API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Binance holds the Binance REST endpoint and its request rate cap.
type Binance struct {
	BaseURL         string `yaml:"base_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig defines the default run: instruments, date range, data
// source, and the cost model handed to the engine.
type BacktestConfig struct {
	Symbols        []string `yaml:"symbols"`
	Source         string   `yaml:"source"`   // "alpaca", "binance", "synthetic"
	Interval       string   `yaml:"interval"` // "1m".."1d"
	Start          string   `yaml:"start"`    // YYYY-MM-DD
	End            string   `yaml:"end"`      // YYYY-MM-DD
	InitialCash    float64  `yaml:"initial_cash"`
	CommissionRate float64  `yaml:"commission_rate"`
	SlippageRate   float64  `yaml:"slippage_rate"`
	ReferencePrice string   `yaml:"reference_price"` // "same_close" or "next_open"
	PositionPct    float64  `yaml:"position_pct"`
	AllowShort     bool     `yaml:"allow_short"`
	PeriodsPerYear float64  `yaml:"periods_per_year"` // 0 = derive from interval
	MaxWorkers     int      `yaml:"max_workers"`
}

// StrategyConfig names the strategy to run and its parameters.
type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// Range parses the configured start and end dates. The end date is
// inclusive: it is extended to the last instant of that day.
func (b BacktestConfig) Range() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", b.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing backtest.start: %w", err)
	}
	end, err = time.Parse("2006-01-02", b.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing backtest.end: %w", err)
	}
	end = end.Add(24*time.Hour - time.Nanosecond)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end %s precedes backtest.start %s", b.End, b.Start)
	}
	return start, end, nil
}

// BarInterval returns the configured interval as a domain type.
func (b BacktestConfig) BarInterval() (domain.Interval, error) {
	iv := domain.Interval(b.Interval)
	if !iv.Valid() {
		return "", fmt.Errorf("unsupported backtest.interval %q", b.Interval)
	}
	return iv, nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// envRefPattern matches ${VAR} references in the raw config text.
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the YAML configuration file at the given path, substitutes
// ${VAR} environment references, parses it, applies environment variable
// overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := expandEnvRefs(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// expandEnvRefs replaces ${VAR} with the value of VAR. References to unset
// variables are left in place so the failure is visible downstream instead
// of silently becoming an empty string.
func expandEnvRefs(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[2 : len(ref)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ref
	})
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Binance.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by
	// the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills unset fields with working defaults so a minimal
// config file still produces a runnable setup.
func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "parquet"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/hindcast.db"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://api.binance.com"
	}
	if cfg.Binance.RateLimitPerMin == 0 {
		cfg.Binance.RateLimitPerMin = 600
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	bt := &cfg.Backtest
	if bt.Source == "" {
		bt.Source = "synthetic"
	}
	if bt.Interval == "" {
		bt.Interval = string(domain.Interval1Day)
	}
	if bt.InitialCash == 0 {
		bt.InitialCash = 100000
	}
	if bt.ReferencePrice == "" {
		bt.ReferencePrice = "same_close"
	}
	if bt.PositionPct == 0 {
		bt.PositionPct = 0.95
	}
	if bt.MaxWorkers == 0 {
		bt.MaxWorkers = 4
	}

	if cfg.Strategy.Name == "" {
		cfg.Strategy.Name = "momentum"
	}
}
