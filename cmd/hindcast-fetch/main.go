// Prefetch tool: pulls bars from the configured venue into the local
// cache so later backtests run without touching the network.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hindcast/internal/config"
	"hindcast/internal/feed"
	"hindcast/internal/store"
	"hindcast/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML config")
	symbols := flag.String("symbols", "", "comma-separated symbols (overrides config)")
	source := flag.String("source", "", "data source: alpaca or binance (overrides config)")
	interval := flag.String("interval", "", "bar interval (overrides config)")
	start := flag.String("start", "", "start date YYYY-MM-DD (overrides config)")
	end := flag.String("end", "", "end date YYYY-MM-DD (overrides config)")
	refresh := flag.Bool("refresh", false, "refetch even when bars are already cached")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *symbols != "" {
		cfg.Backtest.Symbols = splitSymbols(*symbols)
	}
	if *source != "" {
		cfg.Backtest.Source = *source
	}
	if *interval != "" {
		cfg.Backtest.Interval = *interval
	}
	if *start != "" {
		cfg.Backtest.Start = *start
	}
	if *end != "" {
		cfg.Backtest.End = *end
	}

	util.SetDefault(util.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format))

	if cfg.Backtest.Source == "synthetic" {
		log.Fatal("the synthetic source is generated locally; nothing to fetch")
	}
	if len(cfg.Backtest.Symbols) == 0 {
		log.Fatal("no symbols configured; set backtest.symbols or pass -symbols")
	}

	src, cache, closeSource, err := buildSource(cfg, *refresh)
	if err != nil {
		log.Fatalf("failed to build data source: %v", err)
	}
	defer closeSource()

	iv, err := cfg.Backtest.BarInterval()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	startTime, endTime, err := cfg.Backtest.Range()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("prefetching bars",
		"source", cfg.Backtest.Source,
		"symbols", len(cfg.Backtest.Symbols),
		"interval", string(iv),
		"start", cfg.Backtest.Start,
		"end", cfg.Backtest.End)

	failed := 0
	for _, symbol := range cfg.Backtest.Symbols {
		if ctx.Err() != nil {
			log.Fatalf("interrupted: %v", ctx.Err())
		}

		t0 := time.Now()
		bars, err := src.Fetch(ctx, symbol, iv, startTime, endTime)
		if err != nil {
			failed++
			slog.Error("fetch failed", "symbol", symbol, "error", err)
			continue
		}
		slog.Info("cached", "symbol", symbol, "bars", len(bars), "elapsed", time.Since(t0).Round(time.Millisecond))
	}

	if failed > 0 {
		log.Fatalf("%d of %d symbols failed", failed, len(cfg.Backtest.Symbols))
	}

	inventory, err := cache.ListSymbols(ctx, src.Name(), iv)
	if err != nil {
		slog.Warn("cache inventory failed", "error", err)
		inventory = nil
	}
	slog.Info("prefetch complete",
		"symbols", len(cfg.Backtest.Symbols),
		"cached_symbols", len(inventory))
}

func defaultConfigPath() string {
	if p := os.Getenv("HINDCAST_CONFIG"); p != "" {
		return p
	}
	return "config/hindcast.yaml"
}

func buildSource(cfg *config.Config, refresh bool) (feed.Source, store.BarCache, func(), error) {
	var src feed.Source
	switch cfg.Backtest.Source {
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return nil, nil, nil, fmt.Errorf("alpaca source requires alpaca.api_key and alpaca.api_secret")
		}
		src = feed.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)

	case "binance":
		src = feed.NewBinanceSource(cfg.Binance.BaseURL, cfg.Binance.RateLimitPerMin)

	default:
		return nil, nil, nil, fmt.Errorf("unknown data source %q", cfg.Backtest.Source)
	}

	var cache store.BarCache
	closeCache := func() {}
	switch cfg.Storage.Backend {
	case "parquet":
		cache = store.NewParquetCache(cfg.Storage.DataDir)

	case "sqlite":
		c, err := store.NewSQLiteCache(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		cache = c
		closeCache = func() { c.Close() }

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	cached := feed.NewCachedSource(src, cache)
	cached.ForceRefresh = refresh
	return cached, cache, closeCache, nil
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
