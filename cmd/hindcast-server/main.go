package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hindcast/internal/api"
	"hindcast/internal/backtest"
	"hindcast/internal/config"
	"hindcast/internal/feed"
	"hindcast/internal/store"
	"hindcast/internal/strategy/builtins"
	"hindcast/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/hindcast-server-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()

	util.SetDefault(util.NewLogger(io.MultiWriter(os.Stdout, logFile), cfg.Logging.Level, cfg.Logging.Format))

	src, closeSource, err := buildSource(cfg)
	if err != nil {
		log.Fatalf("failed to build data source: %v", err)
	}
	defer closeSource()

	registry := builtins.NewRegistry()
	runner := backtest.New(src, registry)
	srv := api.NewServer(cfg.Server.Host, cfg.Server.Port, runner, registry)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		slog.Info("hindcast-server listening",
			"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			"source", cfg.Backtest.Source,
			"logFile", logFileName)
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down hindcast-server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("HINDCAST_CONFIG"); p != "" {
		return p
	}
	return "config/hindcast.yaml"
}

// buildSource assembles the configured feed. Remote venues are wrapped in
// the bar cache; the synthetic feed runs uncached.
func buildSource(cfg *config.Config) (feed.Source, func(), error) {
	var src feed.Source
	switch cfg.Backtest.Source {
	case "synthetic":
		return feed.NewSyntheticSource(), func() {}, nil

	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return nil, nil, fmt.Errorf("alpaca source requires alpaca.api_key and alpaca.api_secret")
		}
		src = feed.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)

	case "binance":
		src = feed.NewBinanceSource(cfg.Binance.BaseURL, cfg.Binance.RateLimitPerMin)

	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.Backtest.Source)
	}

	var cache store.BarCache
	closeCache := func() {}
	switch cfg.Storage.Backend {
	case "parquet":
		cache = store.NewParquetCache(cfg.Storage.DataDir)

	case "sqlite":
		c, err := store.NewSQLiteCache(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		cache = c
		closeCache = func() { c.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return feed.NewCachedSource(src, cache), closeCache, nil
}
