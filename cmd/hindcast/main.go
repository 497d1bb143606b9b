package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"hindcast/internal/backtest"
	"hindcast/internal/config"
	"hindcast/internal/engine"
	"hindcast/internal/feed"
	"hindcast/internal/report"
	"hindcast/internal/store"
	"hindcast/internal/strategy/builtins"
	"hindcast/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hindcast <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run         Run the configured backtest and print a report\n")
		fmt.Fprintf(os.Stderr, "  strategies  List the built-in strategies\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "\nRun 'hindcast run -h' for run options.\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])

	case "strategies":
		for _, name := range builtins.NewRegistry().List() {
			fmt.Println(name)
		}

	case "version":
		fmt.Printf("hindcast %s\n", version)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", defaultConfigPath(), "path to the YAML config")
	symbols := fs.String("symbols", "", "comma-separated symbols (overrides config)")
	strategyName := fs.String("strategy", "", "strategy name (overrides config)")
	start := fs.String("start", "", "start date YYYY-MM-DD (overrides config)")
	end := fs.String("end", "", "end date YYYY-MM-DD (overrides config)")
	source := fs.String("source", "", "data source: synthetic, alpaca, or binance (overrides config)")
	outDir := fs.String("out", "", "directory for per-symbol JSON and Parquet outputs (empty = stdout report only)")
	refresh := fs.Bool("refresh", false, "bypass the bar cache and refetch from the venue")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *symbols != "" {
		cfg.Backtest.Symbols = splitSymbols(*symbols)
	}
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}
	if *start != "" {
		cfg.Backtest.Start = *start
	}
	if *end != "" {
		cfg.Backtest.End = *end
	}
	if *source != "" {
		cfg.Backtest.Source = *source
	}

	// Reports go to stdout, so the logger writes to stderr.
	util.SetDefault(util.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	src, closeSource, err := buildSource(cfg, *refresh)
	if err != nil {
		log.Fatalf("failed to build data source: %v", err)
	}
	defer closeSource()

	interval, err := cfg.Backtest.BarInterval()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	startTime, endTime, err := cfg.Backtest.Range()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	registry := builtins.NewRegistry()
	runner := backtest.New(src, registry)

	req := backtest.Request{
		Symbols:  cfg.Backtest.Symbols,
		Interval: interval,
		Start:    startTime,
		End:      endTime,
		Strategy: cfg.Strategy.Name,
		Params:   cfg.Strategy.Params,
		Engine: engine.Config{
			InitialCash:    cfg.Backtest.InitialCash,
			CommissionRate: cfg.Backtest.CommissionRate,
			SlippageRate:   cfg.Backtest.SlippageRate,
			RefPrice:       engine.RefPricePolicy(cfg.Backtest.ReferencePrice),
			PositionPct:    cfg.Backtest.PositionPct,
			AllowShort:     cfg.Backtest.AllowShort,
			PeriodsPerYear: cfg.Backtest.PeriodsPerYear,
		},
		MaxWorkers: cfg.Backtest.MaxWorkers,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outcomes, err := runner.Run(ctx, req)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	var summaries []engine.Summary
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			slog.Error("symbol failed", "symbol", o.Symbol, "error", o.Err)
			continue
		}
		if err := report.WriteText(os.Stdout, o.Result); err != nil {
			log.Fatalf("writing report: %v", err)
		}
		fmt.Println()
		summaries = append(summaries, o.Result.Summary())
	}

	if *outDir != "" {
		if err := writeOutputs(*outDir, outcomes, summaries); err != nil {
			log.Fatalf("writing outputs: %v", err)
		}
		slog.Info("results written", "dir", *outDir, "symbols", len(summaries))
	}

	if failed == len(outcomes) {
		log.Fatalf("all %d symbols failed", failed)
	}
}

// writeOutputs persists one JSON result and one equity Parquet per symbol,
// plus a flat summary.json across symbols.
func writeOutputs(dir string, outcomes []backtest.Outcome, summaries []engine.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		name := fileSafe(o.Symbol)

		f, err := os.Create(filepath.Join(dir, name+".json"))
		if err != nil {
			return err
		}
		err = report.WriteJSON(f, o.Result)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("result for %s: %w", o.Symbol, err)
		}

		if err := report.WriteEquityParquet(filepath.Join(dir, name+"_equity.parquet"), o.Result); err != nil {
			return fmt.Errorf("equity for %s: %w", o.Symbol, err)
		}
	}

	f, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return err
	}
	err = report.WriteSummariesJSON(f, summaries)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ----------------------------------------------------------------------
// Shared wiring
// ----------------------------------------------------------------------

func defaultConfigPath() string {
	if p := os.Getenv("HINDCAST_CONFIG"); p != "" {
		return p
	}
	return "config/hindcast.yaml"
}

// buildSource assembles the configured feed. Remote venues are wrapped in
// the bar cache; the synthetic feed runs uncached.
func buildSource(cfg *config.Config, refresh bool) (feed.Source, func(), error) {
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

	cache, closeCache, err := openCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	cached := feed.NewCachedSource(src, cache)
	cached.ForceRefresh = refresh
	return cached, closeCache, nil
}

func openCache(cfg *config.Config) (store.BarCache, func(), error) {
	switch cfg.Storage.Backend {
	case "parquet":
		return store.NewParquetCache(cfg.Storage.DataDir), func() {}, nil

	case "sqlite":
		c, err := store.NewSQLiteCache(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
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

// fileSafe makes a symbol usable as a file name.
func fileSafe(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "-")
}
