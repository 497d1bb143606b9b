// Package backtest orchestrates complete runs: it fetches bars from a
// feed, builds the strategy, and drives one engine run per symbol across
// a bounded worker pool.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hindcast/internal/domain"
	"hindcast/internal/engine"
	"hindcast/internal/feed"
	"hindcast/internal/strategy"
)

// defaultMaxWorkers bounds symbol-level parallelism when the request does
// not say otherwise.
const defaultMaxWorkers = 4

// Request describes one backtest over one or more symbols. All symbols
// share the interval, range, strategy, and engine configuration.
type Request struct {
	Symbols  []string
	Interval domain.Interval
	Start    time.Time
	End      time.Time

	Strategy string
	Params   map[string]any

	Engine engine.Config

	// MaxWorkers caps concurrent symbol runs. Zero means the default.
	MaxWorkers int
}

func (r Request) validate() error {
	if len(r.Symbols) == 0 {
		return fmt.Errorf("at least one symbol required")
	}
	if !r.Interval.Valid() {
		return fmt.Errorf("unsupported interval %q", r.Interval)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end %v before start %v", r.End, r.Start)
	}
	if r.Strategy == "" {
		return fmt.Errorf("strategy required")
	}
	return nil
}

// Outcome pairs one symbol with its run result. A failed symbol carries
// its error here and never aborts the others.
type Outcome struct {
	Symbol string
	Result *engine.Result
	Err    error
}

// Backtester runs backtest requests against a feed and a strategy
// registry.
type Backtester struct {
	source   feed.Source
	registry *strategy.Registry
	log      *slog.Logger
}

func New(source feed.Source, registry *strategy.Registry) *Backtester {
	return &Backtester{
		source:   source,
		registry: registry,
		log:      slog.Default().With("component", "backtester"),
	}
}

// Run executes the request and returns one outcome per symbol, in the
// order the symbols were given. It fails up front on an invalid request,
// an unknown strategy, or a bad engine configuration; per-symbol failures
// are reported on their outcomes instead.
func (b *Backtester) Run(ctx context.Context, req Request) ([]Outcome, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := req.Engine
	if cfg.PeriodsPerYear == 0 {
		cfg.PeriodsPerYear = req.Interval.PeriodsPerYear()
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}

	strat, err := b.registry.New(req.Strategy, req.Params)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(req.Symbols))
	jobs := make(chan int, len(req.Symbols))
	for i := range req.Symbols {
		jobs <- i
	}
	close(jobs)

	workers := req.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}
	if workers > len(req.Symbols) {
		workers = len(req.Symbols)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = b.runOne(ctx, req, eng, strat, req.Symbols[idx])
			}
		}()
	}
	wg.Wait()

	return outcomes, nil
}

func (b *Backtester) runOne(ctx context.Context, req Request, eng *engine.Engine, strat strategy.Strategy, symbol string) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Symbol: symbol, Err: err}
	}

	started := time.Now()
	bars, err := b.source.Fetch(ctx, symbol, req.Interval, req.Start, req.End)
	if err != nil {
		return Outcome{Symbol: symbol, Err: fmt.Errorf("fetching bars: %w", err)}
	}
	if len(bars) == 0 {
		return Outcome{Symbol: symbol, Err: fmt.Errorf("no bars for %s in range", symbol)}
	}

	res, err := eng.Run(bars, strat)
	if err != nil {
		return Outcome{Symbol: symbol, Err: err}
	}

	b.log.Info("run complete",
		"symbol", symbol,
		"strategy", strat.Name(),
		"bars", len(bars),
		"trades", res.Metrics.TotalTrades,
		"return", fmt.Sprintf("%.2f%%", res.Metrics.TotalReturn*100),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return Outcome{Symbol: symbol, Result: res}
}
