// Package engine implements the event-driven backtest core: one
// deterministic pass over a bar series that turns strategy decisions into
// simulated fills, ledger mutations, and per-bar equity snapshots, then
// computes performance metrics over the completed run.
//
// The engine processes one series sequentially. Concurrency lives above
// it: run several engines over different series in parallel, one
// goroutine each.
package engine

import (
	"fmt"
	"math"

	"hindcast/internal/domain"
	"hindcast/internal/strategy"
)

// Engine runs backtests under a fixed cost model and execution policy.
// It is stateless across runs and safe for concurrent use; all per-run
// state lives in the Result. Construct with New.
type Engine struct {
	cfg Config
}

// New applies defaults to unset config fields, validates the result, and
// returns a ready Engine.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the effective configuration after defaulting.
func (e *Engine) Config() Config { return e.cfg }

// Run replays bars through the strategy in order and returns the
// completed run. Each bar is validated, then any fill staged under the
// next_open policy executes at its open, then the strategy is queried
// with all bars up to and including the current one plus the snapshots of
// prior bars, then the decision executes (same_close) or is staged
// (next_open), and finally the bar's snapshot is appended. The equity
// curve therefore has exactly one entry per input bar.
//
// Run fails only on malformed data (*DataIntegrityError) or a broken
// accounting invariant (*InvariantViolationError). Infeasible decisions
// are recorded as rejections on the Result and do not stop the run.
func (e *Engine) Run(bars []domain.Bar, strat strategy.Strategy) (*Result, error) {
	symbol := ""
	if len(bars) > 0 {
		symbol = bars[0].Symbol
	}
	sim := &simulator{
		cfg:    e.cfg,
		ledger: NewLedger(e.cfg.InitialCash),
		symbol: symbol,
	}
	curve := make([]domain.Snapshot, 0, len(bars))

	var pending *domain.Decision
	for i, bar := range bars {
		if err := validateBar(i, bars); err != nil {
			return nil, err
		}

		if pending != nil {
			if err := sim.execute(i, bar, bar.Open, *pending); err != nil {
				return nil, err
			}
			pending = nil
		}

		d := strat.OnBar(i, bars, curve)
		if d.Action == domain.ActionBuy || d.Action == domain.ActionSell {
			switch e.cfg.RefPrice {
			case RefNextOpen:
				// A decision on the final bar has no next open and
				// expires unfilled.
				if i+1 < len(bars) {
					staged := d
					pending = &staged
				}
			default:
				if err := sim.execute(i, bar, bar.Close, d); err != nil {
					return nil, err
				}
			}
		}

		curve = append(curve, sim.ledger.Snapshot(bar))
	}

	return newResult(e.cfg, symbol, strat.Name(), bars, curve, sim), nil
}

// validateBar checks bars[i] for the integrity violations that abort a
// run: a non-increasing timestamp, prices outside low..high, NaN or Inf
// fields, and negative volume.
func validateBar(i int, bars []domain.Bar) error {
	b := bars[i]
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &DataIntegrityError{Index: i, Reason: "NaN or Inf field"}
		}
	}
	if b.Low > b.High {
		return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("low %v above high %v", b.Low, b.High)}
	}
	if b.Open < b.Low || b.Open > b.High {
		return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("open %v outside low..high", b.Open)}
	}
	if b.Close < b.Low || b.Close > b.High {
		return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("close %v outside low..high", b.Close)}
	}
	if b.Volume < 0 {
		return &DataIntegrityError{Index: i, Reason: fmt.Sprintf("negative volume %v", b.Volume)}
	}
	if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
		return &DataIntegrityError{Index: i, Reason: "timestamp not after previous bar"}
	}
	return nil
}
