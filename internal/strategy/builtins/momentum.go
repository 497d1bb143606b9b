package builtins

import (
	"hindcast/internal/domain"
	"hindcast/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Momentum)(nil)

// takeProfitMult scales the entry threshold into the exit threshold for an
// overextended move.
const takeProfitMult = 3.0

// MomentumParams configures the momentum strategy.
type MomentumParams struct {
	// Period is the lookback for the rate-of-change calculation.
	Period int `yaml:"period"`
	// Threshold is the rate of change that triggers an entry; the negated
	// value triggers an exit.
	Threshold float64 `yaml:"threshold"`
	// MinHoldBars is the number of bars a position must be held before any
	// momentum-driven exit, damping churn in choppy series.
	MinHoldBars int `yaml:"min_hold_bars"`
}

func (p MomentumParams) withDefaults() MomentumParams {
	if p.Period <= 0 {
		p.Period = 20
	}
	if p.Threshold <= 0 {
		p.Threshold = 0.02
	}
	if p.MinHoldBars <= 0 {
		p.MinHoldBars = 5
	}
	return p
}

// Momentum trades the rate of change of the close over a lookback period.
// It enters long when the rate exceeds the threshold, stops out once the
// rate turns negative after the minimum hold, and takes profit when the
// rate overshoots to three times the threshold.
type Momentum struct {
	params MomentumParams
}

// NewMomentum creates a Momentum strategy, filling unset params with
// defaults (period 20, threshold 0.02, min hold 5).
func NewMomentum(p MomentumParams) *Momentum {
	return &Momentum{params: p.withDefaults()}
}

// Name returns "momentum".
func (m *Momentum) Name() string { return "momentum" }

// OnBar implements strategy.Strategy.
func (m *Momentum) OnBar(i int, bars []domain.Bar, prior []domain.Snapshot) domain.Decision {
	p := m.params
	if i < p.Period {
		return domain.Hold()
	}
	base := bars[i-p.Period].Close
	if base == 0 {
		return domain.Hold()
	}
	roc := (bars[i].Close - base) / base

	holding := len(prior) > 0 && prior[len(prior)-1].PositionQty > 0
	held := holdBars(prior)

	switch {
	case !holding && roc > p.Threshold:
		return domain.Buy(0)
	case holding && roc < 0 && held >= p.MinHoldBars:
		// Stop out once the move has faded.
		return domain.Sell(0)
	case holding && roc > p.Threshold*takeProfitMult:
		// Take profit on an overextended move, regardless of hold time.
		return domain.Sell(0)
	}
	return domain.Hold()
}
