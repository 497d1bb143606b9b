package builtins

import (
	"fmt"

	"hindcast/internal/domain"
	"hindcast/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACrossParams configures the moving-average crossover strategy.
type SMACrossParams struct {
	ShortPeriod int `yaml:"short_period"`
	LongPeriod  int `yaml:"long_period"`
}

func (p SMACrossParams) withDefaults() SMACrossParams {
	if p.ShortPeriod <= 0 {
		p.ShortPeriod = 10
	}
	if p.LongPeriod <= 0 {
		p.LongPeriod = 30
	}
	return p
}

// SMACross is a simple moving average crossover strategy: buy when the
// short-period SMA crosses above the long-period SMA (golden cross), close
// the position when it crosses back below (death cross).
type SMACross struct {
	params SMACrossParams
}

// NewSMACross creates an SMACross strategy, filling unset params with
// defaults (10/30) and rejecting a short period that is not strictly
// shorter than the long period.
func NewSMACross(p SMACrossParams) (*SMACross, error) {
	p = p.withDefaults()
	if p.ShortPeriod >= p.LongPeriod {
		return nil, fmt.Errorf("sma-cross: short_period %d must be less than long_period %d", p.ShortPeriod, p.LongPeriod)
	}
	return &SMACross{params: p}, nil
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// OnBar implements strategy.Strategy. A cross is detected by comparing the
// SMA relationship on the previous bar with the current one, so the first
// decidable bar is index LongPeriod.
func (s *SMACross) OnBar(i int, bars []domain.Bar, prior []domain.Snapshot) domain.Decision {
	p := s.params
	if i < p.LongPeriod {
		return domain.Hold()
	}

	short := sma(bars, i, p.ShortPeriod)
	long := sma(bars, i, p.LongPeriod)
	prevShort := sma(bars, i-1, p.ShortPeriod)
	prevLong := sma(bars, i-1, p.LongPeriod)

	holding := len(prior) > 0 && prior[len(prior)-1].PositionQty > 0

	goldenCross := prevShort <= prevLong && short > long
	deathCross := prevShort >= prevLong && short < long

	switch {
	case goldenCross && !holding:
		return domain.Buy(0)
	case deathCross && holding:
		return domain.Sell(0)
	}
	return domain.Hold()
}

// sma returns the simple moving average of the closes over the period
// ending at (and including) bar i. Callers guarantee i >= period-1.
func sma(bars []domain.Bar, i, period int) float64 {
	sum := 0.0
	for j := i - period + 1; j <= i; j++ {
		sum += bars[j].Close
	}
	return sum / float64(period)
}
