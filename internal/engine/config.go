package engine

import "fmt"

// RefPricePolicy selects the bar price a decision executes against. It is
// fixed for the whole run and echoed in the Result.
type RefPricePolicy string

const (
	// RefSameClose fills a decision at the close of the bar it was made
	// on. Decisions may read the very close they fill at, so results are
	// look-ahead-free only for strategies that decide from prior bars.
	RefSameClose RefPricePolicy = "same_close"

	// RefNextOpen fills a decision at the open of the following bar. A
	// decision made on the final bar expires unfilled.
	RefNextOpen RefPricePolicy = "next_open"
)

// Config fixes the cost model and execution policy for one run. It is
// embedded in the Result so a run can be reproduced from its output alone.
type Config struct {
	// InitialCash is the opening cash balance. Must be positive.
	InitialCash float64 `json:"initial_cash"`

	// CommissionRate is charged as a fraction of fill notional on every
	// fill, both sides.
	CommissionRate float64 `json:"commission_rate"`

	// SlippageRate moves each fill price against the trader by this
	// fraction of the reference price.
	SlippageRate float64 `json:"slippage_rate"`

	// RefPrice selects the execution price policy. Defaults to same_close.
	RefPrice RefPricePolicy `json:"reference_price"`

	// PositionPct is the fraction of current equity a default-sized buy
	// targets. Defaults to 0.95.
	PositionPct float64 `json:"position_pct"`

	// AllowShort permits negative position quantities. Off by default:
	// sells while flat are rejected and sells are capped at the held
	// quantity.
	AllowShort bool `json:"allow_short"`

	// PeriodsPerYear annualizes per-period statistics. Defaults to 252
	// (daily equity sessions).
	PeriodsPerYear float64 `json:"periods_per_year"`
}

// withDefaults fills unset fields so a sparse config runs sensibly.
func (c Config) withDefaults() Config {
	if c.RefPrice == "" {
		c.RefPrice = RefSameClose
	}
	if c.PositionPct == 0 {
		c.PositionPct = 0.95
	}
	if c.PeriodsPerYear == 0 {
		c.PeriodsPerYear = 252
	}
	return c
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("initial_cash must be positive, got %v", c.InitialCash)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("commission_rate must be in [0, 1), got %v", c.CommissionRate)
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return fmt.Errorf("slippage_rate must be in [0, 1), got %v", c.SlippageRate)
	}
	if c.RefPrice != RefSameClose && c.RefPrice != RefNextOpen {
		return fmt.Errorf("reference_price must be %q or %q, got %q", RefSameClose, RefNextOpen, c.RefPrice)
	}
	if c.PositionPct <= 0 || c.PositionPct > 1 {
		return fmt.Errorf("position_pct must be in (0, 1], got %v", c.PositionPct)
	}
	if c.PeriodsPerYear <= 0 {
		return fmt.Errorf("periods_per_year must be positive, got %v", c.PeriodsPerYear)
	}
	return nil
}
