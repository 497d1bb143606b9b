// Package domain defines the market data and accounting types shared across
// the hindcast platform: bars, strategy decisions, fills, positions, ledger
// snapshots, and completed trades.
package domain

import "time"

// ---------------------------------------------------------------------------
// Intervals
// ---------------------------------------------------------------------------

// Interval identifies the aggregation period of a bar series.
type Interval string

// Supported bar intervals.
const (
	Interval1Min  Interval = "1m"
	Interval5Min  Interval = "5m"
	Interval15Min Interval = "15m"
	Interval1Hour Interval = "1h"
	Interval1Day  Interval = "1d"
)

// Valid reports whether the interval is one of the supported values.
func (iv Interval) Valid() bool {
	switch iv {
	case Interval1Min, Interval5Min, Interval15Min, Interval1Hour, Interval1Day:
		return true
	}
	return false
}

// PeriodsPerYear returns how many bars of this interval fit in a trading
// year, used to annualize per-period statistics. Daily bars assume 252
// sessions; intraday intervals assume 6.5-hour sessions.
func (iv Interval) PeriodsPerYear() float64 {
	switch iv {
	case Interval1Min:
		return 252 * 390
	case Interval5Min:
		return 252 * 78
	case Interval15Min:
		return 252 * 26
	case Interval1Hour:
		return 252 * 6.5
	default:
		return 252
	}
}

// Duration returns the nominal wall-clock length of one bar.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1Min:
		return time.Minute
	case Interval5Min:
		return 5 * time.Minute
	case Interval15Min:
		return 15 * time.Minute
	case Interval1Hour:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// ---------------------------------------------------------------------------
// Bars
// ---------------------------------------------------------------------------

// Bar is a single OHLCV record. Bars are value types and are never mutated
// after construction. Volume is a float because crypto venues report
// fractional base-asset volume.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// ---------------------------------------------------------------------------
// Decisions
// ---------------------------------------------------------------------------

// Action is the direction a strategy requests for the current bar.
type Action string

// Decision actions.
const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Decision is a strategy's instruction for a single bar. Size is the
// requested quantity in units of the instrument; zero means "engine
// default": buys are sized from the configured equity fraction and sells
// close the full open position.
type Decision struct {
	Action Action  `json:"action"`
	Size   float64 `json:"size,omitempty"`
}

// Hold returns the no-op decision.
func Hold() Decision { return Decision{Action: ActionHold} }

// Buy returns a buy decision for size units (0 = engine default sizing).
func Buy(size float64) Decision { return Decision{Action: ActionBuy, Size: size} }

// Sell returns a sell decision for size units (0 = close the position).
func Sell(size float64) Decision { return Decision{Action: ActionSell, Size: size} }

// ---------------------------------------------------------------------------
// Fills, positions, snapshots, trades
// ---------------------------------------------------------------------------

// Fill describes one simulated execution. Price includes the slippage
// adjustment; SlippageCost is the absolute cost of that adjustment versus
// the unadjusted reference price.
type Fill struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	Commission   float64   `json:"commission"`
	SlippageCost float64   `json:"slippage_cost"`
}

// Side labels the direction of a position or completed trade.
type Side string

// Position and trade sides.
const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is the single open position owned by the portfolio ledger.
// Quantity is positive for long, negative for short, zero when flat;
// AvgEntryPrice is meaningless while flat. EntryTime and EntryCommission
// carry the bookkeeping needed to assemble a Trade when the position
// closes.
type Position struct {
	Quantity        float64   `json:"quantity"`
	AvgEntryPrice   float64   `json:"avg_entry_price"`
	EntryTime       time.Time `json:"entry_time"`
	EntryCommission float64   `json:"entry_commission"`
}

// Flat reports whether the position is empty.
func (p Position) Flat() bool { return p.Quantity == 0 }

// Side returns the direction of the position. Only meaningful when the
// position is not flat.
func (p Position) Side() Side {
	if p.Quantity < 0 {
		return SideShort
	}
	return SideLong
}

// Snapshot records the ledger state at one bar close. Equity is always
// Cash + PositionQty*close; MarketValue is the position component alone.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Cash        float64   `json:"cash"`
	PositionQty float64   `json:"position_qty"`
	MarketValue float64   `json:"market_value"`
	Equity      float64   `json:"equity"`
}

// Trade is one completed round trip. Quantity is always positive; Side
// carries the direction. RealizedPnL is gross of commissions, which are
// reported separately in CommissionPaid (the exit commission plus the
// pro-rated share of the entry commission for the closed quantity).
type Trade struct {
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	EntryTime      time.Time `json:"entry_time"`
	ExitTime       time.Time `json:"exit_time"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      float64   `json:"exit_price"`
	Quantity       float64   `json:"quantity"`
	RealizedPnL    float64   `json:"realized_pnl"`
	CommissionPaid float64   `json:"commission_paid"`
}
