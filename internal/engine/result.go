package engine

import (
	"time"

	"hindcast/internal/domain"
)

// Result is the self-contained outcome of one run. The engine keeps no
// reference to it after Run returns, so callers may mutate it freely.
type Result struct {
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
	Config   Config `json:"config"`

	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	BarCount int       `json:"bar_count"`

	StartValue float64 `json:"start_value"`
	FinalValue float64 `json:"final_value"`

	// EquityCurve holds exactly one snapshot per input bar, taken after
	// that bar's processing completed.
	EquityCurve []domain.Snapshot `json:"equity_curve"`
	Trades      []domain.Trade    `json:"trades"`
	Fills       []domain.Fill     `json:"fills,omitempty"`
	Rejections  []Rejection       `json:"rejections,omitempty"`

	// OpenPosition is the position still held after the last bar, if any.
	// Its unrealized P&L is already reflected in FinalValue.
	OpenPosition *domain.Position `json:"open_position,omitempty"`

	Metrics Metrics `json:"metrics"`
}

// Summary is the flat run digest used by the CLI table, the report
// writers, and the API listing.
type Summary struct {
	Symbol      string  `json:"symbol"`
	Strategy    string  `json:"strategy"`
	StartValue  float64 `json:"start_value"`
	FinalValue  float64 `json:"final_value"`
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	TotalTrades int     `json:"total_trades"`
	WinRate     float64 `json:"win_rate"`
}

func (r *Result) Summary() Summary {
	return Summary{
		Symbol:      r.Symbol,
		Strategy:    r.Strategy,
		StartValue:  r.StartValue,
		FinalValue:  r.FinalValue,
		TotalReturn: r.Metrics.TotalReturn,
		SharpeRatio: r.Metrics.SharpeRatio,
		MaxDrawdown: r.Metrics.MaxDrawdown,
		TotalTrades: r.Metrics.TotalTrades,
		WinRate:     r.Metrics.WinRate,
	}
}

// newResult assembles the Result from the run artifacts.
func newResult(cfg Config, symbol, strategyName string, bars []domain.Bar, curve []domain.Snapshot, sim *simulator) *Result {
	final := cfg.InitialCash
	if len(curve) > 0 {
		final = curve[len(curve)-1].Equity
	}
	var start, end time.Time
	if len(bars) > 0 {
		start = bars[0].Timestamp
		end = bars[len(bars)-1].Timestamp
	}

	res := &Result{
		Symbol:      symbol,
		Strategy:    strategyName,
		Config:      cfg,
		Start:       start,
		End:         end,
		BarCount:    len(bars),
		StartValue:  cfg.InitialCash,
		FinalValue:  final,
		EquityCurve: curve,
		Trades:      sim.trades,
		Fills:       sim.fills,
		Rejections:  sim.rejections,
		Metrics:     analyze(curve, sim.trades, cfg.InitialCash, cfg.PeriodsPerYear),
	}
	if pos := sim.ledger.Position(); !pos.Flat() {
		p := pos
		res.OpenPosition = &p
	}
	return res
}
