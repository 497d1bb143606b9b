package engine

import (
	"math"

	"hindcast/internal/domain"
)

// Metrics summarizes a completed run. Every field is defined for
// degenerate inputs: zero trades, a flat curve, or a too-short series
// produce zeros, never NaN or Inf.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	Volatility       float64 `json:"volatility"`
	TotalTrades      int     `json:"total_trades"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	AvgWin           float64 `json:"avg_win"`
	AvgLoss          float64 `json:"avg_loss"`
	LargestWin       float64 `json:"largest_win"`
	LargestLoss      float64 `json:"largest_loss"`
}

// analyze computes Metrics from the equity curve and the trade log.
// Per-period returns are taken between consecutive snapshots; periods
// starting from non-positive equity are skipped. The Sharpe ratio uses
// the sample standard deviation and is zero when fewer than two returns
// exist or the returns have no variance.
func analyze(curve []domain.Snapshot, trades []domain.Trade, initialCash, periodsPerYear float64) Metrics {
	var m Metrics

	final := initialCash
	if len(curve) > 0 {
		final = curve[len(curve)-1].Equity
	}
	m.TotalReturn = final/initialCash - 1

	returns := periodReturns(curve)
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	if len(returns) > 0 {
		mean /= float64(len(returns))
	}
	sd := sampleStdDev(returns, mean)
	if len(returns) >= 2 && sd > 0 {
		m.SharpeRatio = mean / sd * math.Sqrt(periodsPerYear)
	}
	m.Volatility = sd * math.Sqrt(periodsPerYear)

	if n := len(curve); n > 0 {
		if growth := 1 + m.TotalReturn; growth > 0 {
			m.AnnualizedReturn = math.Pow(growth, periodsPerYear/float64(n)) - 1
		} else {
			m.AnnualizedReturn = -1
		}
	}

	m.MaxDrawdown = maxDrawdown(curve, initialCash)
	m.tradeStats(trades)
	return m
}

// periodReturns yields equity_i/equity_{i-1} - 1 over the curve.
func periodReturns(curve []domain.Snapshot) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	return returns
}

// maxDrawdown is the largest peak-to-trough equity decline as a positive
// fraction. The peak starts at initial cash, so a first-bar loss counts.
func maxDrawdown(curve []domain.Snapshot, initialCash float64) float64 {
	peak := initialCash
	worst := 0.0
	for _, s := range curve {
		if s.Equity > peak {
			peak = s.Equity
		}
		if peak > 0 {
			if dd := (peak - s.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

func (m *Metrics) tradeStats(trades []domain.Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var wins, losses int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		switch {
		case t.RealizedPnL > 0:
			wins++
			grossProfit += t.RealizedPnL
			if t.RealizedPnL > m.LargestWin {
				m.LargestWin = t.RealizedPnL
			}
		case t.RealizedPnL < 0:
			losses++
			grossLoss += -t.RealizedPnL
			if t.RealizedPnL < m.LargestLoss {
				m.LargestLoss = t.RealizedPnL
			}
		}
	}

	m.WinRate = float64(wins) / float64(len(trades))
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}
	if wins > 0 {
		m.AvgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = -grossLoss / float64(losses)
	}
}

func sampleStdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
