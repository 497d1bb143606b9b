package engine

import (
	"math"
	"testing"

	"hindcast/internal/domain"
)

func equityCurve(equities ...float64) []domain.Snapshot {
	curve := make([]domain.Snapshot, len(equities))
	for i, e := range equities {
		curve[i] = domain.Snapshot{Timestamp: day(i), Equity: e}
	}
	return curve
}

func tradeWithPnL(pnl float64) domain.Trade {
	return domain.Trade{Symbol: "TEST", Side: domain.SideLong, Quantity: 1, RealizedPnL: pnl}
}

func TestAnalyzeEmptyRun(t *testing.T) {
	m := analyze(nil, nil, 1000, 252)
	if m.TotalReturn != 0 || m.SharpeRatio != 0 || m.MaxDrawdown != 0 || m.TotalTrades != 0 {
		t.Errorf("empty run metrics = %+v, want zeros", m)
	}
}

func TestAnalyzeFlatCurve(t *testing.T) {
	m := analyze(equityCurve(1000, 1000, 1000, 1000), nil, 1000, 252)
	if m.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", m.TotalReturn)
	}
	if m.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 for zero variance", m.SharpeRatio)
	}
	if m.Volatility != 0 {
		t.Errorf("Volatility = %v, want 0", m.Volatility)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", m.MaxDrawdown)
	}
}

func TestAnalyzeAnnualizedReturn(t *testing.T) {
	// 252 periods at periodsPerYear=252: annualized equals total.
	curve := make([]float64, 252)
	for i := range curve {
		curve[i] = 1000 + float64(i)
	}
	curve[251] = 1100
	m := analyze(equityCurve(curve...), nil, 1000, 252)
	if got, want := m.TotalReturn, 0.1; math.Abs(got-want) > 1e-9 {
		t.Fatalf("TotalReturn = %v, want %v", got, want)
	}
	if got, want := m.AnnualizedReturn, 0.1; math.Abs(got-want) > 1e-9 {
		t.Errorf("AnnualizedReturn = %v, want %v", got, want)
	}
}

func TestAnalyzeSharpeRatio(t *testing.T) {
	// Returns 0.01 and 0.005: mean 0.0075, sample stddev 0.0025*sqrt(2).
	m := analyze(equityCurve(1000, 1010, 1015.05), nil, 1000, 252)
	want := 0.0075 / (0.0025 * math.Sqrt2) * math.Sqrt(252)
	if math.Abs(m.SharpeRatio-want) > 1e-9 {
		t.Errorf("SharpeRatio = %v, want %v", m.SharpeRatio, want)
	}
	wantVol := 0.0025 * math.Sqrt2 * math.Sqrt(252)
	if math.Abs(m.Volatility-wantVol) > 1e-9 {
		t.Errorf("Volatility = %v, want %v", m.Volatility, wantVol)
	}
}

func TestAnalyzeSharpeNeedsTwoReturns(t *testing.T) {
	if m := analyze(equityCurve(1000), nil, 1000, 252); m.SharpeRatio != 0 {
		t.Errorf("one snapshot: SharpeRatio = %v, want 0", m.SharpeRatio)
	}
	if m := analyze(equityCurve(1000, 1010), nil, 1000, 252); m.SharpeRatio != 0 {
		t.Errorf("one return: SharpeRatio = %v, want 0", m.SharpeRatio)
	}
}

func TestAnalyzeMaxDrawdown(t *testing.T) {
	m := analyze(equityCurve(1000, 1200, 900, 1100), nil, 1000, 252)
	if got, want := m.MaxDrawdown, 0.25; math.Abs(got-want) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want %v", got, want)
	}

	rising := analyze(equityCurve(1000, 1050, 1100, 1200), nil, 1000, 252)
	if rising.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v for a non-decreasing curve, want exactly 0", rising.MaxDrawdown)
	}
}

func TestAnalyzeDrawdownCountsFirstBarLoss(t *testing.T) {
	// The running peak starts at initial cash, so a curve that never
	// recovers the starting value is already in drawdown.
	m := analyze(equityCurve(950, 980), nil, 1000, 252)
	if got, want := m.MaxDrawdown, 0.05; math.Abs(got-want) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want %v", got, want)
	}
}

func TestAnalyzeSkipsNonPositiveEquityPeriods(t *testing.T) {
	m := analyze(equityCurve(1000, -100, 0), nil, 1000, 252)
	for name, v := range map[string]float64{
		"SharpeRatio":      m.SharpeRatio,
		"Volatility":       m.Volatility,
		"AnnualizedReturn": m.AnnualizedReturn,
		"TotalReturn":      m.TotalReturn,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v after negative equity, want finite", name, v)
		}
	}
	if m.AnnualizedReturn != -1 {
		t.Errorf("AnnualizedReturn = %v, want -1 for total loss", m.AnnualizedReturn)
	}
}

func TestAnalyzeTradeStats(t *testing.T) {
	trades := []domain.Trade{
		tradeWithPnL(100),
		tradeWithPnL(-50),
		tradeWithPnL(60),
		tradeWithPnL(0),
	}
	m := analyze(equityCurve(1000, 1110), trades, 1000, 252)

	if m.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", m.TotalTrades)
	}
	if got, want := m.WinRate, 0.5; got != want {
		t.Errorf("WinRate = %v, want %v", got, want)
	}
	if got, want := m.ProfitFactor, 160.0/50.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("ProfitFactor = %v, want %v", got, want)
	}
	if got, want := m.AvgWin, 80.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("AvgWin = %v, want %v", got, want)
	}
	if got, want := m.AvgLoss, -50.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("AvgLoss = %v, want %v", got, want)
	}
	if m.LargestWin != 100 || m.LargestLoss != -50 {
		t.Errorf("LargestWin/LargestLoss = %v/%v, want 100/-50", m.LargestWin, m.LargestLoss)
	}
}

func TestAnalyzeNoLosingTrades(t *testing.T) {
	m := analyze(equityCurve(1000, 1010), []domain.Trade{tradeWithPnL(10)}, 1000, 252)
	if m.ProfitFactor != 0 {
		t.Errorf("ProfitFactor = %v, want 0 when no losing trades", m.ProfitFactor)
	}
	if m.WinRate != 1 {
		t.Errorf("WinRate = %v, want 1", m.WinRate)
	}
	if m.AvgLoss != 0 || m.LargestLoss != 0 {
		t.Errorf("loss stats = %v/%v, want zeros", m.AvgLoss, m.LargestLoss)
	}
}
