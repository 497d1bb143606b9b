package backtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"hindcast/internal/domain"
	"hindcast/internal/engine"
	"hindcast/internal/feed"
	"hindcast/internal/strategy/builtins"
)

func testRequest(symbols ...string) Request {
	return Request{
		Symbols:  symbols,
		Interval: domain.Interval1Day,
		Start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC),
		Strategy: "buy-hold",
		Engine:   engine.Config{InitialCash: 10000},
	}
}

func TestRunKeepsInputOrder(t *testing.T) {
	b := New(feed.NewSyntheticSource(), builtins.NewRegistry())
	symbols := []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA"}

	req := testRequest(symbols...)
	req.MaxWorkers = 2
	outcomes, err := b.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcomes) != len(symbols) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(symbols))
	}
	for i, o := range outcomes {
		if o.Symbol != symbols[i] {
			t.Errorf("outcome[%d].Symbol = %q, want %q", i, o.Symbol, symbols[i])
		}
		if o.Err != nil {
			t.Errorf("outcome[%d].Err = %v", i, o.Err)
		}
		if o.Result == nil {
			t.Errorf("outcome[%d].Result is nil", i)
		} else if o.Result.Symbol != symbols[i] {
			t.Errorf("outcome[%d].Result.Symbol = %q", i, o.Result.Symbol)
		}
	}
}

// failingSource errors for one designated symbol and delegates the rest.
type failingSource struct {
	inner feed.Source
	bad   string
}

func (f *failingSource) Name() string { return f.inner.Name() }

func (f *failingSource) Fetch(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	if symbol == f.bad {
		return nil, fmt.Errorf("feed unavailable")
	}
	return f.inner.Fetch(ctx, symbol, interval, start, end)
}

func TestRunIsolatesSymbolFailures(t *testing.T) {
	src := &failingSource{inner: feed.NewSyntheticSource(), bad: "MSFT"}
	b := New(src, builtins.NewRegistry())

	outcomes, err := b.Run(context.Background(), testRequest("AAPL", "MSFT", "GOOG"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("healthy symbols failed: %v / %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].Err == nil {
		t.Error("failing symbol reported no error")
	}
	if outcomes[1].Result != nil {
		t.Errorf("failing symbol has result %+v", outcomes[1].Result)
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	b := New(feed.NewSyntheticSource(), builtins.NewRegistry())
	req := testRequest("AAPL")
	req.Strategy = "nope"
	if _, err := b.Run(context.Background(), req); err == nil {
		t.Error("unknown strategy accepted")
	}
}

func TestRunRequestValidation(t *testing.T) {
	b := New(feed.NewSyntheticSource(), builtins.NewRegistry())

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"no symbols", func(r *Request) { r.Symbols = nil }},
		{"bad interval", func(r *Request) { r.Interval = "2w" }},
		{"inverted range", func(r *Request) { r.Start, r.End = r.End, r.Start }},
		{"no strategy", func(r *Request) { r.Strategy = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testRequest("AAPL")
			tc.mutate(&req)
			if _, err := b.Run(context.Background(), req); err == nil {
				t.Error("invalid request accepted")
			}
		})
	}
}

func TestRunDefaultsPeriodsPerYearFromInterval(t *testing.T) {
	b := New(feed.NewSyntheticSource(), builtins.NewRegistry())
	req := testRequest("BTC-USD")
	req.Interval = domain.Interval1Hour
	req.End = req.Start.AddDate(0, 0, 10)

	outcomes, err := b.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := outcomes[0].Result.Config.PeriodsPerYear
	if want := domain.Interval1Hour.PeriodsPerYear(); got != want {
		t.Errorf("PeriodsPerYear = %v, want %v", got, want)
	}
}

func TestRunCancelledContext(t *testing.T) {
	b := New(feed.NewSyntheticSource(), builtins.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Run(ctx, testRequest("AAPL")); err == nil {
		t.Error("cancelled context accepted")
	}
}

func TestRunMomentumEndToEnd(t *testing.T) {
	b := New(feed.NewSyntheticSource(), builtins.NewRegistry())
	req := testRequest("AAPL")
	req.Strategy = "momentum"
	req.Params = map[string]any{"period": 5, "threshold": 0.01, "min_hold_bars": 2}
	req.Engine.CommissionRate = 0.001

	outcomes, err := b.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := outcomes[0].Result
	if res == nil {
		t.Fatalf("no result: %v", outcomes[0].Err)
	}
	if res.BarCount == 0 || len(res.EquityCurve) != res.BarCount {
		t.Errorf("curve length %d vs bar count %d", len(res.EquityCurve), res.BarCount)
	}
	if res.Strategy != "momentum" {
		t.Errorf("Strategy = %q", res.Strategy)
	}
}
