package hindcast

import (
	"context"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"hindcast/internal/api"
	"hindcast/internal/backtest"
	"hindcast/internal/feed"
	"hindcast/internal/strategy/builtins"
)

// newTestClient points a Client at a real in-process server backed by
// the synthetic feed.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	registry := builtins.NewRegistry()
	runner := backtest.New(feed.NewSyntheticSource(), registry)
	srv := api.NewServer("127.0.0.1", 0, runner, registry)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/")
	if c == nil {
		t.Fatal("NewClient returned nil")
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestClientHealth(t *testing.T) {
	c := newTestClient(t)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestClientListStrategies(t *testing.T) {
	c := newTestClient(t)
	names, err := c.ListStrategies(context.Background())
	if err != nil {
		t.Fatalf("ListStrategies: %v", err)
	}
	for _, want := range []string{"buy-hold", "momentum", "sma-cross"} {
		if !slices.Contains(names, want) {
			t.Errorf("strategies %v missing %q", names, want)
		}
	}
}

func TestClientBacktestLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	run, err := c.CreateBacktest(ctx, RunRequest{
		Symbols:        []string{"AAPL", "MSFT"},
		Interval:       "1d",
		Start:          "2024-01-02",
		End:            "2024-03-29",
		Strategy:       "sma-cross",
		Params:         map[string]any{"short_period": 3, "long_period": 8},
		InitialCash:    50000,
		CommissionRate: 0.001,
	})
	if err != nil {
		t.Fatalf("CreateBacktest: %v", err)
	}
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Fatalf("run identity not set: %+v", run)
	}
	if len(run.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(run.Outcomes))
	}
	for i, want := range []string{"AAPL", "MSFT"} {
		o := run.Outcomes[i]
		if o.Symbol != want || o.Error != "" {
			t.Fatalf("outcome[%d] = %+v, want clean run for %s", i, o, want)
		}
		if o.Result == nil || o.Result.BarCount == 0 || len(o.Result.EquityCurve) != o.Result.BarCount {
			t.Fatalf("outcome[%d] result incomplete: %+v", i, o.Result)
		}
		if o.Result.StartValue != 50000 {
			t.Errorf("outcome[%d] start value = %v, want 50000", i, o.Result.StartValue)
		}
	}

	got, err := c.GetBacktest(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetBacktest: %v", err)
	}
	if got.ID != run.ID || len(got.Outcomes) != 2 {
		t.Errorf("GetBacktest = %+v, want stored run", got)
	}

	listed, err := c.ListBacktests(ctx)
	if err != nil {
		t.Fatalf("ListBacktests: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != run.ID {
		t.Fatalf("ListBacktests = %+v, want the stored run", listed)
	}
	if listed[0].Strategy != "sma-cross" || len(listed[0].Summaries) != 2 {
		t.Errorf("list item = %+v", listed[0])
	}

	curves, err := c.GetEquity(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetEquity: %v", err)
	}
	if len(curves) != 2 || len(curves[0].Curve) == 0 {
		t.Fatalf("equity curves = %+v, want two populated curves", curves)
	}
	if last := curves[0].Curve[len(curves[0].Curve)-1]; last.Equity <= 0 {
		t.Errorf("final equity = %v, want positive", last.Equity)
	}
}

func TestClientCreateBacktestRejected(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateBacktest(context.Background(), RunRequest{
		Symbols: []string{"AAPL"},
		Start:   "2024-01-02",
		End:     "2024-03-29",
		// Strategy missing.
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "api:") {
		t.Errorf("error = %v, want server message surfaced", err)
	}
}

func TestClientGetBacktestNotFound(t *testing.T) {
	c := newTestClient(t)
	_, err := c.GetBacktest(context.Background(), "no-such-run")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if !strings.Contains(err.Error(), "run not found") {
		t.Errorf("error = %v, want run not found", err)
	}
}
