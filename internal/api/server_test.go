package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hindcast/internal/backtest"
	"hindcast/internal/feed"
	"hindcast/internal/strategy/builtins"
)

func newTestServer() *Server {
	runner := backtest.New(feed.NewSyntheticSource(), builtins.NewRegistry())
	return NewServer("127.0.0.1", 0, runner, builtins.NewRegistry())
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func validRunRequest() RunRequest {
	return RunRequest{
		Symbols:     []string{"AAPL", "MSFT"},
		Interval:    "1d",
		Start:       "2024-01-01",
		End:         "2024-02-29",
		Strategy:    "buy-hold",
		InitialCash: 50000,
	}
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListStrategies(t *testing.T) {
	rec := doJSON(t, newTestServer(), http.MethodGet, "/api/v1/strategies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Strategies []string `json:"strategies"`
	}
	decodeBody(t, rec, &body)
	found := false
	for _, name := range body.Strategies {
		if name == "momentum" {
			found = true
		}
	}
	if !found {
		t.Errorf("strategies = %v, want momentum included", body.Strategies)
	}
}

func TestCreateGetAndListBacktest(t *testing.T) {
	srv := newTestServer()

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backtests", validRunRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created Run
	decodeBody(t, rec, &created)
	if created.ID == "" {
		t.Fatal("created run has no id")
	}
	if len(created.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(created.Outcomes))
	}
	for _, o := range created.Outcomes {
		if o.Error != "" || o.Result == nil {
			t.Errorf("outcome %s: error=%q result=%v", o.Symbol, o.Error, o.Result != nil)
		}
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/backtests/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var fetched Run
	decodeBody(t, rec, &fetched)
	if fetched.ID != created.ID || len(fetched.Outcomes) != 2 {
		t.Errorf("fetched = %s with %d outcomes", fetched.ID, len(fetched.Outcomes))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/backtests", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Count int           `json:"count"`
		Runs  []RunListItem `json:"runs"`
	}
	decodeBody(t, rec, &listed)
	if listed.Count != 1 || len(listed.Runs) != 1 {
		t.Fatalf("list = %+v, want one run", listed)
	}
	if got := listed.Runs[0]; got.ID != created.ID || len(got.Summaries) != 2 {
		t.Errorf("list item = %+v", got)
	}
}

func TestGetEquityCurve(t *testing.T) {
	srv := newTestServer()

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/backtests", validRunRequest())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created Run
	decodeBody(t, rec, &created)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/backtests/"+created.ID+"/equity", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("equity status = %d", rec.Code)
	}
	var body struct {
		ID     string `json:"id"`
		Curves []struct {
			Symbol string `json:"symbol"`
			Curve  []struct {
				Equity float64 `json:"equity"`
			} `json:"equity_curve"`
		} `json:"curves"`
	}
	decodeBody(t, rec, &body)
	if body.ID != created.ID || len(body.Curves) != 2 {
		t.Fatalf("equity body = %+v", body)
	}
	if len(body.Curves[0].Curve) == 0 {
		t.Error("empty equity curve")
	}
}

func TestCreateBacktestValidation(t *testing.T) {
	srv := newTestServer()

	cases := []struct {
		name   string
		mutate func(*RunRequest)
	}{
		{"no symbols", func(r *RunRequest) { r.Symbols = nil }},
		{"bad start date", func(r *RunRequest) { r.Start = "01/02/2024" }},
		{"bad interval", func(r *RunRequest) { r.Interval = "2w" }},
		{"unknown strategy", func(r *RunRequest) { r.Strategy = "nope" }},
		{"inverted range", func(r *RunRequest) { r.Start, r.End = r.End, r.Start }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRunRequest()
			tc.mutate(&req)
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/backtests", req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetBacktestNotFound(t *testing.T) {
	rec := doJSON(t, newTestServer(), http.MethodGet, "/api/v1/backtests/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
