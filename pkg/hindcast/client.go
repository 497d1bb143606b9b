// Package hindcast provides a Go client for the hindcast-server API.
package hindcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a hindcast-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ----------------------------------------------------------------------
// API types. These mirror the server's JSON; fields the client does not
// model are ignored on decode.
// ----------------------------------------------------------------------

// RunRequest submits a backtest. Dates are YYYY-MM-DD, end inclusive.
type RunRequest struct {
	Symbols  []string       `json:"symbols"`
	Interval string         `json:"interval,omitempty"`
	Start    string         `json:"start"`
	End      string         `json:"end"`
	Strategy string         `json:"strategy"`
	Params   map[string]any `json:"params,omitempty"`

	InitialCash    float64 `json:"initial_cash,omitempty"`
	CommissionRate float64 `json:"commission_rate,omitempty"`
	SlippageRate   float64 `json:"slippage_rate,omitempty"`
	ReferencePrice string  `json:"reference_price,omitempty"`
	PositionPct    float64 `json:"position_pct,omitempty"`
	AllowShort     bool    `json:"allow_short,omitempty"`
}

// Metrics is the per-run performance digest.
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

// EquityPoint is one step of an equity curve.
type EquityPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Cash        float64   `json:"cash"`
	PositionQty float64   `json:"position_qty"`
	MarketValue float64   `json:"market_value"`
	Equity      float64   `json:"equity"`
}

// Result is one symbol's completed run.
type Result struct {
	Symbol      string        `json:"symbol"`
	Strategy    string        `json:"strategy"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	BarCount    int           `json:"bar_count"`
	StartValue  float64       `json:"start_value"`
	FinalValue  float64       `json:"final_value"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Metrics     Metrics       `json:"metrics"`
}

// Outcome pairs a symbol with its result or error.
type Outcome struct {
	Symbol string  `json:"symbol"`
	Error  string  `json:"error,omitempty"`
	Result *Result `json:"result,omitempty"`
}

// Run is a stored backtest.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Summary is the flat digest used in run listings.
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

// RunListItem is one entry of the run listing.
type RunListItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Strategy  string    `json:"strategy"`
	Symbols   []string  `json:"symbols"`
	Summaries []Summary `json:"summaries"`
	Failed    int       `json:"failed,omitempty"`
}

// SymbolEquity is one symbol's curve from the equity endpoint.
type SymbolEquity struct {
	Symbol string        `json:"symbol"`
	Curve  []EquityPoint `json:"equity_curve"`
}

// ----------------------------------------------------------------------
// Endpoints
// ----------------------------------------------------------------------

// CreateBacktest submits a run and returns the stored outcome.
func (c *Client) CreateBacktest(ctx context.Context, req RunRequest) (*Run, error) {
	var run Run
	if err := c.post(ctx, "/api/v1/backtests", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListBacktests returns stored runs, newest first.
func (c *Client) ListBacktests(ctx context.Context) ([]RunListItem, error) {
	var body struct {
		Runs []RunListItem `json:"runs"`
	}
	if err := c.get(ctx, "/api/v1/backtests", &body); err != nil {
		return nil, err
	}
	return body.Runs, nil
}

// GetBacktest fetches one stored run by id.
func (c *Client) GetBacktest(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.get(ctx, "/api/v1/backtests/"+id, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetEquity fetches just the equity curves of a stored run.
func (c *Client) GetEquity(ctx context.Context, id string) ([]SymbolEquity, error) {
	var body struct {
		Curves []SymbolEquity `json:"curves"`
	}
	if err := c.get(ctx, "/api/v1/backtests/"+id+"/equity", &body); err != nil {
		return nil, err
	}
	return body.Curves, nil
}

// ListStrategies returns the names the server can run.
func (c *Client) ListStrategies(ctx context.Context) ([]string, error) {
	var body struct {
		Strategies []string `json:"strategies"`
	}
	if err := c.get(ctx, "/api/v1/strategies", &body); err != nil {
		return nil, err
	}
	return body.Strategies, nil
}

// Health probes the server.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", &struct{}{})
}

// ----------------------------------------------------------------------
// HTTP plumbing
// ----------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiError extracts the server's error message, falling back to the
// status line.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("api: %s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("api: unexpected status %d", resp.StatusCode)
}
