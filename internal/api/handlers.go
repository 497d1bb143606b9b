package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hindcast/internal/backtest"
	"hindcast/internal/domain"
	"hindcast/internal/engine"
	"hindcast/internal/strategy"
)

// RunRequest is the JSON body accepted by POST /api/v1/backtests. Dates
// are YYYY-MM-DD; the end date is inclusive. Zero-valued cost fields fall
// back to the engine defaults.
type RunRequest struct {
	Symbols  []string       `json:"symbols" binding:"required"`
	Interval string         `json:"interval"`
	Start    string         `json:"start" binding:"required"`
	End      string         `json:"end" binding:"required"`
	Strategy string         `json:"strategy" binding:"required"`
	Params   map[string]any `json:"params"`

	InitialCash    float64 `json:"initial_cash"`
	CommissionRate float64 `json:"commission_rate"`
	SlippageRate   float64 `json:"slippage_rate"`
	ReferencePrice string  `json:"reference_price"`
	PositionPct    float64 `json:"position_pct"`
	AllowShort     bool    `json:"allow_short"`
}

func (r RunRequest) toBacktestRequest() (backtest.Request, error) {
	start, err := time.Parse("2006-01-02", r.Start)
	if err != nil {
		return backtest.Request{}, fmt.Errorf("parsing start %q: %w", r.Start, err)
	}
	end, err := time.Parse("2006-01-02", r.End)
	if err != nil {
		return backtest.Request{}, fmt.Errorf("parsing end %q: %w", r.End, err)
	}

	interval := domain.Interval(r.Interval)
	if r.Interval == "" {
		interval = domain.Interval1Day
	}
	cash := r.InitialCash
	if cash == 0 {
		cash = 100000
	}

	return backtest.Request{
		Symbols:  r.Symbols,
		Interval: interval,
		Start:    start,
		End:      end.Add(24*time.Hour - time.Nanosecond),
		Strategy: r.Strategy,
		Params:   r.Params,
		Engine: engine.Config{
			InitialCash:    cash,
			CommissionRate: r.CommissionRate,
			SlippageRate:   r.SlippageRate,
			RefPrice:       engine.RefPricePolicy(r.ReferencePrice),
			PositionPct:    r.PositionPct,
			AllowShort:     r.AllowShort,
		},
	}, nil
}

// RunOutcome is the per-symbol slice of a stored run.
type RunOutcome struct {
	Symbol string         `json:"symbol"`
	Error  string         `json:"error,omitempty"`
	Result *engine.Result `json:"result,omitempty"`
}

// Run is a completed backtest held by the server.
type Run struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Request   RunRequest   `json:"request"`
	Outcomes  []RunOutcome `json:"outcomes"`
}

// RunListItem is the digest returned by the listing endpoint.
type RunListItem struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Strategy  string           `json:"strategy"`
	Symbols   []string         `json:"symbols"`
	Summaries []engine.Summary `json:"summaries"`
	Failed    int              `json:"failed,omitempty"`
}

// runStore holds completed runs in memory, insertion-ordered.
type runStore struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*Run)}
}

func (s *runStore) add(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
}

func (s *runStore) get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// list returns runs newest first.
func (s *runStore) list() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]])
	}
	return out
}

// handler implements the API endpoints.
type handler struct {
	runner   *backtest.Backtester
	registry *strategy.Registry
	runs     *runStore
}

func newHandler(runner *backtest.Backtester, registry *strategy.Registry) *handler {
	return &handler{
		runner:   runner,
		registry: registry,
		runs:     newRunStore(),
	}
}

// CreateBacktest runs the requested backtest synchronously and stores the
// outcome under a fresh id.
func (h *handler) CreateBacktest(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	btReq, err := req.toBacktestRequest()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcomes, err := h.runner.Run(c.Request.Context(), btReq)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Request:   req,
	}
	for _, o := range outcomes {
		ro := RunOutcome{Symbol: o.Symbol, Result: o.Result}
		if o.Err != nil {
			ro.Error = o.Err.Error()
		}
		run.Outcomes = append(run.Outcomes, ro)
	}
	h.runs.add(run)

	c.JSON(http.StatusCreated, run)
}

// ListBacktests returns run digests, newest first.
func (h *handler) ListBacktests(c *gin.Context) {
	runs := h.runs.list()
	items := make([]RunListItem, 0, len(runs))
	for _, run := range runs {
		item := RunListItem{
			ID:        run.ID,
			CreatedAt: run.CreatedAt,
			Strategy:  run.Request.Strategy,
			Symbols:   run.Request.Symbols,
		}
		for _, o := range run.Outcomes {
			if o.Result != nil {
				item.Summaries = append(item.Summaries, o.Result.Summary())
			} else {
				item.Failed++
			}
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "runs": items})
}

// GetBacktest returns the stored run in full.
func (h *handler) GetBacktest(c *gin.Context) {
	run, ok := h.runs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetEquity returns just the equity curves of a stored run.
func (h *handler) GetEquity(c *gin.Context) {
	run, ok := h.runs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	type symbolEquity struct {
		Symbol string            `json:"symbol"`
		Curve  []domain.Snapshot `json:"equity_curve"`
	}
	curves := make([]symbolEquity, 0, len(run.Outcomes))
	for _, o := range run.Outcomes {
		if o.Result == nil {
			continue
		}
		curves = append(curves, symbolEquity{Symbol: o.Symbol, Curve: o.Result.EquityCurve})
	}
	c.JSON(http.StatusOK, gin.H{"id": run.ID, "curves": curves})
}

// ListStrategies returns the registered strategy names.
func (h *handler) ListStrategies(c *gin.Context) {
	names := h.registry.List()
	c.JSON(http.StatusOK, gin.H{"strategies": names})
}
