package engine

import (
	"math"
	"time"

	"hindcast/internal/domain"
)

// RejectReason classifies why a decision was not filled.
type RejectReason string

const (
	RejectInsufficientCash RejectReason = "insufficient_cash"
	RejectNoPosition       RejectReason = "no_position"
	RejectShortDisabled    RejectReason = "short_disabled"
	RejectZeroSize         RejectReason = "zero_size"
)

// Rejection records a decision the simulator declined to fill. Rejections
// are outcomes, not errors: the run continues and they are reported on
// the Result.
type Rejection struct {
	BarIndex  int           `json:"bar_index"`
	Timestamp time.Time     `json:"timestamp"`
	Action    domain.Action `json:"action"`
	Quantity  float64       `json:"quantity"`
	Reason    RejectReason  `json:"reason"`
}

// simulator prices decisions, checks feasibility, and applies the
// resulting fills to the ledger. It keeps the run's fill history, the
// append-only trade log, and the rejection list.
//
// Size conventions: a zero-size buy targets the configured equity
// fraction; a zero-size sell closes the current long. A sell while flat
// opens a short only when shorting is enabled, and a zero-size sell while
// already short is rejected because adding to a short has no default size.
type simulator struct {
	cfg    Config
	ledger *Ledger
	symbol string

	fills      []domain.Fill
	trades     []domain.Trade
	rejections []Rejection
}

func (s *simulator) execute(i int, bar domain.Bar, refPrice float64, d domain.Decision) error {
	switch d.Action {
	case domain.ActionBuy:
		return s.executeBuy(i, bar, refPrice, d.Size)
	case domain.ActionSell:
		return s.executeSell(i, bar, refPrice, d.Size)
	}
	return nil
}

func (s *simulator) executeBuy(i int, bar domain.Bar, refPrice, size float64) error {
	fillPrice := applySlippage(refPrice, s.cfg.SlippageRate, domain.ActionBuy)
	qty := size
	if qty == 0 {
		qty = defaultOrderSize(s.equityAt(refPrice), fillPrice, s.cfg)
	}
	if qty <= 0 || fillPrice <= 0 {
		s.reject(i, bar, domain.ActionBuy, qty, RejectZeroSize)
		return nil
	}
	required := qty * fillPrice * (1 + s.cfg.CommissionRate)
	if required > s.ledger.Cash()+cashEpsilon {
		s.reject(i, bar, domain.ActionBuy, qty, RejectInsufficientCash)
		return nil
	}
	return s.fill(i, bar, domain.ActionBuy, refPrice, fillPrice, qty)
}

func (s *simulator) executeSell(i int, bar domain.Bar, refPrice, size float64) error {
	fillPrice := applySlippage(refPrice, s.cfg.SlippageRate, domain.ActionSell)
	pos := s.ledger.Position()
	qty := size

	switch {
	case pos.Quantity > 0:
		if qty == 0 {
			qty = pos.Quantity
		}
		if qty > pos.Quantity && !s.cfg.AllowShort {
			// Oversized sells cap at the held quantity instead of
			// silently going short.
			qty = pos.Quantity
		}
	case pos.Quantity == 0:
		if !s.cfg.AllowShort {
			// A zero-size sell while flat meant "close" and finds
			// nothing; a sized one meant "go short".
			reason := RejectNoPosition
			if qty > 0 {
				reason = RejectShortDisabled
			}
			s.reject(i, bar, domain.ActionSell, qty, reason)
			return nil
		}
		if qty == 0 {
			qty = defaultOrderSize(s.equityAt(refPrice), fillPrice, s.cfg)
		}
	default:
		if qty == 0 {
			s.reject(i, bar, domain.ActionSell, qty, RejectZeroSize)
			return nil
		}
	}

	if qty <= 0 || fillPrice <= 0 {
		s.reject(i, bar, domain.ActionSell, qty, RejectZeroSize)
		return nil
	}
	return s.fill(i, bar, domain.ActionSell, refPrice, fillPrice, qty)
}

func (s *simulator) fill(i int, bar domain.Bar, action domain.Action, refPrice, fillPrice, qty float64) error {
	f := domain.Fill{
		Timestamp:    bar.Timestamp,
		Action:       action,
		Price:        fillPrice,
		Quantity:     qty,
		Commission:   qty * fillPrice * s.cfg.CommissionRate,
		SlippageCost: math.Abs(fillPrice-refPrice) * qty,
	}
	trade, err := s.ledger.ApplyFill(s.symbol, f)
	if err != nil {
		return &InvariantViolationError{Index: i, Detail: err.Error()}
	}
	s.fills = append(s.fills, f)
	if trade != nil {
		s.trades = append(s.trades, *trade)
	}
	return nil
}

// equityAt marks the ledger at the given price for sizing purposes.
func (s *simulator) equityAt(price float64) float64 {
	return s.ledger.Cash() + s.ledger.Position().Quantity*price
}

func (s *simulator) reject(i int, bar domain.Bar, action domain.Action, qty float64, reason RejectReason) {
	s.rejections = append(s.rejections, Rejection{
		BarIndex:  i,
		Timestamp: bar.Timestamp,
		Action:    action,
		Quantity:  qty,
		Reason:    reason,
	})
}
