package engine

import (
	"fmt"
	"math"

	"hindcast/internal/domain"
)

// Ledger owns the cash balance and the single open position for a run.
// All mutation goes through ApplyFill; Snapshot is a pure read.
type Ledger struct {
	cash float64
	pos  domain.Position
}

func NewLedger(initialCash float64) *Ledger {
	return &Ledger{cash: initialCash}
}

func (l *Ledger) Cash() float64 { return l.cash }

func (l *Ledger) Position() domain.Position { return l.pos }

// Snapshot values the ledger against the bar's close.
func (l *Ledger) Snapshot(bar domain.Bar) domain.Snapshot {
	mv := l.pos.Quantity * bar.Close
	return domain.Snapshot{
		Timestamp:   bar.Timestamp,
		Cash:        l.cash,
		PositionQty: l.pos.Quantity,
		MarketValue: mv,
		Equity:      l.cash + mv,
	}
}

// ApplyFill moves cash and updates the position for one fill. It returns
// the trade completed by the fill, if the fill reduced, closed, or
// reversed the position. Realized P&L on the trade is gross of costs; the
// commissions attributable to it are reported separately on the trade so
// equity reconciles as realized + unrealized - commissions.
func (l *Ledger) ApplyFill(symbol string, fill domain.Fill) (*domain.Trade, error) {
	qty := fill.Quantity
	if qty <= 0 {
		return nil, fmt.Errorf("fill quantity must be positive, got %v", qty)
	}
	delta := qty
	if fill.Action == domain.ActionSell {
		delta = -qty
	}

	if fill.Action == domain.ActionBuy {
		l.cash -= fill.Price*qty + fill.Commission
	} else {
		l.cash += fill.Price*qty - fill.Commission
	}

	var trade *domain.Trade
	cur := l.pos.Quantity
	absCur := math.Abs(cur)
	switch {
	case cur == 0:
		l.pos = domain.Position{
			Quantity:        delta,
			AvgEntryPrice:   fill.Price,
			EntryTime:       fill.Timestamp,
			EntryCommission: fill.Commission,
		}
	case sameSign(cur, delta):
		// Adding to the position: weighted-average entry, first entry
		// time kept.
		l.pos.AvgEntryPrice = (l.pos.AvgEntryPrice*absCur + fill.Price*qty) / (absCur + qty)
		l.pos.Quantity = cur + delta
		l.pos.EntryCommission += fill.Commission
	case qty <= absCur:
		// Reducing or closing: the closed quantity realizes P&L and
		// carries its share of the entry commission plus the whole fill
		// commission.
		share := l.pos.EntryCommission * (qty / absCur)
		t := l.closeTrade(symbol, fill, qty, share, fill.Commission)
		trade = &t
		l.pos.Quantity = cur + delta
		l.pos.EntryCommission -= share
		if l.pos.Quantity == 0 {
			l.pos = domain.Position{}
		}
	default:
		// Close-and-reverse: the old position closes in full and the
		// remainder opens fresh at the fill price. The fill commission
		// splits pro rata between the closing and opening quantities.
		closeComm := fill.Commission * (absCur / qty)
		t := l.closeTrade(symbol, fill, absCur, l.pos.EntryCommission, closeComm)
		trade = &t
		l.pos = domain.Position{
			Quantity:        cur + delta,
			AvgEntryPrice:   fill.Price,
			EntryTime:       fill.Timestamp,
			EntryCommission: fill.Commission - closeComm,
		}
	}

	// A fill that drives cash negative indicates a sizing defect
	// upstream; small float residue is tolerated.
	if l.cash < -cashEpsilon {
		return nil, fmt.Errorf("cash balance went negative: %v", l.cash)
	}
	return trade, nil
}

// closeTrade builds the trade record for closing closedQty of the current
// position at the fill price. Must be called before the position is
// overwritten.
func (l *Ledger) closeTrade(symbol string, fill domain.Fill, closedQty, entryComm, exitComm float64) domain.Trade {
	dir, side := 1.0, domain.SideLong
	if l.pos.Quantity < 0 {
		dir, side = -1.0, domain.SideShort
	}
	return domain.Trade{
		Symbol:         symbol,
		Side:           side,
		EntryTime:      l.pos.EntryTime,
		ExitTime:       fill.Timestamp,
		EntryPrice:     l.pos.AvgEntryPrice,
		ExitPrice:      fill.Price,
		Quantity:       closedQty,
		RealizedPnL:    (fill.Price - l.pos.AvgEntryPrice) * dir * closedQty,
		CommissionPaid: entryComm + exitComm,
	}
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
