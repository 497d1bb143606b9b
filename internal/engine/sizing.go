package engine

import "hindcast/internal/domain"

// cashEpsilon absorbs float rounding in the feasibility check and the
// cash invariant.
const cashEpsilon = 1e-9

// defaultOrderSize converts the configured equity fraction into an order
// quantity at the fill price. The commission rate is folded into the
// denominator so a full-fraction order stays affordable after costs.
func defaultOrderSize(equity, fillPrice float64, cfg Config) float64 {
	if equity <= 0 || fillPrice <= 0 {
		return 0
	}
	return cfg.PositionPct * equity / (fillPrice * (1 + cfg.CommissionRate))
}

// applySlippage moves the reference price against the trader: buys fill
// above it, sells below it.
func applySlippage(price, rate float64, action domain.Action) float64 {
	if rate <= 0 {
		return price
	}
	switch action {
	case domain.ActionBuy:
		return price * (1 + rate)
	case domain.ActionSell:
		return price * (1 - rate)
	}
	return price
}
