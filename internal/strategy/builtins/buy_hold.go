package builtins

import (
	"hindcast/internal/domain"
	"hindcast/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyHold)(nil)

// BuyHold enters on the first bar and never exits. It serves as the
// benchmark the active strategies are measured against.
type BuyHold struct{}

// NewBuyHold creates a BuyHold strategy.
func NewBuyHold() *BuyHold { return &BuyHold{} }

// Name returns "buy-hold".
func (b *BuyHold) Name() string { return "buy-hold" }

// OnBar implements strategy.Strategy.
func (b *BuyHold) OnBar(i int, _ []domain.Bar, _ []domain.Snapshot) domain.Decision {
	if i == 0 {
		return domain.Buy(0)
	}
	return domain.Hold()
}
