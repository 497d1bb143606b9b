// Package builtins provides the strategy implementations that ship with
// hindcast and a registry constructor that wires them all up.
package builtins

import (
	"gopkg.in/yaml.v3"

	"hindcast/internal/domain"
	"hindcast/internal/strategy"
)

// NewRegistry returns a strategy.Registry with every built-in registered.
// Built once in main and passed by reference to the run orchestrator and
// the API server.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()

	r.Register("momentum", func(params map[string]any) (strategy.Strategy, error) {
		var p MomentumParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return NewMomentum(p), nil
	})

	r.Register("sma-cross", func(params map[string]any) (strategy.Strategy, error) {
		var p SMACrossParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return NewSMACross(p)
	})

	r.Register("buy-hold", func(_ map[string]any) (strategy.Strategy, error) {
		return NewBuyHold(), nil
	})

	return r
}

// decodeParams round-trips the loose params map through YAML into a typed
// struct, so config files and API requests share one decoding path.
func decodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(params)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}

// holdBars counts how many consecutive bars the current position has been
// held, as of the previous bar close.
func holdBars(prior []domain.Snapshot) int {
	n := 0
	for j := len(prior) - 1; j >= 0; j-- {
		if prior[j].PositionQty == 0 {
			break
		}
		n++
	}
	return n
}
