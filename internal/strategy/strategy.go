// Package strategy defines the signal-source contract consumed by the
// backtest engine and a Registry of named strategy constructors.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"hindcast/internal/domain"
)

// Strategy produces one decision per bar. OnBar receives the bar index, the
// full bar series, and the ledger snapshots of all prior bars; it must only
// consult bars[:i+1], since reading ahead silently invalidates the simulation
// and the engine does not police it. Implementations should be pure
// functions of their inputs so one instance can serve concurrent runs.
type Strategy interface {
	// Name returns the identifier used in configs, results, and logs.
	Name() string

	// OnBar returns the decision for bar i.
	OnBar(i int, bars []domain.Bar, prior []domain.Snapshot) domain.Decision
}

// SignalFunc adapts a plain function to the Strategy interface, in the
// manner of http.HandlerFunc. The name is fixed to "func".
type SignalFunc func(i int, bars []domain.Bar, prior []domain.Snapshot) domain.Decision

// Name returns "func".
func (f SignalFunc) Name() string { return "func" }

// OnBar calls f.
func (f SignalFunc) OnBar(i int, bars []domain.Bar, prior []domain.Snapshot) domain.Decision {
	return f(i, bars, prior)
}

// Factory constructs a strategy instance from its configuration parameters.
type Factory func(params map[string]any) (Strategy, error)

// Registry is a table of named strategy factories. It is built once at
// process start and passed by reference to whatever needs to construct
// strategies; nothing registers into it after startup.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under the given name, replacing any previous
// entry.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New constructs a strategy by name with the given parameters. Unknown
// names are an error listing the registered alternatives.
func (r *Registry) New(name string, params map[string]any) (Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %s)", name, strings.Join(r.List(), ", "))
	}
	s, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("building strategy %q: %w", name, err)
	}
	return s, nil
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
