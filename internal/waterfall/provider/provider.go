// Package provider defines the strategy interface shared by every signal
// source and a name-keyed registry used to build fallback chains.
package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/livability-cli/internal/model"
)

// Result is one strategy's answer for a point.
type Result struct {
	Found         bool           `json:"found"`
	Attributes    map[string]any `json:"attributes"`
	Message       string         `json:"message,omitempty"`
	ProviderLabel string         `json:"providerLabel,omitempty"`
}

// NotFound builds a miss carrying msg.
func NotFound(msg string) Result {
	return Result{Found: false, Message: msg}
}

// Strategy is one external source attempted in a fallback chain. Query
// returns an error for transport, status or decode failures and a Result
// with Found=false when the source answered but had nothing for the point.
type Strategy interface {
	Name() string
	Query(ctx context.Context, p model.Point) (Result, error)
}

// Func adapts a function to Strategy.
type Func struct {
	ID string
	Fn func(ctx context.Context, p model.Point) (Result, error)
}

// Name implements Strategy.
func (f Func) Name() string { return f.ID }

// Query implements Strategy.
func (f Func) Query(ctx context.Context, p model.Point) (Result, error) {
	return f.Fn(ctx, p)
}

// Registry maps strategy names to implementations.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds s under s.Name(), replacing any previous entry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get returns the strategy registered under name, or nil.
func (r *Registry) Get(name string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strategies[name]
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain resolves names into strategies, preserving order. Unknown names fail
// the whole chain.
func (r *Registry) Chain(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		return nil, eris.New("provider: empty chain")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := r.strategies[name]
		if !ok {
			return nil, eris.Errorf("provider: unknown strategy %q", name)
		}
		chain = append(chain, s)
	}
	return chain, nil
}
