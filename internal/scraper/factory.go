package scraper

import (
	"fmt"

	"partshub-catalog/internal/config"
	"partshub-catalog/pkg/utils"
)

// Resolver maps extraction methods to their strategy implementations.
// Strategies are registered once at startup; resolution is read-only after.
type Resolver struct {
	strategies map[config.ExtractionMethod]Strategy
}

// NewResolver builds a resolver over the given strategies
func NewResolver(strategies ...Strategy) *Resolver {
	r := &Resolver{strategies: make(map[config.ExtractionMethod]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Method()] = s
	}
	return r
}

// For returns the strategy registered for a method
func (r *Resolver) For(method config.ExtractionMethod) (Strategy, error) {
	strategy, ok := r.strategies[method]
	if !ok {
		return nil, utils.NewConfigError(fmt.Sprintf("no strategy registered for method %q", method))
	}
	return strategy, nil
}
