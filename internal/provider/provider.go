// Package provider defines the common adapter interface over external
// business-data APIs and the registry the orchestrator draws from.
package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Provider wraps one external data/search API behind a single search
// operation. Implementations return an error for failures and a
// legitimate empty slice for "searched fine, nothing there" — the two
// are never conflated.
type Provider interface {
	// Name returns the provider identifier (matches the quota ledger's
	// provider column).
	Name() string
	// Search returns up to limit leads for a keyword in a location.
	Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error)
}

// Registry holds the providers available to an orchestration run. It is
// populated at startup and read-only afterward.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// Names returns all registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
