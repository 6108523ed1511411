package stats

import (
	"fmt"
	"sync"
)

// Registry holds the stat adapters keyed by source. It is an explicit object
// rather than a package global so tests can build a fresh one per case.
// Registration happens at boot; lookups afterwards are read-only.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]*Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]*Adapter)}
}

// Register installs an adapter. Re-registering a source is a programming
// error and is rejected so two packs cannot silently fight over one source.
func (r *Registry) Register(adapter *Adapter) error {
	if adapter == nil || adapter.Source == "" {
		return fmt.Errorf("stats: adapter missing source")
	}
	if adapter.Get == nil || adapter.Set == nil || adapter.BuildSessionPatch == nil {
		return fmt.Errorf("stats: adapter %q missing required functions", adapter.Source)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[adapter.Source]; exists {
		return fmt.Errorf("stats: adapter %q already registered", adapter.Source)
	}
	r.adapters[adapter.Source] = adapter
	return nil
}

// Get looks up the adapter for a source.
func (r *Registry) Get(source string) (*Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[source]
	return adapter, ok
}

// Sources lists the registered source names for diagnostics.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sources := make([]string, 0, len(r.adapters))
	for source := range r.adapters {
		sources = append(sources, source)
	}
	return sources
}

// DefaultRegistry builds a registry seeded with the built-in stat packs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, adapter := range []*Adapter{
		RelationshipAdapter(),
		QuestAdapter(),
		InventoryAdapter(),
	} {
		if err := r.Register(adapter); err != nil {
			// Built-ins are registered exactly once with distinct sources.
			panic(err)
		}
	}
	return r
}
