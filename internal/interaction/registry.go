package interaction

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry holds the interaction plugins keyed by id. Config schemas are
// compiled once at registration so per-run validation is just a schema walk.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*registered
}

type registered struct {
	plugin Plugin
	schema *jsonschema.Schema
}

func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]*registered)}
}

// Register installs a plugin and compiles its config schema. A schema that
// does not compile is a boot-time defect, not a runtime one.
func (r *Registry) Register(p Plugin) error {
	if p == nil || p.ID() == "" {
		return fmt.Errorf("interaction: plugin missing id")
	}
	var schema *jsonschema.Schema
	if src := p.ConfigSchema(); src != "" {
		compiled, err := jsonschema.CompileString(p.ID()+".schema.json", src)
		if err != nil {
			return fmt.Errorf("interaction: plugin %s schema: %w", p.ID(), err)
		}
		schema = compiled
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[p.ID()]; exists {
		return fmt.Errorf("interaction: plugin %q already registered", p.ID())
	}
	r.plugins[p.ID()] = &registered{plugin: p, schema: schema}
	return nil
}

// Get looks up a plugin by id.
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.plugins[id]
	if !ok {
		return nil, false
	}
	return entry.plugin, true
}

// List returns descriptors for every registered plugin, for UI pickers.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.plugins))
	for _, entry := range r.plugins {
		out = append(out, Descriptor{
			ID:            entry.plugin.ID(),
			UIMode:        entry.plugin.UIMode(),
			Capabilities:  entry.plugin.Capabilities(),
			DefaultConfig: entry.plugin.DefaultConfig(),
		})
	}
	return out
}

// Descriptor is the read-only surface exposed to interaction pickers.
type Descriptor struct {
	ID            string         `json:"id"`
	UIMode        UIMode         `json:"uiMode"`
	Capabilities  []string       `json:"capabilities,omitempty"`
	DefaultConfig map[string]any `json:"defaultConfig,omitempty"`
}

// validateConfig runs the compiled schema (when present) then the plugin's
// own semantic checks.
func (r *Registry) validateConfig(id string, config map[string]any) error {
	r.mu.RLock()
	entry, ok := r.plugins[id]
	r.mu.RUnlock()
	if !ok {
		return &UnknownPluginError{PluginID: id}
	}
	if entry.schema != nil {
		if err := entry.schema.Validate(anyConfig(config)); err != nil {
			return &ValidationError{PluginID: id, Reason: err.Error()}
		}
	}
	if err := entry.plugin.Validate(config); err != nil {
		return &ValidationError{PluginID: id, Reason: err.Error()}
	}
	return nil
}

// anyConfig widens the config map for the schema validator, which walks
// plain decoded-JSON values.
func anyConfig(config map[string]any) any {
	if config == nil {
		return map[string]any{}
	}
	return map[string]any(config)
}
