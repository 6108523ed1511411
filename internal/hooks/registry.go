package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"emberhollow/client/logging"
)

// Registry runs the ordered tick phases across registered plugins and
// aggregates their event output. A failing plugin is isolated: logged,
// surfaced as one synthetic error event when it happened in OnTick, and the
// remaining plugins still run.
type Registry struct {
	mu      sync.Mutex
	ordered []*pluginEntry
	byID    map[string]*pluginEntry

	bus       *Bus
	publisher logging.Publisher
	now       func() time.Time
}

type pluginEntry struct {
	plugin  Plugin
	enabled bool
}

func NewRegistry(bus *Bus, publisher logging.Publisher) *Registry {
	if bus == nil {
		bus = NewBus()
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Registry{
		byID:      make(map[string]*pluginEntry),
		bus:       bus,
		publisher: publisher,
		now:       time.Now,
	}
}

// Bus exposes the event bus for subscription wiring.
func (r *Registry) Bus() *Bus { return r.bus }

// Register appends a plugin in registration order, enabled by default.
func (r *Registry) Register(p Plugin) error {
	if p == nil || p.ID() == "" {
		return fmt.Errorf("hooks: plugin missing id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[p.ID()]; exists {
		return fmt.Errorf("hooks: plugin %q already registered", p.ID())
	}
	entry := &pluginEntry{plugin: p, enabled: true}
	r.ordered = append(r.ordered, entry)
	r.byID[p.ID()] = entry
	return nil
}

// Unregister removes a plugin. Safe to call for unknown ids.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	for i, e := range r.ordered {
		if e == entry {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}
}

// SetEnabled toggles a plugin without losing its registration slot.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[id]
	if !ok {
		return false
	}
	entry.enabled = enabled
	return true
}

// active snapshots the plugins that participate in the given mode, in
// registration order.
func (r *Registry) active(mode RunIn) []Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	plugins := make([]Plugin, 0, len(r.ordered))
	for _, entry := range r.ordered {
		if !entry.enabled {
			continue
		}
		if !entry.plugin.RunIn().matches(mode) {
			continue
		}
		plugins = append(plugins, entry.plugin)
	}
	return plugins
}

func (r *Registry) activeAll() []Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	plugins := make([]Plugin, 0, len(r.ordered))
	for _, entry := range r.ordered {
		if entry.enabled {
			plugins = append(plugins, entry.plugin)
		}
	}
	return plugins
}

// RunTick executes beforeTick, onTick, and afterTick across the active
// plugins, broadcasts every aggregated event, and returns the aggregate.
func (r *Registry) RunTick(tc TickContext) []GameEvent {
	plugins := r.active(tc.Mode)
	now := r.now()

	for _, p := range plugins {
		hook, ok := p.(BeforeTicker)
		if !ok {
			continue
		}
		if err := capture(func() error { return hook.BeforeTick(tc) }); err != nil {
			r.logHookFailure(p.ID(), "beforeTick", err)
		}
	}

	var events []GameEvent
	for _, p := range plugins {
		hook, ok := p.(Ticker)
		if !ok {
			continue
		}
		produced, err := captureEvents(func() ([]GameEvent, error) { return hook.OnTick(tc) })
		if err != nil {
			r.logHookFailure(p.ID(), "onTick", err)
			events = append(events, stamp(r.errorEvent(p.ID(), "onTick", err), tc.WorldTime, now))
			continue
		}
		for _, ev := range produced {
			events = append(events, stamp(ev, tc.WorldTime, now))
		}
	}

	for _, p := range plugins {
		hook, ok := p.(AfterTicker)
		if !ok {
			continue
		}
		if err := capture(func() error { return hook.AfterTick(tc, events) }); err != nil {
			r.logHookFailure(p.ID(), "afterTick", err)
		}
	}

	for _, ev := range events {
		r.bus.Publish(ev)
	}
	return events
}

// FireSessionLoaded runs every OnSessionLoaded hook with the same
// aggregate-and-isolate semantics as a tick.
func (r *Registry) FireSessionLoaded(lc LifecycleContext) []GameEvent {
	return r.fireLifecycle(lc, "onSessionLoaded", func(p Plugin) (func() ([]GameEvent, error), bool) {
		hook, ok := p.(SessionLoadedHook)
		if !ok {
			return nil, false
		}
		return func() ([]GameEvent, error) { return hook.OnSessionLoaded(lc) }, true
	})
}

// FireLocationEntered runs every OnLocationEntered hook.
func (r *Registry) FireLocationEntered(lc LifecycleContext) []GameEvent {
	return r.fireLifecycle(lc, "onLocationEntered", func(p Plugin) (func() ([]GameEvent, error), bool) {
		hook, ok := p.(LocationEnteredHook)
		if !ok {
			return nil, false
		}
		return func() ([]GameEvent, error) { return hook.OnLocationEntered(lc) }, true
	})
}

// FireSceneStarted runs every OnSceneStarted hook.
func (r *Registry) FireSceneStarted(lc LifecycleContext) []GameEvent {
	return r.fireLifecycle(lc, "onSceneStarted", func(p Plugin) (func() ([]GameEvent, error), bool) {
		hook, ok := p.(SceneStartedHook)
		if !ok {
			return nil, false
		}
		return func() ([]GameEvent, error) { return hook.OnSceneStarted(lc) }, true
	})
}

// FireSceneEnded runs every OnSceneEnded hook.
func (r *Registry) FireSceneEnded(lc LifecycleContext) []GameEvent {
	return r.fireLifecycle(lc, "onSceneEnded", func(p Plugin) (func() ([]GameEvent, error), bool) {
		hook, ok := p.(SceneEndedHook)
		if !ok {
			return nil, false
		}
		return func() ([]GameEvent, error) { return hook.OnSceneEnded(lc) }, true
	})
}

func (r *Registry) fireLifecycle(lc LifecycleContext, hookName string, resolve func(Plugin) (func() ([]GameEvent, error), bool)) []GameEvent {
	// Run-in filtering applies to tick cadence only; lifecycle hooks fire
	// for every enabled plugin.
	plugins := r.activeAll()
	now := r.now()

	var events []GameEvent
	for _, p := range plugins {
		call, ok := resolve(p)
		if !ok {
			continue
		}
		produced, err := captureEvents(call)
		if err != nil {
			r.logHookFailure(p.ID(), hookName, err)
			events = append(events, stamp(r.errorEvent(p.ID(), hookName, err), lc.WorldTime, now))
			continue
		}
		for _, ev := range produced {
			events = append(events, stamp(ev, lc.WorldTime, now))
		}
	}

	for _, ev := range events {
		r.bus.Publish(ev)
	}
	return events
}

func (r *Registry) errorEvent(pluginID, hookName string, err error) GameEvent {
	return GameEvent{
		Type:     EventTypeError,
		Category: CategoryPlugin,
		Title:    "Plugin failure",
		Message:  fmt.Sprintf("plugin %s failed in %s: %v", pluginID, hookName, err),
		Metadata: map[string]any{"plugin": pluginID, "hook": hookName},
	}
}

func (r *Registry) logHookFailure(pluginID, hookName string, err error) {
	r.publisher.Publish(context.Background(), logging.Event{
		Type:     "plugin_hook_failed",
		Severity: logging.SeverityError,
		Category: logging.CategoryPlugin,
		Actor:    logging.EntityRef{ID: pluginID, Kind: logging.EntityKindPlugin},
		Payload:  map[string]any{"hook": hookName, "error": err.Error()},
	})
}

func capture(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

func captureEvents(f func() ([]GameEvent, error)) (events []GameEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}
