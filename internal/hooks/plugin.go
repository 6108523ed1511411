package hooks

import (
	"context"

	"emberhollow/client/internal/session"
)

// RunIn declares which execution context a plugin participates in.
type RunIn string

const (
	RunInGame       RunIn = "game"
	RunInSimulation RunIn = "simulation"
	RunInBoth       RunIn = "both"
)

// matches reports whether a plugin declared for `declared` should run in the
// given tick context.
func (declared RunIn) matches(mode RunIn) bool {
	return declared == RunInBoth || declared == mode
}

// TickContext carries the per-tick inputs handed to every hook. Session is a
// snapshot clone; plugins that need to mutate state go through whatever
// mutation handle they were built with, never through this copy.
type TickContext struct {
	Context   context.Context
	Tick      uint64
	Mode      RunIn
	WorldTime int64
	Session   *session.Session
}

// LifecycleContext carries the inputs for non-tick lifecycle hooks.
type LifecycleContext struct {
	Context    context.Context
	WorldTime  int64
	Session    *session.Session
	LocationID string
	SceneID    string
}

// Plugin is the base hook plugin contract. All lifecycle callbacks are
// optional capabilities declared by implementing the interfaces below;
// the registry dispatches via type assertions.
type Plugin interface {
	ID() string
	RunIn() RunIn
}

// BeforeTicker prepares state ahead of the tick's event production.
type BeforeTicker interface {
	BeforeTick(TickContext) error
}

// Ticker produces the tick's events.
type Ticker interface {
	OnTick(TickContext) ([]GameEvent, error)
}

// AfterTicker reacts to the tick's full aggregated event list.
type AfterTicker interface {
	AfterTick(TickContext, []GameEvent) error
}

// SessionLoadedHook fires once a session has been fetched or restored.
type SessionLoadedHook interface {
	OnSessionLoaded(LifecycleContext) ([]GameEvent, error)
}

// LocationEnteredHook fires when the player enters a location.
type LocationEnteredHook interface {
	OnLocationEntered(LifecycleContext) ([]GameEvent, error)
}

// SceneStartedHook fires when a scene begins.
type SceneStartedHook interface {
	OnSceneStarted(LifecycleContext) ([]GameEvent, error)
}

// SceneEndedHook fires when a scene finishes.
type SceneEndedHook interface {
	OnSceneEnded(LifecycleContext) ([]GameEvent, error)
}
