package interaction

import (
	"context"

	"emberhollow/client/internal/session"
	"emberhollow/client/stats"
)

// UIMode hints how the UI should present an interaction.
type UIMode string

const (
	UIModeNone     UIMode = "none"
	UIModeDialogue UIMode = "dialogue"
	UIModePanel    UIMode = "panel"
)

// Result is what a plugin reports after executing. A nil *Result with a nil
// error classifies as neutral: the plugin ran but has no success claim to
// make (pure UI actions behave this way).
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// SessionMutator is the narrow session-write surface handed to plugins. The
// service facade implements it; plugins never see transport or storage.
type SessionMutator interface {
	GetStat(source, entityID string) (session.Value, bool)
	UpdateStat(ctx context.Context, source, entityID string, patch stats.Patch) (*session.Session, error)
}

// Invocation carries the per-call context: who is acting on what, plus the
// handles a plugin may use for side effects.
type Invocation struct {
	Session  *session.Session
	ActorID  string
	TargetID string
	SlotID   string
	// PresetID is set when the config originated from a saved preset, so
	// usage tracking can attribute the run.
	PresetID string

	Mutator      SessionMutator
	RequestScene func(sceneID string)
}

// Plugin is one registered interaction. Registered at boot, immutable,
// looked up by id. Validate and IsAvailable gate Execute so an invalid or
// unavailable interaction never partially mutates state.
type Plugin interface {
	ID() string
	UIMode() UIMode
	Capabilities() []string

	// DefaultConfig returns the config merged under the caller's values.
	DefaultConfig() map[string]any
	// ConfigSchema returns the JSON Schema source validated at
	// registration time; empty string skips schema validation.
	ConfigSchema() string
	// Validate performs semantic checks the schema cannot express.
	Validate(config map[string]any) error

	IsAvailable(inv *Invocation, config map[string]any) bool
	Execute(ctx context.Context, inv *Invocation, config map[string]any) (*Result, error)
}
