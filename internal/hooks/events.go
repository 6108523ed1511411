package hooks

import (
	"time"

	"github.com/google/uuid"
)

// Event categories surfaced to UI subscribers.
const (
	CategoryPlugin = "plugin"
	CategoryWorld  = "world"
	CategoryNPC    = "npc"
	CategoryQuest  = "quest"
	CategorySystem = "system"
)

// EventTypeError marks synthetic events emitted when a hook fails.
const EventTypeError = "error"

// GameEvent is one immutable entry in the gameplay event stream. Hook
// plugins produce them; the bus fans them out to subscribers.
type GameEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	WorldTime int64          `json:"worldTime"`
	Type      string         `json:"type"`
	Category  string         `json:"category"`
	Title     string         `json:"title,omitempty"`
	Message   string         `json:"message,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// stamp fills in identity and timing fields the producing plugin left blank.
func stamp(ev GameEvent, worldTime int64, now time.Time) GameEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}
	if ev.WorldTime == 0 {
		ev.WorldTime = worldTime
	}
	if ev.Category == "" {
		ev.Category = CategorySystem
	}
	return ev
}
