package hooks

import (
	"fmt"
)

// Built-in plugin ids.
const (
	PluginWorldClock    = "world_clock"
	PluginQuestReminder = "quest_reminder"
)

// minutesPerDay is the in-game day length.
const minutesPerDay = 1440

// RegisterBuiltins installs the stock hook plugins.
func RegisterBuiltins(r *Registry) error {
	for _, p := range []Plugin{
		NewWorldClockPlugin(),
		&QuestReminderPlugin{},
	} {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// WorldClockPlugin watches the world clock and announces day rollovers.
type WorldClockPlugin struct {
	lastDay int64
}

func NewWorldClockPlugin() *WorldClockPlugin {
	return &WorldClockPlugin{lastDay: -1}
}

func (*WorldClockPlugin) ID() string   { return PluginWorldClock }
func (*WorldClockPlugin) RunIn() RunIn { return RunInBoth }

func (p *WorldClockPlugin) OnTick(tc TickContext) ([]GameEvent, error) {
	day := tc.WorldTime / minutesPerDay
	if p.lastDay < 0 {
		p.lastDay = day
		return nil, nil
	}
	if day == p.lastDay {
		return nil, nil
	}
	p.lastDay = day
	return []GameEvent{{
		Type:     "new_day",
		Category: CategoryWorld,
		Title:    "A new day",
		Message:  fmt.Sprintf("day %d begins", day),
		Metadata: map[string]any{"day": day},
	}}, nil
}

// QuestReminderPlugin surfaces unfinished quests when a session comes up.
type QuestReminderPlugin struct{}

func (*QuestReminderPlugin) ID() string   { return PluginQuestReminder }
func (*QuestReminderPlugin) RunIn() RunIn { return RunInGame }

func (*QuestReminderPlugin) OnSessionLoaded(lc LifecycleContext) ([]GameEvent, error) {
	if lc.Session == nil {
		return nil, nil
	}
	quests, ok := lc.Session.Flags["quests"].(map[string]any)
	if !ok {
		return nil, nil
	}

	var events []GameEvent
	for questID, raw := range quests {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		progress, _ := fields["progress"].(float64)
		if progress >= 100 {
			continue
		}
		events = append(events, GameEvent{
			Type:     "quest_reminder",
			Category: CategoryQuest,
			Title:    "Quest in progress",
			Message:  fmt.Sprintf("quest %s is at %.0f%%", questID, progress),
			Metadata: map[string]any{"quest": questID, "progress": progress},
		})
	}
	return events, nil
}
