package hooks

import (
	"testing"

	"emberhollow/client/internal/session"
)

func TestWorldClockAnnouncesDayRollover(t *testing.T) {
	p := NewWorldClockPlugin()

	// First observation only calibrates.
	events, err := p.OnTick(TickContext{WorldTime: 1430})
	if err != nil || len(events) != 0 {
		t.Fatalf("calibration tick: events=%v err=%v", events, err)
	}

	events, err = p.OnTick(TickContext{WorldTime: 1435})
	if err != nil || len(events) != 0 {
		t.Fatalf("same-day tick emitted: %v", events)
	}

	events, err = p.OnTick(TickContext{WorldTime: 1450})
	if err != nil {
		t.Fatalf("OnTick returned error: %v", err)
	}
	if len(events) != 1 || events[0].Type != "new_day" {
		t.Fatalf("events = %+v, want one new_day", events)
	}
	if events[0].Metadata["day"] != int64(1) {
		t.Fatalf("day = %v, want 1", events[0].Metadata["day"])
	}

	// No repeat within the same day.
	events, _ = p.OnTick(TickContext{WorldTime: 1500})
	if len(events) != 0 {
		t.Fatalf("rollover announced twice: %v", events)
	}
}

func TestQuestReminderListsUnfinishedQuests(t *testing.T) {
	p := &QuestReminderPlugin{}
	s := &session.Session{
		ID: "s",
		Flags: map[string]any{
			"quests": map[string]any{
				"herbalist": map[string]any{"progress": float64(40)},
				"ratcatcher": map[string]any{"progress": float64(100)},
			},
		},
	}

	events, err := p.OnSessionLoaded(LifecycleContext{Session: s})
	if err != nil {
		t.Fatalf("OnSessionLoaded returned error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d reminders, want 1 (finished quests stay quiet)", len(events))
	}
	if events[0].Metadata["quest"] != "herbalist" {
		t.Fatalf("reminded about %v, want herbalist", events[0].Metadata["quest"])
	}
}

func TestQuestReminderHandlesMissingData(t *testing.T) {
	p := &QuestReminderPlugin{}
	if events, err := p.OnSessionLoaded(LifecycleContext{}); err != nil || len(events) != 0 {
		t.Fatalf("nil session: events=%v err=%v", events, err)
	}
	if events, err := p.OnSessionLoaded(LifecycleContext{Session: &session.Session{ID: "s"}}); err != nil || len(events) != 0 {
		t.Fatalf("no quests flag: events=%v err=%v", events, err)
	}
}
