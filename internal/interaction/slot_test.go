package interaction

import (
	"context"
	"testing"
)

func slotFixture(t *testing.T, plugins ...Plugin) (*SlotExecutor, *slotCalls) {
	t.Helper()
	registry := NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("RegisterBuiltins failed: %v", err)
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			t.Fatalf("Register(%s) failed: %v", p.ID(), err)
		}
	}
	exec := NewExecutor(registry, nil, nil)
	calls := &slotCalls{}
	se := NewSlotExecutor(exec, registry, SlotCallbacks{
		DialogueOpened: func(targetID, pluginID string) {
			calls.dialogues = append(calls.dialogues, pluginID)
		},
		NotifySuccess: func(pluginID, message string) {
			calls.successes = append(calls.successes, pluginID)
		},
		NotifyError: func(pluginID, message string) {
			calls.errors = append(calls.errors, pluginID)
		},
	})
	return se, calls
}

type slotCalls struct {
	dialogues []string
	successes []string
	errors    []string
}

func TestRunSlotSkipsDisabledBindings(t *testing.T) {
	ran := false
	p := &fakePlugin{id: "optional", available: true, execute: func(context.Context, *Invocation, map[string]any) (*Result, error) {
		ran = true
		return &Result{Success: true}, nil
	}}
	se, _ := slotFixture(t, p)

	reports := se.RunSlot(context.Background(), &Invocation{TargetID: "npc:ada", Mutator: &fakeMutator{}}, []SlotInteraction{
		{PluginID: "optional", Enabled: false},
		{PluginID: PluginOpenDialogue, Enabled: true},
	})
	if ran {
		t.Fatalf("disabled binding still executed")
	}
	if len(reports) != 1 || reports[0].PluginID != PluginOpenDialogue {
		t.Fatalf("reports = %+v, want only the enabled dialogue", reports)
	}
}

func TestRunSlotFallsBackToDialogueWhenNothingEnabled(t *testing.T) {
	se, calls := slotFixture(t)
	reports := se.RunSlot(context.Background(), &Invocation{TargetID: "npc:ada"}, []SlotInteraction{
		{PluginID: "whatever", Enabled: false},
	})
	if len(reports) != 1 || reports[0].PluginID != PluginOpenDialogue {
		t.Fatalf("reports = %+v, want one open_dialogue fallback", reports)
	}
	if len(calls.dialogues) != 1 {
		t.Fatalf("dialogue callback fired %d times, want 1", len(calls.dialogues))
	}
}

func TestRunSlotIsolatesFailures(t *testing.T) {
	bad := &fakePlugin{id: "bad", available: true, execute: func(context.Context, *Invocation, map[string]any) (*Result, error) {
		panic("slot plugin exploded")
	}}
	good := &fakePlugin{id: "good", available: true, execute: func(context.Context, *Invocation, map[string]any) (*Result, error) {
		return &Result{Success: true, Message: "done"}, nil
	}}
	se, calls := slotFixture(t, bad, good)

	reports := se.RunSlot(context.Background(), &Invocation{TargetID: "npc:ada", Mutator: &fakeMutator{}}, []SlotInteraction{
		{PluginID: "bad", Enabled: true},
		{PluginID: "good", Enabled: true},
	})
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2 (failure must not stop the slot)", len(reports))
	}
	if reports[0].Status != StatusFailure || reports[1].Status != StatusSuccess {
		t.Fatalf("statuses = %q %q", reports[0].Status, reports[1].Status)
	}
	if len(calls.errors) != 1 || calls.errors[0] != "bad" {
		t.Fatalf("error notifications = %v", calls.errors)
	}
	if len(calls.successes) != 1 || calls.successes[0] != "good" {
		t.Fatalf("success notifications = %v", calls.successes)
	}
}

func TestRunSlotStampsPresetID(t *testing.T) {
	var seen string
	p := &fakePlugin{id: "preset", available: true, execute: func(_ context.Context, inv *Invocation, _ map[string]any) (*Result, error) {
		seen = inv.PresetID
		return &Result{Success: true}, nil
	}}
	se, _ := slotFixture(t, p)

	se.RunSlot(context.Background(), &Invocation{TargetID: "npc:ada"}, []SlotInteraction{
		{PluginID: "preset", Enabled: true, PresetID: "morning-greeting"},
	})
	if seen != "morning-greeting" {
		t.Fatalf("preset id = %q, want morning-greeting", seen)
	}
}

func TestRunSlotDialogueCallbackFiresForDialoguePlugins(t *testing.T) {
	se, calls := slotFixture(t)
	se.RunSlot(context.Background(), &Invocation{TargetID: "npc:ada"}, []SlotInteraction{
		{PluginID: PluginOpenDialogue, Enabled: true},
	})
	if len(calls.dialogues) != 1 || calls.dialogues[0] != PluginOpenDialogue {
		t.Fatalf("dialogue callbacks = %v", calls.dialogues)
	}
}
