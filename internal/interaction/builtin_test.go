package interaction

import (
	"context"
	"strings"
	"testing"

	"emberhollow/client/internal/session"
)

func builtinExecutor(t *testing.T) *Executor {
	t.Helper()
	registry := NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("RegisterBuiltins failed: %v", err)
	}
	return NewExecutor(registry, nil, nil)
}

func TestGiveItemRequiresRelationship(t *testing.T) {
	exec := builtinExecutor(t)
	mutator := &fakeMutator{values: map[string]session.Value{
		key("relationship", "npc:ada"): {"affinity": 10},
	}}
	inv := &Invocation{TargetID: "npc:ada", Mutator: mutator}

	report := exec.Run(context.Background(), PluginGiveItem, map[string]any{
		"item":                 "bread",
		"requiredRelationship": float64(25),
	}, inv)

	if report.Status != StatusFailure {
		t.Fatalf("status = %q, want failure", report.Status)
	}
	if report.Result == nil || !strings.Contains(report.Result.Message, "too low") {
		t.Fatalf("message = %+v, want a 'too low' explanation", report.Result)
	}
	if len(mutator.updates) != 0 {
		t.Fatalf("failed gift still mutated inventory: %v", mutator.updates)
	}
}

func TestGiveItemSucceedsAndUpdatesInventory(t *testing.T) {
	exec := builtinExecutor(t)
	mutator := &fakeMutator{values: map[string]session.Value{
		key("relationship", "npc:ada"): {"affinity": 50},
	}}
	inv := &Invocation{TargetID: "npc:ada", Mutator: mutator}

	report := exec.Run(context.Background(), PluginGiveItem, map[string]any{
		"item":                 "bread",
		"quantity":             float64(2),
		"requiredRelationship": float64(25),
	}, inv)

	if report.Status != StatusSuccess {
		t.Fatalf("report = %+v, want success", report)
	}
	if got := mutator.values[key("inventory", "npc:ada")]["bread"]; got != 2 {
		t.Fatalf("bread = %v, want 2", got)
	}
}

func TestGiveItemDefaultsQuantityToOne(t *testing.T) {
	exec := builtinExecutor(t)
	mutator := &fakeMutator{values: map[string]session.Value{
		key("relationship", "npc:ada"): {"affinity": 50},
	}}
	inv := &Invocation{TargetID: "npc:ada", Mutator: mutator}

	report := exec.Run(context.Background(), PluginGiveItem, map[string]any{"item": "apple"}, inv)
	if report.Status != StatusSuccess {
		t.Fatalf("report = %+v, want success", report)
	}
	if got := mutator.values[key("inventory", "npc:ada")]["apple"]; got != 1 {
		t.Fatalf("apple = %v, want default quantity 1", got)
	}
}

func TestGiveItemRejectsMissingItem(t *testing.T) {
	exec := builtinExecutor(t)
	inv := &Invocation{TargetID: "npc:ada", Mutator: &fakeMutator{}}
	report := exec.Run(context.Background(), PluginGiveItem, nil, inv)
	if report.Status != StatusFailure || report.State != StateValidating {
		t.Fatalf("report = %+v, want validation failure", report)
	}
}

func TestOpenDialogueIsNeutralAndMayRequestScene(t *testing.T) {
	exec := builtinExecutor(t)
	var requested string
	inv := &Invocation{
		TargetID:     "npc:ada",
		Mutator:      &fakeMutator{},
		RequestScene: func(sceneID string) { requested = sceneID },
	}

	report := exec.Run(context.Background(), PluginOpenDialogue, map[string]any{"scene": "tavern"}, inv)
	if report.Status != StatusNeutral {
		t.Fatalf("status = %q, want neutral", report.Status)
	}
	if requested != "tavern" {
		t.Fatalf("scene request = %q, want tavern", requested)
	}
}

func TestAdjustRelationshipAppliesDelta(t *testing.T) {
	exec := builtinExecutor(t)
	mutator := &fakeMutator{values: map[string]session.Value{
		key("relationship", "npc:ada"): {"affinity": 30},
	}}
	inv := &Invocation{TargetID: "npc:ada", Mutator: mutator}

	report := exec.Run(context.Background(), PluginAdjustRelationship, map[string]any{
		"field": "affinity",
		"delta": float64(5),
	}, inv)
	if report.Status != StatusSuccess {
		t.Fatalf("report = %+v, want success", report)
	}
	// The plugin writes the new absolute value, current + delta.
	if len(mutator.patches) != 1 || mutator.patches[0]["affinity"] != 35 {
		t.Fatalf("patches = %v, want one write of affinity 35", mutator.patches)
	}
}
