package interaction

import (
	"context"
	"fmt"

	"emberhollow/client/stats"
)

// Built-in plugin ids.
const (
	PluginGiveItem           = "give_item"
	PluginOpenDialogue       = "open_dialogue"
	PluginAdjustRelationship = "adjust_relationship"
)

// RegisterBuiltins installs the stock interaction pack.
func RegisterBuiltins(r *Registry) error {
	for _, p := range []Plugin{
		&GiveItemPlugin{},
		&OpenDialoguePlugin{},
		&AdjustRelationshipPlugin{},
	} {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// GiveItemPlugin hands an item to the target NPC, gated on a minimum
// relationship affinity.
type GiveItemPlugin struct{}

func (*GiveItemPlugin) ID() string             { return PluginGiveItem }
func (*GiveItemPlugin) UIMode() UIMode         { return UIModeNone }
func (*GiveItemPlugin) Capabilities() []string { return []string{"inventory", "relationship"} }

func (*GiveItemPlugin) DefaultConfig() map[string]any {
	return map[string]any{
		"quantity":             float64(1),
		"requiredRelationship": float64(0),
	}
}

func (*GiveItemPlugin) ConfigSchema() string {
	return `{
		"type": "object",
		"properties": {
			"item": {"type": "string", "minLength": 1},
			"quantity": {"type": "number", "minimum": 1},
			"requiredRelationship": {"type": "number", "minimum": 0}
		},
		"required": ["item"]
	}`
}

func (*GiveItemPlugin) Validate(config map[string]any) error {
	if configString(config, "item") == "" {
		return fmt.Errorf("item is required")
	}
	return nil
}

func (*GiveItemPlugin) IsAvailable(inv *Invocation, config map[string]any) bool {
	return inv != nil && inv.TargetID != "" && inv.Mutator != nil
}

func (*GiveItemPlugin) Execute(ctx context.Context, inv *Invocation, config map[string]any) (*Result, error) {
	item := configString(config, "item")
	quantity := configNumber(config, "quantity")
	required := configNumber(config, "requiredRelationship")

	affinity := float64(0)
	if value, ok := inv.Mutator.GetStat("relationship", inv.TargetID); ok {
		affinity = value["affinity"]
	}
	if affinity < required {
		return &Result{
			Success: false,
			Message: fmt.Sprintf("relationship with %s too low: affinity %.0f, need %.0f", inv.TargetID, affinity, required),
		}, nil
	}

	if _, err := inv.Mutator.UpdateStat(ctx, "inventory", inv.TargetID, stats.Patch{item: quantity}); err != nil {
		return nil, err
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("gave %.0f %s to %s", quantity, item, inv.TargetID),
		Data:    map[string]any{"item": item, "quantity": quantity},
	}, nil
}

// OpenDialoguePlugin opens a dialogue window. Execution itself is neutral:
// the presentation side effect happens through the slot executor's
// dialogue-opened callback.
type OpenDialoguePlugin struct{}

func (*OpenDialoguePlugin) ID() string             { return PluginOpenDialogue }
func (*OpenDialoguePlugin) UIMode() UIMode         { return UIModeDialogue }
func (*OpenDialoguePlugin) Capabilities() []string { return []string{"dialogue"} }

func (*OpenDialoguePlugin) DefaultConfig() map[string]any {
	return map[string]any{"dialogueId": "default"}
}

func (*OpenDialoguePlugin) ConfigSchema() string {
	return `{
		"type": "object",
		"properties": {
			"dialogueId": {"type": "string", "minLength": 1}
		}
	}`
}

func (*OpenDialoguePlugin) Validate(map[string]any) error { return nil }

func (*OpenDialoguePlugin) IsAvailable(inv *Invocation, config map[string]any) bool {
	return inv != nil && inv.TargetID != ""
}

func (*OpenDialoguePlugin) Execute(ctx context.Context, inv *Invocation, config map[string]any) (*Result, error) {
	if scene := configString(config, "scene"); scene != "" && inv.RequestScene != nil {
		inv.RequestScene(scene)
	}
	return nil, nil
}

// AdjustRelationshipPlugin shifts one relationship field by a delta.
type AdjustRelationshipPlugin struct{}

func (*AdjustRelationshipPlugin) ID() string             { return PluginAdjustRelationship }
func (*AdjustRelationshipPlugin) UIMode() UIMode         { return UIModeNone }
func (*AdjustRelationshipPlugin) Capabilities() []string { return []string{"relationship"} }

func (*AdjustRelationshipPlugin) DefaultConfig() map[string]any {
	return map[string]any{"field": "affinity", "delta": float64(1)}
}

func (*AdjustRelationshipPlugin) ConfigSchema() string {
	return `{
		"type": "object",
		"properties": {
			"field": {"type": "string", "minLength": 1},
			"delta": {"type": "number"}
		}
	}`
}

func (*AdjustRelationshipPlugin) Validate(config map[string]any) error {
	if configString(config, "field") == "" {
		return fmt.Errorf("field is required")
	}
	return nil
}

func (*AdjustRelationshipPlugin) IsAvailable(inv *Invocation, config map[string]any) bool {
	return inv != nil && inv.TargetID != "" && inv.Mutator != nil
}

func (*AdjustRelationshipPlugin) Execute(ctx context.Context, inv *Invocation, config map[string]any) (*Result, error) {
	field := configString(config, "field")
	delta := configNumber(config, "delta")

	current := float64(0)
	if value, ok := inv.Mutator.GetStat("relationship", inv.TargetID); ok {
		current = value[field]
	}
	next := current + delta
	if _, err := inv.Mutator.UpdateStat(ctx, "relationship", inv.TargetID, stats.Patch{field: next}); err != nil {
		return nil, err
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("%s %s now %.0f", inv.TargetID, field, next),
	}, nil
}

func configString(config map[string]any, key string) string {
	s, _ := config[key].(string)
	return s
}

func configNumber(config map[string]any, key string) float64 {
	switch n := config[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
