package interaction

import (
	"context"
)

// SlotInteraction binds one interaction config to a slot (an NPC position or
// other world attachment point).
type SlotInteraction struct {
	PluginID string         `json:"pluginId"`
	Enabled  bool           `json:"enabled"`
	Config   map[string]any `json:"config,omitempty"`
	PresetID string         `json:"presetId,omitempty"`
}

// SlotCallbacks decouple slot execution from presentation. DialogueOpened
// also fires for dialogue-mode plugins alongside Execute, which legacy
// callers rely on.
type SlotCallbacks struct {
	DialogueOpened func(targetID, pluginID string)
	NotifySuccess  func(pluginID, message string)
	NotifyError    func(pluginID, message string)
}

// SlotExecutor runs every enabled interaction bound to a slot. One failing
// interaction never blocks the remaining ones; with nothing enabled, a
// default open-dialogue fallback fires so the slot is never inert.
type SlotExecutor struct {
	exec      *Executor
	registry  *Registry
	callbacks SlotCallbacks
}

func NewSlotExecutor(exec *Executor, registry *Registry, callbacks SlotCallbacks) *SlotExecutor {
	return &SlotExecutor{exec: exec, registry: registry, callbacks: callbacks}
}

// RunSlot executes the slot's interactions in order and returns one report
// per run, including the fallback run when nothing was enabled.
func (se *SlotExecutor) RunSlot(ctx context.Context, inv *Invocation, interactions []SlotInteraction) []RunReport {
	reports := make([]RunReport, 0, len(interactions))
	ranAny := false

	for _, binding := range interactions {
		if !binding.Enabled {
			continue
		}
		ranAny = true
		reports = append(reports, se.runOne(ctx, inv, binding))
	}

	if !ranAny {
		fallback := SlotInteraction{PluginID: PluginOpenDialogue, Enabled: true}
		reports = append(reports, se.runOne(ctx, inv, fallback))
	}
	return reports
}

func (se *SlotExecutor) runOne(ctx context.Context, inv *Invocation, binding SlotInteraction) RunReport {
	scoped := *inv
	scoped.PresetID = binding.PresetID

	dialogueMode := false
	if plugin, ok := se.registry.Get(binding.PluginID); ok {
		dialogueMode = plugin.UIMode() == UIModeDialogue
	}

	report := se.exec.Run(ctx, binding.PluginID, binding.Config, &scoped)

	if dialogueMode && se.callbacks.DialogueOpened != nil {
		se.callbacks.DialogueOpened(scoped.TargetID, binding.PluginID)
	}

	switch report.Status {
	case StatusSuccess:
		if se.callbacks.NotifySuccess != nil {
			message := ""
			if report.Result != nil {
				message = report.Result.Message
			}
			se.callbacks.NotifySuccess(report.PluginID, message)
		}
	case StatusFailure:
		if se.callbacks.NotifyError != nil {
			message := ""
			switch {
			case report.Result != nil && report.Result.Message != "":
				message = report.Result.Message
			case report.Err != nil:
				message = report.Err.Error()
			}
			se.callbacks.NotifyError(report.PluginID, message)
		}
	}
	return report
}
