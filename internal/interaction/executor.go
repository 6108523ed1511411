package interaction

import (
	"context"
	"fmt"

	"emberhollow/client/logging"
)

// State labels the executor's per-invocation state machine.
type State string

const (
	StateIdle                 State = "idle"
	StateValidating           State = "validating"
	StateCheckingAvailability State = "checking_availability"
	StateExecuting            State = "executing"
	StateCompleted            State = "completed"
)

// Status classifies a terminal outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusNeutral Status = "neutral"
)

// RunReport is the terminal record of one interaction run.
type RunReport struct {
	PluginID string
	Status   Status
	State    State
	Result   *Result
	Err      error
}

// UsageRecord feeds the decoupled usage tracker.
type UsageRecord struct {
	PluginID string
	PresetID string
	Status   Status
}

// UsageTracker receives one record per terminal run. It must not block.
type UsageTracker func(UsageRecord)

// Executor runs one interaction by id through validate, availability, and
// execute, classifying the result. Gating precedes execution so an invalid
// or unavailable interaction never reaches Execute.
type Executor struct {
	registry  *Registry
	tracker   UsageTracker
	publisher logging.Publisher
}

func NewExecutor(registry *Registry, tracker UsageTracker, publisher logging.Publisher) *Executor {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Executor{registry: registry, tracker: tracker, publisher: publisher}
}

// Run executes the plugin with the given config merged over its defaults.
// Any panic inside the plugin is caught here and converted to a failure
// result; a misbehaving plugin never propagates an exception to its caller.
func (e *Executor) Run(ctx context.Context, id string, config map[string]any, inv *Invocation) RunReport {
	plugin, ok := e.registry.Get(id)
	if !ok {
		return e.complete(inv, RunReport{
			PluginID: id,
			Status:   StatusFailure,
			State:    StateIdle,
			Err:      &UnknownPluginError{PluginID: id},
		})
	}

	merged := mergeConfig(plugin.DefaultConfig(), config)

	if err := e.registry.validateConfig(id, merged); err != nil {
		return e.complete(inv, RunReport{
			PluginID: id,
			Status:   StatusFailure,
			State:    StateValidating,
			Err:      err,
		})
	}

	if !plugin.IsAvailable(inv, merged) {
		return e.complete(inv, RunReport{
			PluginID: id,
			Status:   StatusFailure,
			State:    StateCheckingAvailability,
			Err:      &AvailabilityError{PluginID: id},
		})
	}

	result, err := executeGuarded(ctx, plugin, inv, merged)
	report := RunReport{PluginID: id, State: StateExecuting, Result: result}
	switch {
	case err != nil:
		report.Status = StatusFailure
		report.Err = &ExecutionError{PluginID: id, Err: err}
	case result == nil:
		report.Status = StatusNeutral
	case result.Success:
		report.Status = StatusSuccess
	default:
		report.Status = StatusFailure
	}
	report.State = StateCompleted
	return e.complete(inv, report)
}

func (e *Executor) complete(inv *Invocation, report RunReport) RunReport {
	if e.tracker != nil {
		record := UsageRecord{PluginID: report.PluginID, Status: report.Status}
		if inv != nil {
			record.PresetID = inv.PresetID
		}
		e.tracker(record)
	}
	severity := logging.SeverityInfo
	payload := map[string]any{"status": string(report.Status)}
	if report.Err != nil {
		severity = logging.SeverityWarn
		payload["error"] = report.Err.Error()
	}
	e.publisher.Publish(context.Background(), logging.Event{
		Type:     "interaction_completed",
		Severity: severity,
		Category: logging.CategoryInteraction,
		Actor:    logging.EntityRef{ID: report.PluginID, Kind: logging.EntityKindInteraction},
		Payload:  payload,
	})
	return report
}

func executeGuarded(ctx context.Context, plugin Plugin, inv *Invocation, config map[string]any) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return plugin.Execute(ctx, inv, config)
}

// mergeConfig lays the caller's values over the plugin defaults without
// mutating either map.
func mergeConfig(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
