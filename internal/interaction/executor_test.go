package interaction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"emberhollow/client/internal/session"
	"emberhollow/client/stats"
)

// fakePlugin is a scriptable plugin for executor tests.
type fakePlugin struct {
	id          string
	uiMode      UIMode
	schema      string
	defaults    map[string]any
	validateErr error
	available   bool
	execute     func(ctx context.Context, inv *Invocation, config map[string]any) (*Result, error)
}

func (p *fakePlugin) ID() string             { return p.id }
func (p *fakePlugin) UIMode() UIMode         { return p.uiMode }
func (p *fakePlugin) Capabilities() []string { return nil }
func (p *fakePlugin) DefaultConfig() map[string]any {
	if p.defaults == nil {
		return map[string]any{}
	}
	return p.defaults
}
func (p *fakePlugin) ConfigSchema() string              { return p.schema }
func (p *fakePlugin) Validate(map[string]any) error     { return p.validateErr }
func (p *fakePlugin) IsAvailable(*Invocation, map[string]any) bool { return p.available }
func (p *fakePlugin) Execute(ctx context.Context, inv *Invocation, config map[string]any) (*Result, error) {
	if p.execute == nil {
		return nil, nil
	}
	return p.execute(ctx, inv, config)
}

// fakeMutator implements SessionMutator over plain maps.
type fakeMutator struct {
	values  map[string]session.Value
	updates []string
	patches []stats.Patch
	fail    error
}

func key(source, entityID string) string { return source + "/" + entityID }

func (m *fakeMutator) GetStat(source, entityID string) (session.Value, bool) {
	v, ok := m.values[key(source, entityID)]
	return v, ok
}

func (m *fakeMutator) UpdateStat(ctx context.Context, source, entityID string, patch stats.Patch) (*session.Session, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	if m.values == nil {
		m.values = make(map[string]session.Value)
	}
	slot := m.values[key(source, entityID)]
	if slot == nil {
		slot = make(session.Value)
		m.values[key(source, entityID)] = slot
	}
	for field, v := range patch {
		slot[field] += v
	}
	m.updates = append(m.updates, key(source, entityID))
	m.patches = append(m.patches, patch)
	return &session.Session{ID: "s"}, nil
}

func newExecutorWith(t *testing.T, tracker UsageTracker, plugins ...Plugin) *Executor {
	t.Helper()
	registry := NewRegistry()
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			t.Fatalf("Register(%s) failed: %v", p.ID(), err)
		}
	}
	return NewExecutor(registry, tracker, nil)
}

func TestRunUnknownPlugin(t *testing.T) {
	exec := newExecutorWith(t, nil)
	report := exec.Run(context.Background(), "missing", nil, &Invocation{})
	if report.Status != StatusFailure || report.State != StateIdle {
		t.Fatalf("report = %+v, want failure at idle", report)
	}
	var unknown *UnknownPluginError
	if !errors.As(report.Err, &unknown) {
		t.Fatalf("err = %v, want UnknownPluginError", report.Err)
	}
}

func TestRunValidationGateBlocksExecute(t *testing.T) {
	executed := false
	p := &fakePlugin{
		id:          "guarded",
		validateErr: fmt.Errorf("bad config"),
		available:   true,
		execute: func(context.Context, *Invocation, map[string]any) (*Result, error) {
			executed = true
			return &Result{Success: true}, nil
		},
	}
	exec := newExecutorWith(t, nil, p)
	report := exec.Run(context.Background(), "guarded", nil, &Invocation{})
	if report.Status != StatusFailure || report.State != StateValidating {
		t.Fatalf("report = %+v, want failure at validating", report)
	}
	if executed {
		t.Fatalf("Execute ran despite failed validation")
	}
}

func TestRunSchemaValidation(t *testing.T) {
	p := &fakePlugin{
		id:        "schema",
		schema:    `{"type": "object", "required": ["item"], "properties": {"item": {"type": "string"}}}`,
		available: true,
	}
	exec := newExecutorWith(t, nil, p)

	report := exec.Run(context.Background(), "schema", map[string]any{}, &Invocation{})
	if report.Status != StatusFailure || report.State != StateValidating {
		t.Fatalf("missing required key passed schema: %+v", report)
	}

	report = exec.Run(context.Background(), "schema", map[string]any{"item": "bread"}, &Invocation{})
	if report.Status != StatusNeutral {
		t.Fatalf("valid config rejected: %+v", report)
	}
}

func TestRunAvailabilityGate(t *testing.T) {
	p := &fakePlugin{id: "closed", available: false}
	exec := newExecutorWith(t, nil, p)
	report := exec.Run(context.Background(), "closed", nil, &Invocation{})
	if report.Status != StatusFailure || report.State != StateCheckingAvailability {
		t.Fatalf("report = %+v, want failure at availability check", report)
	}
	var unavailable *AvailabilityError
	if !errors.As(report.Err, &unavailable) {
		t.Fatalf("err = %v, want AvailabilityError", report.Err)
	}
}

func TestRunOutcomeClassification(t *testing.T) {
	cases := []struct {
		name    string
		execute func(context.Context, *Invocation, map[string]any) (*Result, error)
		want    Status
	}{
		{"error is failure", func(context.Context, *Invocation, map[string]any) (*Result, error) {
			return nil, fmt.Errorf("boom")
		}, StatusFailure},
		{"nil result is neutral", func(context.Context, *Invocation, map[string]any) (*Result, error) {
			return nil, nil
		}, StatusNeutral},
		{"success result", func(context.Context, *Invocation, map[string]any) (*Result, error) {
			return &Result{Success: true}, nil
		}, StatusSuccess},
		{"unsuccessful result is failure", func(context.Context, *Invocation, map[string]any) (*Result, error) {
			return &Result{Success: false, Message: "nope"}, nil
		}, StatusFailure},
	}
	for _, tc := range cases {
		p := &fakePlugin{id: "outcome", available: true, execute: tc.execute}
		exec := newExecutorWith(t, nil, p)
		report := exec.Run(context.Background(), "outcome", nil, &Invocation{})
		if report.Status != tc.want {
			t.Fatalf("%s: status = %q, want %q", tc.name, report.Status, tc.want)
		}
		if report.State != StateCompleted {
			t.Fatalf("%s: state = %q, want completed", tc.name, report.State)
		}
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	p := &fakePlugin{
		id:        "panics",
		available: true,
		execute: func(context.Context, *Invocation, map[string]any) (*Result, error) {
			panic("kaboom")
		},
	}
	exec := newExecutorWith(t, nil, p)
	report := exec.Run(context.Background(), "panics", nil, &Invocation{})
	if report.Status != StatusFailure {
		t.Fatalf("panic not classified as failure: %+v", report)
	}
	var execErr *ExecutionError
	if !errors.As(report.Err, &execErr) {
		t.Fatalf("err = %v, want ExecutionError", report.Err)
	}
}

func TestRunFeedsUsageTracker(t *testing.T) {
	var records []UsageRecord
	p := &fakePlugin{id: "tracked", available: true, execute: func(context.Context, *Invocation, map[string]any) (*Result, error) {
		return &Result{Success: true}, nil
	}}
	exec := newExecutorWith(t, func(r UsageRecord) { records = append(records, r) }, p)

	exec.Run(context.Background(), "tracked", nil, &Invocation{PresetID: "evening-route"})
	if len(records) != 1 {
		t.Fatalf("tracker called %d times, want 1", len(records))
	}
	if records[0].PluginID != "tracked" || records[0].PresetID != "evening-route" || records[0].Status != StatusSuccess {
		t.Fatalf("record = %+v", records[0])
	}
}

func TestMergeConfigOverridesDefaults(t *testing.T) {
	defaults := map[string]any{"quantity": float64(1), "item": "bread"}
	merged := mergeConfig(defaults, map[string]any{"quantity": float64(3)})
	if merged["quantity"] != float64(3) || merged["item"] != "bread" {
		t.Fatalf("merged = %v", merged)
	}
	if defaults["quantity"] != float64(1) {
		t.Fatalf("mergeConfig mutated the defaults map")
	}
}
