package client

import (
	"context"
	"sync/atomic"
	"time"

	"emberhollow/client/internal/interaction"
	"emberhollow/client/logging"
)

type TelemetryCounters struct {
	updatesConfirmed   atomic.Uint64
	updateConflicts    atomic.Uint64
	updateRollbacks    atomic.Uint64
	interactionSuccess atomic.Uint64
	interactionFailure atomic.Uint64
	interactionNeutral atomic.Uint64
	eventsEmitted      atomic.Uint64
	ticks              atomic.Uint64
	tickDurationMillis atomic.Int64
	presetRuns         atomic.Uint64
	cacheWriteFailures atomic.Uint64
}

type TelemetrySnapshot struct {
	UpdatesConfirmed   uint64 `json:"updatesConfirmed"`
	UpdateConflicts    uint64 `json:"updateConflicts"`
	UpdateRollbacks    uint64 `json:"updateRollbacks"`
	InteractionSuccess uint64 `json:"interactionSuccess"`
	InteractionFailure uint64 `json:"interactionFailure"`
	InteractionNeutral uint64 `json:"interactionNeutral"`
	EventsEmitted      uint64 `json:"eventsEmitted"`
	Ticks              uint64 `json:"ticks"`
	TickDuration       int64  `json:"tickDurationMillis"`
	PresetRuns         uint64 `json:"presetRuns"`
	CacheWriteFailures uint64 `json:"cacheWriteFailures"`
}

func NewTelemetryCounters() *TelemetryCounters {
	return &TelemetryCounters{}
}

// Observe derives counter updates from the structured event stream so the
// coordinator and registries stay decoupled from telemetry.
func (t *TelemetryCounters) Observe(event logging.Event) {
	switch event.Type {
	case "session_update_confirmed":
		t.updatesConfirmed.Add(1)
	case "session_update_conflict":
		t.updateConflicts.Add(1)
	case "session_update_rollback":
		t.updateRollbacks.Add(1)
	}
}

// WrapPublisher returns a publisher that feeds the counters before
// forwarding to the next publisher.
func (t *TelemetryCounters) WrapPublisher(next logging.Publisher) logging.Publisher {
	if next == nil {
		next = logging.NopPublisher()
	}
	return logging.PublisherFunc(func(ctx context.Context, event logging.Event) {
		t.Observe(event)
		next.Publish(ctx, event)
	})
}

// TrackUsage is the interaction usage callback.
func (t *TelemetryCounters) TrackUsage(record interaction.UsageRecord) {
	switch record.Status {
	case interaction.StatusSuccess:
		t.interactionSuccess.Add(1)
	case interaction.StatusFailure:
		t.interactionFailure.Add(1)
	case interaction.StatusNeutral:
		t.interactionNeutral.Add(1)
	}
	if record.PresetID != "" {
		t.presetRuns.Add(1)
	}
}

func (t *TelemetryCounters) RecordTick(duration time.Duration, events int) {
	t.ticks.Add(1)
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
	if events > 0 {
		t.eventsEmitted.Add(uint64(events))
	}
}

func (t *TelemetryCounters) RecordCacheWriteFailure() {
	t.cacheWriteFailures.Add(1)
}

func (t *TelemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		UpdatesConfirmed:   t.updatesConfirmed.Load(),
		UpdateConflicts:    t.updateConflicts.Load(),
		UpdateRollbacks:    t.updateRollbacks.Load(),
		InteractionSuccess: t.interactionSuccess.Load(),
		InteractionFailure: t.interactionFailure.Load(),
		InteractionNeutral: t.interactionNeutral.Load(),
		EventsEmitted:      t.eventsEmitted.Load(),
		Ticks:              t.ticks.Load(),
		TickDuration:       t.tickDurationMillis.Load(),
		PresetRuns:         t.presetRuns.Load(),
		CacheWriteFailures: t.cacheWriteFailures.Load(),
	}
}
