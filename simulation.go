package client

import (
	"context"
	"time"

	"emberhollow/client/internal/hooks"
	"emberhollow/client/logging"
)

// Simulation drives the fixed-rate tick loop: each tick runs the hook
// registry's phases against a fresh session snapshot, and the world clock
// advances every few ticks through the coordinator so plugins see time move.
type Simulation struct {
	service   *Service
	counters  *TelemetryCounters
	publisher logging.Publisher

	mode        hooks.RunIn
	tickRate    int
	minutes     int64
	advanceEach int
}

func NewSimulation(cfg Config, service *Service, counters *TelemetryCounters, publisher logging.Publisher) *Simulation {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	tickRate := cfg.TickRateHz
	if tickRate <= 0 {
		tickRate = DefaultConfig().TickRateHz
	}
	return &Simulation{
		service:     service,
		counters:    counters,
		publisher:   publisher,
		mode:        cfg.RunInMode(),
		tickRate:    tickRate,
		minutes:     cfg.WorldMinutesPerTick,
		advanceEach: cfg.WorldAdvanceTicks,
	}
}

// Run blocks until the context is cancelled.
func (sim *Simulation) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(sim.tickRate))
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			sim.step(ctx, tick)
		}
	}
}

func (sim *Simulation) step(ctx context.Context, tick uint64) {
	started := time.Now()

	snapshot := sim.service.Session()
	var worldTime int64
	if snapshot != nil {
		worldTime = snapshot.WorldTime
	}

	events := sim.service.Hooks().RunTick(hooks.TickContext{
		Context:   ctx,
		Tick:      tick,
		Mode:      sim.mode,
		WorldTime: worldTime,
		Session:   snapshot,
	})

	if sim.advanceEach > 0 && sim.minutes > 0 && tick%uint64(sim.advanceEach) == 0 && snapshot != nil {
		if _, err := sim.service.AdvanceWorldTime(ctx, sim.minutes); err != nil {
			sim.publisher.Publish(ctx, logging.Event{
				Type:     "world_advance_failed",
				Severity: logging.SeverityWarn,
				Category: logging.CategorySystem,
				Tick:     tick,
				Payload:  map[string]any{"error": err.Error()},
			})
		}
	}

	if sim.counters != nil {
		sim.counters.RecordTick(time.Since(started), len(events))
	}
}
