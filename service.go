package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"emberhollow/client/internal/api"
	"emberhollow/client/internal/hooks"
	"emberhollow/client/internal/interaction"
	"emberhollow/client/internal/session"
	"emberhollow/client/internal/storage"
	"emberhollow/client/internal/update"
	"emberhollow/client/logging"
	"emberhollow/client/stats"
)

// Service is the facade the HTTP layer and the simulation loop talk to. It
// owns the current location/scene and ties the coordinator, the stat
// adapters, the interaction executors, and the hook registry together. It is
// also the SessionMutator handed to interaction plugins.
type Service struct {
	cfg       Config
	store     *session.Store
	coord     *update.Coordinator
	statsReg  *stats.Registry
	exec      *interaction.Executor
	slots     *interaction.SlotExecutor
	catalog   *interaction.Registry
	hookReg   *hooks.Registry
	remote    *api.Client // nil in local-only operation
	cache     *storage.Local
	counters  *TelemetryCounters
	publisher logging.Publisher

	mu       sync.Mutex
	location string
	scene    string
}

// ServiceDeps collects the collaborators wired up in internal/app.
type ServiceDeps struct {
	Store        *session.Store
	Coordinator  *update.Coordinator
	Stats        *stats.Registry
	Interactions *interaction.Registry
	Hooks        *hooks.Registry
	Remote       *api.Client
	Cache        *storage.Local
	Counters     *TelemetryCounters
	Publisher    logging.Publisher
}

func NewService(cfg Config, deps ServiceDeps) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	counters := deps.Counters
	if counters == nil {
		counters = NewTelemetryCounters()
	}

	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		coord:     deps.Coordinator,
		statsReg:  deps.Stats,
		catalog:   deps.Interactions,
		hookReg:   deps.Hooks,
		remote:    deps.Remote,
		cache:     deps.Cache,
		counters:  counters,
		publisher: publisher,
	}
	s.exec = interaction.NewExecutor(deps.Interactions, counters.TrackUsage, publisher)
	s.slots = interaction.NewSlotExecutor(s.exec, deps.Interactions, interaction.SlotCallbacks{
		DialogueOpened: s.dialogueOpened,
		NotifySuccess:  s.notify("interaction_succeeded", logging.SeverityInfo),
		NotifyError:    s.notify("interaction_failed", logging.SeverityWarn),
	})
	return s
}

// Store exposes the session store for watch wiring.
func (s *Service) Store() *session.Store { return s.store }

// Hooks exposes the plugin hook registry.
func (s *Service) Hooks() *hooks.Registry { return s.hookReg }

// Session returns a clone of the current session, or nil before load.
func (s *Service) Session() *session.Session { return s.store.Current() }

// StatSources lists the registered stat adapter sources.
func (s *Service) StatSources() []string { return s.statsReg.Sources() }

// LocalOnly reports whether the client runs without a configured authority.
func (s *Service) LocalOnly() bool { return s.coord.LocalOnly() }

// Telemetry returns the current counter snapshot.
func (s *Service) Telemetry() TelemetrySnapshot { return s.counters.Snapshot() }

// Interactions lists the registered interaction plugins.
func (s *Service) Interactions() []interaction.Descriptor { return s.catalog.List() }

// LoadSession brings a session into the store: from the authority when one is
// configured, falling back to the local cache when the authority cannot be
// reached, and finally to a fresh session so local-only play always starts.
// Session-loaded hooks fire once the session is in the store.
func (s *Service) LoadSession(ctx context.Context) (*session.Session, error) {
	loaded, source, err := s.fetchSession(ctx)
	if err != nil {
		return nil, err
	}

	s.store.Publish(loaded)
	s.saveCache(ctx, loaded)
	s.publisher.Publish(ctx, logging.Event{
		Type:     "session_loaded",
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Actor:    logging.EntityRef{ID: loaded.ID, Kind: logging.EntityKindSession},
		Payload:  map[string]any{"source": source, "version": loaded.Version},
	})

	s.hookReg.FireSessionLoaded(hooks.LifecycleContext{
		Context:   ctx,
		WorldTime: loaded.WorldTime,
		Session:   loaded.Clone(),
	})
	return loaded.Clone(), nil
}

func (s *Service) fetchSession(ctx context.Context) (*session.Session, string, error) {
	if s.remote != nil {
		loaded, err := s.remote.FetchSession(ctx, s.cfg.SessionID)
		if err == nil {
			return loaded, "authority", nil
		}
		s.publisher.Publish(ctx, logging.Event{
			Type:     "session_fetch_failed",
			Severity: logging.SeverityWarn,
			Category: logging.CategorySession,
			Payload:  map[string]any{"session": s.cfg.SessionID, "error": err.Error()},
		})
		if s.cache != nil {
			cached, cacheErr := s.cache.LoadLocalSession(ctx, s.cfg.SessionID)
			if cacheErr == nil {
				return cached, "cache", nil
			}
			if !errors.Is(cacheErr, storage.ErrNotCached) {
				return nil, "", fmt.Errorf("load session %s: %w", s.cfg.SessionID, cacheErr)
			}
		}
		return nil, "", fmt.Errorf("load session %s: %w", s.cfg.SessionID, err)
	}

	if s.cache != nil {
		cached, err := s.cache.LoadLocalSession(ctx, s.cfg.SessionID)
		if err == nil {
			return cached, "cache", nil
		}
		if !errors.Is(err, storage.ErrNotCached) {
			return nil, "", fmt.Errorf("load session %s: %w", s.cfg.SessionID, err)
		}
	}
	return &session.Session{ID: s.cfg.SessionID}, "fresh", nil
}

// GetStat reads the current value of a stat through its adapter.
func (s *Service) GetStat(source, entityID string) (session.Value, bool) {
	adapter, ok := s.statsReg.Get(source)
	if !ok {
		return nil, false
	}
	current := s.store.Current()
	if current == nil {
		return nil, false
	}
	return adapter.Get(current, entityID)
}

// UpdateStat routes a logical stat patch through the optimistic coordinator.
func (s *Service) UpdateStat(ctx context.Context, source, entityID string, patch stats.Patch) (*session.Session, error) {
	adapter, ok := s.statsReg.Get(source)
	if !ok {
		return nil, fmt.Errorf("unknown stat source %q", source)
	}
	confirmed, err := s.coord.Apply(ctx,
		func(base *session.Session) *session.Session {
			return adapter.Set(base, entityID, patch)
		},
		adapter.BuildSessionPatch(patch, entityID))
	if err != nil {
		return nil, err
	}
	s.saveCache(ctx, confirmed)
	return confirmed, nil
}

// SetFlag writes one flag through the coordinator (last-writer-wins).
func (s *Service) SetFlag(ctx context.Context, path []string, value any) (*session.Session, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("flag path required")
	}
	ops := session.Patch{{
		Path:  append([]string{"flags"}, path...),
		Value: value,
		Mode:  session.OpSet,
	}}
	confirmed, err := s.coord.Apply(ctx,
		func(base *session.Session) *session.Session {
			return session.SetFlag(base, path, value)
		},
		ops)
	if err != nil {
		return nil, err
	}
	s.saveCache(ctx, confirmed)
	return confirmed, nil
}

// AdvanceWorldTime moves the world clock forward. The patch is additive so it
// stays correct across conflict rebases.
func (s *Service) AdvanceWorldTime(ctx context.Context, minutes int64) (*session.Session, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("minutes must be positive, got %d", minutes)
	}
	ops := session.Patch{{
		Path:  []string{"worldTime"},
		Value: float64(minutes),
		Mode:  session.OpAdd,
	}}
	confirmed, err := s.coord.Apply(ctx,
		func(base *session.Session) *session.Session {
			return session.AdvanceWorldTime(base, minutes)
		},
		ops)
	if err != nil {
		return nil, err
	}
	s.saveCache(ctx, confirmed)
	return confirmed, nil
}

// RunInteraction executes one interaction by id against a target.
func (s *Service) RunInteraction(ctx context.Context, id string, config map[string]any, actorID, targetID string) interaction.RunReport {
	return s.exec.Run(ctx, id, config, s.invocation(actorID, targetID, ""))
}

// RunSlot executes every enabled interaction bound to a slot.
func (s *Service) RunSlot(ctx context.Context, slotID, actorID, targetID string, bindings []interaction.SlotInteraction) []interaction.RunReport {
	return s.slots.RunSlot(ctx, s.invocation(actorID, targetID, slotID), bindings)
}

// EnterLocation records the new location and fires the location hooks.
func (s *Service) EnterLocation(ctx context.Context, locationID string) []hooks.GameEvent {
	s.mu.Lock()
	s.location = locationID
	s.mu.Unlock()
	return s.hookReg.FireLocationEntered(s.lifecycleContext(ctx, locationID, ""))
}

// StartScene records the active scene and fires the scene-started hooks.
func (s *Service) StartScene(ctx context.Context, sceneID string) []hooks.GameEvent {
	s.mu.Lock()
	s.scene = sceneID
	location := s.location
	s.mu.Unlock()
	return s.hookReg.FireSceneStarted(s.lifecycleContext(ctx, location, sceneID))
}

// EndScene clears the active scene and fires the scene-ended hooks.
func (s *Service) EndScene(ctx context.Context) []hooks.GameEvent {
	s.mu.Lock()
	sceneID := s.scene
	s.scene = ""
	location := s.location
	s.mu.Unlock()
	if sceneID == "" {
		return nil
	}
	return s.hookReg.FireSceneEnded(s.lifecycleContext(ctx, location, sceneID))
}

// Location reports the current location id.
func (s *Service) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Scene reports the active scene id, empty when none is running.
func (s *Service) Scene() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

func (s *Service) invocation(actorID, targetID, slotID string) *interaction.Invocation {
	return &interaction.Invocation{
		Session:  s.store.Current(),
		ActorID:  actorID,
		TargetID: targetID,
		SlotID:   slotID,
		Mutator:  s,
		RequestScene: func(sceneID string) {
			s.StartScene(context.Background(), sceneID)
		},
	}
}

func (s *Service) lifecycleContext(ctx context.Context, locationID, sceneID string) hooks.LifecycleContext {
	current := s.store.Current()
	var worldTime int64
	if current != nil {
		worldTime = current.WorldTime
	}
	return hooks.LifecycleContext{
		Context:    ctx,
		WorldTime:  worldTime,
		Session:    current,
		LocationID: locationID,
		SceneID:    sceneID,
	}
}

func (s *Service) dialogueOpened(targetID, pluginID string) {
	s.hookReg.Bus().Publish(hooks.GameEvent{
		Type:     "dialogue_opened",
		Category: hooks.CategoryWorld,
		Title:    "Dialogue opened",
		Message:  fmt.Sprintf("dialogue with %s", targetID),
		Metadata: map[string]any{"target": targetID, "plugin": pluginID},
	})
}

func (s *Service) notify(eventType string, severity logging.Severity) func(pluginID, message string) {
	return func(pluginID, message string) {
		s.publisher.Publish(context.Background(), logging.Event{
			Type:     logging.EventType(eventType),
			Severity: severity,
			Category: logging.CategoryInteraction,
			Actor:    logging.EntityRef{ID: pluginID, Kind: logging.EntityKindInteraction},
			Payload:  map[string]any{"message": message},
		})
	}
}

// saveCache persists the session best-effort; a cache failure is logged and
// counted, never surfaced to the caller.
func (s *Service) saveCache(ctx context.Context, snapshot *session.Session) {
	if s.cache == nil || snapshot == nil {
		return
	}
	if err := s.cache.SaveLocalSession(ctx, snapshot); err != nil {
		s.counters.RecordCacheWriteFailure()
		s.publisher.Publish(ctx, logging.Event{
			Type:     "session_cache_write_failed",
			Severity: logging.SeverityWarn,
			Category: logging.CategorySystem,
			Payload:  map[string]any{"session": snapshot.ID, "error": err.Error()},
		})
	}
}
