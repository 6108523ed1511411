package client

import (
	"context"
	"path/filepath"
	"testing"

	"emberhollow/client/internal/hooks"
	"emberhollow/client/internal/interaction"
	"emberhollow/client/internal/session"
	"emberhollow/client/internal/storage"
	"emberhollow/client/internal/update"
	"emberhollow/client/stats"
)

type sessionLoadedRecorder struct {
	loads []*session.Session
}

func (*sessionLoadedRecorder) ID() string         { return "load-recorder" }
func (*sessionLoadedRecorder) RunIn() hooks.RunIn { return hooks.RunInGame }
func (r *sessionLoadedRecorder) OnSessionLoaded(lc hooks.LifecycleContext) ([]hooks.GameEvent, error) {
	r.loads = append(r.loads, lc.Session)
	return nil, nil
}

func newLocalService(t *testing.T, cache *storage.Local) (*Service, *sessionLoadedRecorder) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SessionID = "sess-test"

	interactions := interaction.NewRegistry()
	if err := interaction.RegisterBuiltins(interactions); err != nil {
		t.Fatalf("RegisterBuiltins failed: %v", err)
	}

	hookRegistry := hooks.NewRegistry(nil, nil)
	recorder := &sessionLoadedRecorder{}
	if err := hookRegistry.Register(recorder); err != nil {
		t.Fatalf("hook Register failed: %v", err)
	}

	store := session.NewStore(nil)
	coordinator := update.NewCoordinator(nil, store, update.Config{}, nil)

	service := NewService(cfg, ServiceDeps{
		Store:        store,
		Coordinator:  coordinator,
		Stats:        stats.DefaultRegistry(),
		Interactions: interactions,
		Hooks:        hookRegistry,
		Cache:        cache,
	})
	return service, recorder
}

func openTestCache(t *testing.T) *storage.Local {
	t.Helper()
	cache, err := storage.OpenLocal(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenLocal failed: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestLoadSessionStartsFreshWithoutAuthorityOrCache(t *testing.T) {
	service, recorder := newLocalService(t, nil)

	loaded, err := service.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded.ID != "sess-test" || loaded.Version != 0 {
		t.Fatalf("fresh session = %+v", loaded)
	}
	if len(recorder.loads) != 1 {
		t.Fatalf("session-loaded hook fired %d times, want 1", len(recorder.loads))
	}
	if !service.LocalOnly() {
		t.Fatalf("LocalOnly() = false without an authority")
	}
}

func TestLoadSessionResumesFromCache(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()
	cached := &session.Session{ID: "sess-test", Version: 4, WorldTime: 300}
	if err := cache.SaveLocalSession(ctx, cached); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	service, _ := newLocalService(t, cache)
	loaded, err := service.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded.Version != 4 || loaded.WorldTime != 300 {
		t.Fatalf("resumed session = %+v, want the cached copy", loaded)
	}
}

func TestUpdateStatThroughAdapters(t *testing.T) {
	cache := openTestCache(t)
	service, _ := newLocalService(t, cache)
	ctx := context.Background()
	if _, err := service.LoadSession(ctx); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	if _, err := service.UpdateStat(ctx, "relationship", "npc:ada", stats.Patch{"affinity": 35}); err != nil {
		t.Fatalf("UpdateStat failed: %v", err)
	}
	value, ok := service.GetStat("relationship", "npc:ada")
	if !ok || value["affinity"] != 35 {
		t.Fatalf("GetStat = %v %v, want affinity 35", value, ok)
	}

	if _, err := service.UpdateStat(ctx, "unknown-source", "x", stats.Patch{"y": 1}); err == nil {
		t.Fatalf("unknown source accepted")
	}

	// Writes persist to the local cache.
	saved, err := cache.LoadLocalSession(ctx, "sess-test")
	if err != nil {
		t.Fatalf("cache read failed: %v", err)
	}
	if raw, ok := session.Flag(saved, []string{"relationships", "npc:ada", "affinity"}); !ok || raw != float64(35) {
		t.Fatalf("cached session missing the write: %v %v", raw, ok)
	}
}

func TestAdvanceWorldTimeAndFlags(t *testing.T) {
	service, _ := newLocalService(t, nil)
	ctx := context.Background()
	if _, err := service.LoadSession(ctx); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	advanced, err := service.AdvanceWorldTime(ctx, 45)
	if err != nil {
		t.Fatalf("AdvanceWorldTime failed: %v", err)
	}
	if advanced.WorldTime != 45 {
		t.Fatalf("worldTime = %d, want 45", advanced.WorldTime)
	}
	if _, err := service.AdvanceWorldTime(ctx, 0); err == nil {
		t.Fatalf("zero minutes accepted")
	}

	flagged, err := service.SetFlag(ctx, []string{"weather"}, "rain")
	if err != nil {
		t.Fatalf("SetFlag failed: %v", err)
	}
	if flagged.Flags["weather"] != "rain" {
		t.Fatalf("flag not set: %v", flagged.Flags)
	}
	if _, err := service.SetFlag(ctx, nil, "x"); err == nil {
		t.Fatalf("empty flag path accepted")
	}
}

func TestRunInteractionUsesServiceAsMutator(t *testing.T) {
	service, _ := newLocalService(t, nil)
	ctx := context.Background()
	if _, err := service.LoadSession(ctx); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if _, err := service.UpdateStat(ctx, "relationship", "npc:ada", stats.Patch{"affinity": 50}); err != nil {
		t.Fatalf("seed relationship: %v", err)
	}

	report := service.RunInteraction(ctx, interaction.PluginGiveItem, map[string]any{
		"item":                 "bread",
		"quantity":             float64(2),
		"requiredRelationship": float64(25),
	}, "player", "npc:ada")
	if report.Status != interaction.StatusSuccess {
		t.Fatalf("report = %+v, want success", report)
	}

	inventory, ok := service.GetStat("inventory", "npc:ada")
	if !ok || inventory["bread"] != 2 {
		t.Fatalf("inventory = %v %v, want bread 2", inventory, ok)
	}

	snapshot := service.Telemetry()
	if snapshot.InteractionSuccess != 1 {
		t.Fatalf("telemetry success count = %d, want 1", snapshot.InteractionSuccess)
	}
}

func TestRunSlotFallbackStartsNoScene(t *testing.T) {
	service, _ := newLocalService(t, nil)
	ctx := context.Background()
	if _, err := service.LoadSession(ctx); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	reports := service.RunSlot(ctx, "slot-1", "player", "npc:ada", nil)
	if len(reports) != 1 || reports[0].PluginID != interaction.PluginOpenDialogue {
		t.Fatalf("reports = %+v, want one open_dialogue fallback", reports)
	}
	if reports[0].Status != interaction.StatusNeutral {
		t.Fatalf("fallback status = %q, want neutral", reports[0].Status)
	}
}

func TestSceneLifecycle(t *testing.T) {
	service, _ := newLocalService(t, nil)
	ctx := context.Background()
	if _, err := service.LoadSession(ctx); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	service.EnterLocation(ctx, "market")
	if service.Location() != "market" {
		t.Fatalf("location = %q", service.Location())
	}

	service.StartScene(ctx, "haggling")
	if service.Scene() != "haggling" {
		t.Fatalf("scene = %q", service.Scene())
	}

	service.EndScene(ctx)
	if service.Scene() != "" {
		t.Fatalf("scene not cleared: %q", service.Scene())
	}
	// Ending with no active scene is a no-op.
	if events := service.EndScene(ctx); events != nil {
		t.Fatalf("idle EndScene produced events: %v", events)
	}
}
