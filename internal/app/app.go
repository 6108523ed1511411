package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	client "emberhollow/client"
	"emberhollow/client/internal/api"
	"emberhollow/client/internal/hooks"
	"emberhollow/client/internal/interaction"
	clientnet "emberhollow/client/internal/net"
	"emberhollow/client/internal/session"
	"emberhollow/client/internal/storage"
	"emberhollow/client/internal/update"
	"emberhollow/client/logging"
	loggingSinks "emberhollow/client/logging/sinks"
	"emberhollow/client/stats"
)

// Run wires the whole client together and serves until the context ends:
// config, the logging router, the local cache, the registries, the optimistic
// coordinator, the service facade, the subscriber hub, the tick loop, and the
// HTTP surface.
func Run(ctx context.Context) error {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := client.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	for _, note := range cfg.ApplyEnvOverrides() {
		log.Printf("config: %s", note)
	}

	logConfig := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout)},
	}
	if cfg.JournalEnabled {
		journalDir := filepath.Join(cfg.DataDir, "journal")
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "journal",
			Sink: loggingSinks.NewJournal(journalDir, logConfig.Journal.Prefix),
		})
	}
	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			log.Printf("failed to close logging router: %v", cerr)
		}
	}()

	counters := client.NewTelemetryCounters()
	publisher := counters.WrapPublisher(router)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	cache, err := storage.OpenLocal(filepath.Join(cfg.DataDir, "sessions.db"))
	if err != nil {
		return fmt.Errorf("open local cache: %w", err)
	}
	defer cache.Close()

	statRegistry := stats.DefaultRegistry()

	interactions := interaction.NewRegistry()
	if err := interaction.RegisterBuiltins(interactions); err != nil {
		return fmt.Errorf("register interactions: %w", err)
	}

	bus := hooks.NewBus()
	hookRegistry := hooks.NewRegistry(bus, publisher)
	if err := hooks.RegisterBuiltins(hookRegistry); err != nil {
		return fmt.Errorf("register hook plugins: %w", err)
	}

	var remote *api.Client
	if cfg.AuthorityURL != "" {
		remote = api.NewClient(cfg.AuthorityURL, cfg.HTTPTimeout())
	}

	store := session.NewStore(nil)
	var authority update.Authority
	if remote != nil {
		authority = remote
	}
	coordinator := update.NewCoordinator(authority, store, update.Config{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay(),
	}, publisher)

	service := client.NewService(cfg, client.ServiceDeps{
		Store:        store,
		Coordinator:  coordinator,
		Stats:        statRegistry,
		Interactions: interactions,
		Hooks:        hookRegistry,
		Remote:       remote,
		Cache:        cache,
		Counters:     counters,
		Publisher:    publisher,
	})

	if _, err := service.LoadSession(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	hub := client.NewHub(publisher)
	defer hub.Shutdown()
	bus.OnEvent(hub.BroadcastEvent)
	store.Watch(hub.BroadcastSession)

	simCtx, cancelSim := context.WithCancel(ctx)
	defer cancelSim()
	sim := client.NewSimulation(cfg, service, counters, publisher)
	go sim.Run(simCtx)

	handler := clientnet.NewHTTPHandler(service, hub, clientnet.HTTPHandlerConfig{
		TickRate:  cfg.TickRateHz,
		Publisher: publisher,
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	publisher.Publish(ctx, logging.Event{
		Type:     "client_listening",
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload: map[string]any{
			"addr":      cfg.ListenAddr,
			"localOnly": service.LocalOnly(),
		},
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
