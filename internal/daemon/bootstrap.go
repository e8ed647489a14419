// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/nerve/internal/api"
	"github.com/ManuGH/nerve/internal/config"
	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/core"
	"github.com/ManuGH/nerve/internal/health"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/sensor"
	"github.com/ManuGH/nerve/internal/telemetry"
)

// Options adjust Build for callers that need to replace a collaborator.
type Options struct {
	// Shutdown runs when the controller performs a self-shutdown.
	Shutdown func()
	// Motors replaces the simulated motors.
	Motors motor.Motors
	// MetricsHandler replaces promhttp.Handler().
	MetricsHandler http.Handler
}

// Daemon is a fully wired system ready to Run.
type Daemon struct {
	*App
	Core    *core.Core
	Journal journal.Store
	Health  *health.Manager
}

// Build wires every component described by cfg. Resources opened before a
// failure are released before Build returns.
func Build(ctx context.Context, cfg config.AppConfig, opts Options) (_ *Daemon, err error) {
	logger := log.WithComponent("daemon")

	var cleanups []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanups) - 1; i >= 0; i-- {
			_ = cleanups[i](context.WithoutCancel(ctx))
		}
	}()

	catalogue, err := cfg.Catalogue()
	if err != nil {
		return nil, fmt.Errorf("catalogue: %w", err)
	}
	subscribers, err := cfg.SubscriberKinds()
	if err != nil {
		return nil, fmt.Errorf("subscribers: %w", err)
	}

	provider, err := telemetry.NewProvider(ctx, cfg.TelemetryConfig())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	cleanups = append(cleanups, provider.Shutdown)

	store, err := journal.Open(ctx, cfg.JournalConfig())
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	cleanups = append(cleanups, func(context.Context) error { return store.Close() })

	motors := opts.Motors
	if motors == nil {
		motors = motor.NewSim(cfg.MotorConfig())
	}

	ctrlOpts := []controller.Option{
		controller.WithStandbyHook(func(standby bool) {
			logger.Info().Bool("standby", standby).Msg("standby changed")
		}),
	}
	if opts.Shutdown != nil {
		ctrlOpts = append(ctrlOpts, controller.WithShutdown(opts.Shutdown))
	}

	c, err := core.New(core.Config{
		Catalogue:     catalogue,
		QueueCapacity: cfg.Queue.Capacity,
		Arbitrator:    cfg.ArbitratorConfig(),
		Controller:    cfg.ControllerConfig(),
		Bus:           cfg.BusConfig(),
		Effects:       cfg.EffectConfig(),
	}, core.Deps{
		Motors:            motors,
		Store:             store,
		ControllerOptions: ctrlOpts,
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(subscribers))
	for name := range subscribers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := c.RegisterSubscriber(name, subscribers[name]); err != nil {
			return nil, fmt.Errorf("register subscriber %s: %w", name, err)
		}
	}

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	mgr := NewManager(ManagerConfig{
		Logger:         logger,
		MetricsAddr:    cfg.Metrics.ListenAddr,
		MetricsHandler: metricsHandler,
	})
	// LIFO: the journal closes before the tracer flushes.
	mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	mgr.RegisterShutdownHook("journal", func(context.Context) error { return store.Close() })

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewJournalChecker(store))
	hm.RegisterChecker(health.NewBusChecker(c.Bus().InFlight, cfg.Bus.Capacity))
	hm.RegisterChecker(health.NewArbitratorChecker(c.Arbitrator().Enabled))

	app := NewApp(logger, mgr, c)
	if cfg.API.ListenAddr != "" {
		app.Add("api", api.New(api.Config{
			ListenAddr:     cfg.API.ListenAddr,
			RateLimit:      cfg.API.RateLimit,
			TracingService: "nerve",
			Health:         hm,
		}, c))
	}
	if clk := cfg.Sensors.Clock; clk.Enabled {
		var sink sensor.Sink = sensor.SinkFunc(c.BroadcastSink)
		if clk.RatePerSecond > 0 {
			sink = sensor.NewThrottle("clock", clk.RatePerSecond, 1, sink)
		}
		app.Add("clock", sensor.NewClock(clk.Period, clk.TockModulo, sink))
	}
	if rnd := cfg.Sensors.Random; rnd.Enabled {
		var sink sensor.Sink = sensor.SinkFunc(c.ArbitrationSink)
		sink = sensor.NewDebouncer("random", rnd.Debounce, sink)
		if rnd.RatePerSecond > 0 {
			sink = sensor.NewThrottle("random", rnd.RatePerSecond, 1, sink)
		}
		app.Add("random", sensor.NewRandomPublisher("random", rnd.MaxInterval, rnd.Seed, sink))
	}

	logger.Info().
		Str("version", cfg.Version).
		Int("events", catalogue.Len()).
		Strs("subscribers", names).
		Str("journal", cfg.Journal.Backend).
		Msg("system assembled")

	return &Daemon{App: app, Core: c, Journal: store, Health: hm}, nil
}
