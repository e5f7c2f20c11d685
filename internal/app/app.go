// Copyright 2026 © The ArchenaAI Authors
// SPDX-License-Identifier: Apache-2.0

// Package app wires the kernel packages into a running service from a
// loaded configuration.
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/actions"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/agents"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/config"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/core"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/journal"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/kernel"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/llm"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/mcp"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/memory"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/orchestration"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/pipeline"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/resilience"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/server"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/skills/builtin"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/telemetry"
)

// ServiceName identifies the process in telemetry.
const ServiceName = "archena-kernel"

// Version is stamped at build time.
var Version = "dev"

// ShutdownGrace bounds the HTTP drain on shutdown.
const ShutdownGrace = 10 * time.Second

// App is the assembled kernel service.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Bus          *messaging.InMemoryBus
	Connector    *llm.ProviderConnector
	Skills       *skills.Registry
	Kernel       *kernel.Kernel
	Actions      *actions.Registry
	Memory       *memory.VectorMemory
	Journal      journal.Journal
	Orchestrator *orchestration.Orchestrator
	Router       *agents.Router
	Listener     *agents.BusListener
	Health       *core.DefaultHealthCheckProvider
	Metrics      *telemetry.ErrorMetrics

	metricsHandler http.Handler
	closers        []func(context.Context) error
}

// New builds every component described by cfg. On error, whatever was
// already opened is released.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	if err = a.initTelemetry(); err != nil {
		return nil, err
	}
	if a.Metrics, err = telemetry.NewErrorMetrics(); err != nil {
		return nil, err
	}

	a.Bus = messaging.NewInMemoryBus(
		messaging.WithBufferSize(cfg.Bus.BufferSize),
		messaging.WithBusLogger(logger),
	)
	a.closers = append(a.closers, func(context.Context) error { return a.Bus.Close() })
	a.Health = core.NewDefaultHealthCheckProvider(5 * time.Second)
	a.Health.RegisterChecker("bus", core.PingHealthChecker(func(ctx context.Context) error {
		return a.Bus.Publish(ctx, "health", nil)
	}))

	if err = a.initJournal(); err != nil {
		return nil, err
	}
	if err = a.initSkills(); err != nil {
		return nil, err
	}
	if err = a.initActions(ctx); err != nil {
		return nil, err
	}
	if err = a.initMemory(); err != nil {
		return nil, err
	}
	if err = a.initAgents(); err != nil {
		return nil, err
	}
	logger.Info("app.ready",
		slog.String("provider", cfg.Kernel.Provider),
		slog.String("model", cfg.Kernel.Model),
		slog.Int("skills", len(a.Skills.Descriptors())),
		slog.Int("actions", len(a.Actions.List())),
		slog.Any("agents", a.Router.Agents()),
	)
	return a, nil
}

func (a *App) initTelemetry() error {
	if !a.Config.Kernel.EnableTelemetry {
		return nil
	}
	providers, err := telemetry.InitWithConfig(ServiceName, Version, telemetry.Config{
		Exporter:     a.Config.Telemetry.Exporter,
		OTLPEndpoint: a.Config.Telemetry.OTLPEndpoint,
		OTLPInsecure: a.Config.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	a.metricsHandler = providers.Handler
	a.closers = append(a.closers, providers.Shutdown)
	return nil
}

func (a *App) initJournal() error {
	if a.Config.Journal.Path == "" {
		a.Journal = journal.NewMemoryJournal()
		return nil
	}
	j, err := journal.Open(a.Config.Journal.Path)
	if err != nil {
		return err
	}
	a.Journal = j
	a.closers = append(a.closers, func(context.Context) error { return j.Close() })
	a.Health.RegisterChecker("journal", core.PingHealthChecker(j.Ping))
	return nil
}

func (a *App) initSkills() error {
	cfg := a.Config
	executor, err := pipeline.NewDefault(pipeline.Options{
		Logger:            a.Logger,
		EnableTracing:     cfg.Kernel.EnableTelemetry,
		EnableMetrics:     cfg.Kernel.EnableTelemetry,
		EnableResilience:  true,
		StepTimeout:       cfg.Pipeline.Timeout,
		BreakerThreshold:  cfg.Pipeline.BreakerFailures,
		BreakerOpenPeriod: cfg.Pipeline.BreakerBreak,
		RetryAttempts:     cfg.Pipeline.RetryAttempts,
		RetryDelay:        cfg.Pipeline.RetryDelay,
		OnBreakerChange: func(name string, _, to resilience.CircuitBreakerState) {
			a.Metrics.RecordCircuitBreakerState(context.Background(), name, breakerGauge(to))
		},
	})
	if err != nil {
		return err
	}
	a.Skills = skills.NewRegistry(executor, skills.WithLogger(a.Logger))
	executor.Use(skills.NewValidationBehavior(a.Skills, cfg.Kernel.Model, a.Logger))

	if a.Connector, err = NewConnector(cfg.Kernel, a.Logger); err != nil {
		return err
	}
	if err = builtin.RegisterAll(a.Skills, a.Connector); err != nil {
		return err
	}
	if cfg.Skills.Dir != "" {
		n, err := builtin.RegisterDir(a.Skills, cfg.Skills.Dir, a.Connector, a.Logger)
		if err != nil {
			return err
		}
		a.Logger.Info("app.skills.loaded", slog.String("dir", cfg.Skills.Dir), slog.Int("count", n))
	}
	a.Kernel = kernel.New(a.Skills, kernel.WithLogger(a.Logger))
	return nil
}

func (a *App) initActions(ctx context.Context) error {
	a.Actions = actions.NewRegistry()
	for _, srv := range a.Config.MCP.Servers {
		var (
			client *mcp.Client
			err    error
		)
		switch srv.Transport {
		case "http":
			client, err = mcp.ConnectHTTP(ctx, srv.URL)
		default:
			client, err = mcp.ConnectStdio(ctx, srv.Command, srv.Args)
		}
		if err != nil {
			return errors.New(errors.CodeTransportError, "connect mcp server", err).WithContext("server", srv.Name)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		if _, err := mcp.ImportTools(ctx, client, srv.Name, a.Actions, a.Logger); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) initMemory() error {
	if !a.Config.Kernel.EnableMemory {
		return nil
	}
	vm, closeStore, err := NewMemory(a.Config.Memory, a.Logger)
	if err != nil {
		return err
	}
	a.Memory = vm
	a.closers = append(a.closers, func(context.Context) error { return closeStore() })
	return nil
}

func (a *App) initAgents() error {
	cfg := a.Config
	sink := orchestration.MultiSink{a.Journal, messaging.NewEventPublisher(a.Bus, cfg.Bus.EventsTopic)}

	orchOpts := []orchestration.Option{
		orchestration.WithToolInterceptor(actions.NewPlanner(a.Actions, a.Logger)),
		orchestration.WithEventSink(sink),
		orchestration.WithLogger(a.Logger),
	}
	var writer agents.MemoryWriter
	if a.Memory != nil {
		orchOpts = append(orchOpts, orchestration.WithMemory(a.Memory))
		writer = a.Memory
	}
	a.Orchestrator = orchestration.New(a.Kernel, orchOpts...)

	profiles := agents.DefaultProfiles()
	if cfg.Agents.ProfilesPath != "" {
		var err error
		if profiles, err = agents.LoadProfiles(cfg.Agents.ProfilesPath, profiles); err != nil {
			return err
		}
	}
	list, err := agents.NewDefaults(profiles, a.Orchestrator, writer,
		agents.WithTransport(a.Bus),
		agents.WithResponseTopic(cfg.Bus.ResponsesTopic),
		agents.WithLogger(a.Logger),
	)
	if err != nil {
		return err
	}

	a.Router = agents.NewRouter(
		agents.WithErrorTransport(a.Bus, cfg.Bus.ResponsesTopic),
		agents.WithRouterEvents(sink),
		agents.WithRouterMetrics(a.Metrics),
		agents.WithRouterLogger(a.Logger),
	)
	for _, ag := range list {
		if err := a.Router.Register(ag); err != nil {
			return err
		}
	}
	a.Listener = agents.NewBusListener(a.Bus, a.Router, cfg.Bus.RequestsTopic, a.Logger)
	return nil
}

// Server returns the HTTP ingress over this app.
func (a *App) Server() *server.Server {
	return server.New(a.Router,
		server.WithSkills(a.Skills),
		server.WithJournal(a.Journal),
		server.WithTransport(a.Bus, a.Config.Bus.RequestsTopic),
		server.WithHealth(a.Health),
		server.WithMetricsHandler(a.metricsHandler),
		server.WithErrorMetrics(a.Metrics),
		server.WithLogger(a.Logger),
	)
}

// Run serves until ctx is done or a component fails: the bus listener,
// the HTTP server and, when w is set, the config watcher, whose reloads
// adjust the log level.
func (a *App) Run(ctx context.Context, w *config.Watcher) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Listener.Start(gctx) })
	g.Go(func() error { return a.Server().ListenAndServe(gctx, a.Config.HTTP.Addr, ShutdownGrace) })
	if w != nil {
		w.OnChange(func(c *config.Config) {
			telemetry.SetLogLevel(c.Log.Level)
		})
		g.Go(func() error { return w.Run(gctx) })
	}
	err := g.Wait()
	a.Router.Wait()
	return err
}

// Close releases components in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return stderrors.Join(errs...)
}

func breakerGauge(s resilience.CircuitBreakerState) int64 {
	switch s {
	case resilience.StateOpen:
		return telemetry.CircuitOpen
	case resilience.StateHalfOpen:
		return telemetry.CircuitHalfOpen
	}
	return telemetry.CircuitClosed
}
