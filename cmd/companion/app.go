package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/gin-gonic/gin"
	printingapp "github.com/printbridge/companion/internal/application/printing"
	"github.com/printbridge/companion/internal/application/session"
	appsurface "github.com/printbridge/companion/internal/application/surface"
	"github.com/printbridge/companion/internal/buildinfo"
	"github.com/printbridge/companion/internal/infrastructure/cache"
	"github.com/printbridge/companion/internal/infrastructure/config"
	"github.com/printbridge/companion/internal/infrastructure/logger"
	infra "github.com/printbridge/companion/internal/infrastructure/printing"
	"github.com/printbridge/companion/internal/infrastructure/scheduler"
	surfaceinfra "github.com/printbridge/companion/internal/infrastructure/surface"
	"github.com/printbridge/companion/internal/infrastructure/telemetry"
	"github.com/printbridge/companion/internal/interfaces/http/middleware"
	"github.com/printbridge/companion/internal/interfaces/http/server"
	"go.uber.org/zap"
)

// app holds every long-lived component of a running companion
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider
	logs   *telemetry.LoggerProvider

	store       *cache.SessionStore
	renderer    *infra.ChromedpRenderer
	dispatcher  *infra.Dispatcher
	orch        *appsurface.Orchestrator
	housekeeper *scheduler.Housekeeper
	server      *server.Server
}

// newApp builds the component graph and binds the listener. Nothing runs
// until start.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	built := false
	defer func() {
		if !built {
			a.shutdown(context.WithoutCancel(ctx))
		}
	}()

	if err := a.initObservability(ctx); err != nil {
		return nil, err
	}
	log := a.logger

	log.Info("Starting companion",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", buildinfo.Version),
		zap.String("commit", buildinfo.Commit),
	)

	metrics, err := telemetry.NewPrintMetrics(a.meter.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	// The housekeeper owns the sweep ticker
	a.store = cache.NewSessionStore(cache.SessionStoreConfig{
		TTL:          cfg.Session.TTL,
		SnapshotPath: cfg.Session.SnapshotPath,
		Logger:       log.Named("sessions"),
	})

	runner := infra.NewExecRunner(cfg.Dispatch.CommandTimeout, log.Named("exec"))
	storage, err := infra.NewFileStorage(&infra.FileStorageConfig{
		PreviewDir:   cfg.Dispatch.PreviewDir,
		TransientDir: cfg.Dispatch.TransientDir,
		DesktopDir:   cfg.Dispatch.DesktopDir,
		Logger:       log.Named("storage"),
	})
	if err != nil {
		return nil, err
	}
	strategies := infra.DefaultStrategies(infra.StrategyConfig{
		GOOS:        runtime.GOOS,
		AcrobatPath: cfg.Dispatch.AcrobatPath,
		SumatraPath: cfg.Dispatch.SumatraPath,
		ProgramDirs: programDirs(),
		SpoolWindow: cfg.Dispatch.SpoolWindow,
	}, runner)
	a.dispatcher = infra.NewDispatcher(storage, infra.NewSystemOpener(runner, runtime.GOOS), strategies, infra.DispatcherConfig{
		TransientGrace: cfg.Dispatch.TransientGrace,
		Logger:         log.Named("dispatch"),
		Metrics:        metrics,
	})

	a.renderer, err = infra.NewChromedpRenderer(&infra.ChromedpConfig{
		NavigationTimeout: cfg.Render.NavigationTimeout,
		ReadyTimeout:      cfg.Render.ReadyTimeout,
		DOMReadyGrace:     cfg.Render.DOMReadyGrace,
		SettleDelay:       cfg.Render.SettleDelay,
		ReleaseDelay:      cfg.Render.ReleaseDelay,
		ExecPath:          cfg.Render.ChromePath,
		RemoteURL:         cfg.Render.RemoteURL,
		NoSandbox:         cfg.Render.NoSandbox,
		HideFormControls:  runtime.GOOS == "windows",
		Logger:            log.Named("render"),
		Metrics:           metrics,
	})
	if err != nil {
		return nil, err
	}

	factory := surfaceinfra.NewChromeFactory(&surfaceinfra.WindowConfig{
		UIURL:     cfg.Surface.UIURL,
		ExecPath:  cfg.Surface.ChromePath,
		Width:     cfg.Surface.Width,
		Height:    cfg.Surface.Height,
		NoSandbox: cfg.Render.NoSandbox,
		Logger:    log.Named("window"),
	})
	a.orch = appsurface.NewOrchestrator(factory, a.store, appsurface.Config{
		Cooldown:          cfg.Surface.Cooldown,
		InterRequestDelay: cfg.Surface.InterRequestDelay,
		RevealTimeout:     cfg.Surface.RevealTimeout,
		DataSettleDelay:   cfg.Surface.DataSettleDelay,
		Preload:           cfg.Surface.Preload,
		Logger:            log.Named("surface"),
		Metrics:           metrics,
	})

	ingest := session.NewIngestService(a.store, a.orch, metrics, log)
	printer := printingapp.NewPrintService(a.renderer, a.dispatcher, a.orch,
		&infra.PrinterDirectory{Runner: runner, GOOS: runtime.GOOS}, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := server.NewEngine(server.EngineConfig{
		HTTP: cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Meter:  a.meter.Meter(cfg.Telemetry.ServiceName),
		Logger: log,
	}, server.Deps{
		Name:     buildinfo.Name,
		Version:  buildinfo.Version,
		Ingest:   ingest,
		Print:    printer,
		Surfaces: a.orch,
		Previews: storage,
	})

	a.server, err = server.New(ctx, cfg.HTTP, engine, log)
	if err != nil {
		return nil, err
	}
	if factory.UIURL() == "" {
		factory.SetUIURL(a.server.BaseURL() + "/shell")
	}
	a.orch.SetConnectionInfo(appsurface.ConnectionInfo{
		Port:    a.server.Port(),
		BaseURL: a.server.BaseURL(),
		Version: buildinfo.Version,
	})

	a.housekeeper = scheduler.NewHousekeeper(log.Named("housekeeping"),
		scheduler.SessionSweepTask(a.store, cfg.Session.SweepInterval, log),
		scheduler.PreviewCleanupTask(storage, cfg.Dispatch.PreviewMaxAge, cfg.Dispatch.CleanupInterval, log),
	)

	built = true
	return a, nil
}

// initObservability sets up telemetry providers and the logger. The logger
// is rebuilt once the log bridge exists so entries are also exported.
func (a *app) initObservability(ctx context.Context) error {
	cfg := a.cfg
	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	bootstrap, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = bootstrap

	a.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootstrap)
	if err != nil {
		return err
	}
	if a.logs.IsEnabled() {
		a.logger, err = logger.New(logCfg, telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: a.logs,
			Level:          logger.ParseLevel(cfg.Log.Level),
		}))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	a.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, a.logger)
	if err != nil {
		return err
	}

	a.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, a.logger)
	return err
}

// start begins serving and launches the background workers
func (a *app) start(ctx context.Context) error {
	a.server.Serve()
	if err := a.orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start surface orchestrator: %w", err)
	}
	if err := a.housekeeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start housekeeping: %w", err)
	}
	a.logger.Info("Companion ready",
		zap.String("base_url", a.server.BaseURL()),
		zap.String("snapshot", a.cfg.Session.SnapshotPath),
	)
	return nil
}

// shutdown stops components in reverse dependency order. It tolerates a
// partially built app.
func (a *app) shutdown(ctx context.Context) {
	log := a.logger
	if log == nil {
		log = zap.NewNop()
	}

	// Quitting first so a closing window is destroyed rather than hidden
	if a.orch != nil {
		if err := a.orch.Shutdown(ctx); err != nil {
			log.Error("Error stopping surface orchestrator", zap.Error(err))
		}
	}
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
	}
	if a.housekeeper != nil {
		if err := a.housekeeper.Stop(ctx); err != nil {
			log.Error("Error stopping housekeeping", zap.Error(err))
		}
	}
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(); err != nil {
			log.Warn("Error removing transient files", zap.Error(err))
		}
	}
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			log.Warn("Error closing renderer", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Error("Error writing session snapshot", zap.Error(err))
		}
	}
	if a.meter != nil {
		if err := a.meter.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}

	log.Info("Companion stopped")
	if a.logs != nil {
		_ = a.logs.Shutdown(ctx)
	}
	_ = logger.Sync(log)
}

// programDirs lists the Windows program roots searched for PDF tools
func programDirs() []string {
	if runtime.GOOS != "windows" {
		return nil
	}
	return []string{
		os.Getenv("ProgramFiles"),
		os.Getenv("ProgramFiles(x86)"),
		os.Getenv("LOCALAPPDATA"),
	}
}
