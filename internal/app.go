// Package internal provides the App struct that wires all components of the
// forgemon monitoring system together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/forgelabs/forgemon/internal/alerting"
	"github.com/forgelabs/forgemon/internal/cli"
	"github.com/forgelabs/forgemon/internal/config"
	"github.com/forgelabs/forgemon/internal/diag"
	"github.com/forgelabs/forgemon/internal/errtrack"
	"github.com/forgelabs/forgemon/internal/health"
	"github.com/forgelabs/forgemon/internal/monitor"
	"github.com/forgelabs/forgemon/internal/perf"
)

// App holds all service dependencies for the forgemon monitoring system.
type App struct {
	BasePath string
	Logger   *zap.Logger
	Level    zap.AtomicLevel
	Config   *config.Config

	// Components
	Health   health.Monitor
	Perf     perf.Monitor
	Errors   errtrack.Tracker
	Alerts   alerting.System
	Diag     diag.Tools
	EventLog monitor.EventLog

	// Orchestrator
	Monitor monitor.System
}

// NewApp creates and wires all components of the forgemon monitoring system.
// basePath is the project root containing the .forge directory.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Logging ---
	// The atomic level is shared with the diagnostic tools so debug mode can
	// raise and restore it at runtime.
	app.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stderr), app.Level)
	app.Logger = zap.New(core)

	// --- Configuration ---
	mgr := config.NewManager(basePath)
	cfg, err := mgr.Load()
	if err != nil {
		app.Logger.Warn("falling back to default configuration", zap.Error(err))
		cfg = config.Default(basePath)
	}
	if err := mgr.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	app.Config = cfg

	// --- Components ---
	app.Health = health.NewMonitor(app.Logger, cfg.ProjectPath, health.Options{
		Interval: cfg.HealthCheckInterval,
	})
	app.Perf = perf.NewMonitor(app.Logger, perf.Options{
		ReportInterval: cfg.PerformanceReportInterval,
	})

	var store *errtrack.Store
	if cfg.PersistMetrics {
		store = errtrack.NewStore(filepath.Join(cfg.ProjectPath, ".forge", "monitoring", "errors.json"))
	}
	app.Errors = errtrack.NewTracker(app.Logger, errtrack.Options{
		ReportInterval: cfg.ErrorReportInterval,
		Store:          store,
		Strategies:     cfg.Recovery,
	})

	// Recovery-strategy overrides follow .forgemon.yaml edits without a
	// restart.
	mgr.Watch(func(updated *config.Config) {
		for _, strategy := range updated.Recovery {
			app.Errors.SetStrategy(strategy)
		}
		app.Logger.Info("configuration reloaded",
			zap.Int("recovery_overrides", len(updated.Recovery)))
	})

	var notifier alerting.Notifier
	if cfg.SlackWebhookURL != "" {
		notifier = alerting.NewSlackNotifier(cfg.SlackWebhookURL)
	}
	app.Alerts = alerting.NewSystem(app.Logger, alerting.Options{
		CheckInterval: cfg.AlertCheckInterval,
		Expiry:        cfg.AlertExpiry,
		Notifier:      notifier,
	})

	app.Diag = diag.NewTools(app.Logger, diag.Options{
		BasePath:        cfg.ProjectPath,
		NetworkProbeURL: cfg.NetworkProbeURL,
		Level:           app.Level,
		Health:          app.Health,
		Perf:            app.Perf,
		Errors:          app.Errors,
	})

	// --- Event log ---
	eventLogPath := filepath.Join(cfg.ProjectPath, ".forge", "monitoring", "events.jsonl")
	app.EventLog, err = monitor.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: monitoring runs without the durable log.
		app.Logger.Warn("disabling event log", zap.String("path", eventLogPath), zap.Error(err))
		app.EventLog = nil
	}

	// --- Orchestrator ---
	app.Monitor = monitor.NewSystem(app.Logger, cfg, monitor.Components{
		Health:   app.Health,
		Perf:     app.Perf,
		Errors:   app.Errors,
		Alerts:   app.Alerts,
		Diag:     app.Diag,
		EventLog: app.EventLog,
	})

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Cfg = cfg
	cli.Monitor = app.Monitor

	return app, nil
}

// Close releases resources held by the App: the event log file handle and the
// buffered logger. It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the project root for monitoring. It checks the
// FORGEMON_HOME env var, then walks up from the current directory looking for
// a .forge directory, and falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("FORGEMON_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".forge")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
