package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/forgelabs/forgemon/pkg/models"
)

// profileCadence is the reporting interval used while profiling.
const profileCadence = time.Second

// HealthSource supplies the last health snapshot for log bundles.
type HealthSource interface {
	Current() *models.SystemHealth
}

// PerfSource supplies performance aggregates and drives the profiling window.
type PerfSource interface {
	Start(interval time.Duration) error
	Stop()
	Report() models.PerformanceReport
}

// ErrorSource supplies error aggregates and receives the trace-errors toggle.
type ErrorSource interface {
	Report() models.ErrorReport
	SetCaptureStacks(enabled bool)
}

// Tools runs one-shot diagnostics and owns the debug-mode toggles.
type Tools interface {
	// RunDiagnostics executes the full probe battery. Probes never abort the
	// battery; each failure becomes a failed result.
	RunDiagnostics(ctx context.Context) models.DiagnosticReport

	// RunTest executes a single probe by name.
	RunTest(ctx context.Context, test models.DiagnosticTest) models.DiagnosticResult

	// EnableDebugMode applies the flag bundle: verbose raises the shared log
	// level to debug, trace_errors turns on stack capture. Enabling while
	// already enabled replaces the flags.
	EnableDebugMode(flags models.DebugFlags)

	// DisableDebugMode restores the previous log level and stack capture
	// setting, and writes a log bundle if collect_logs was set.
	DisableDebugMode()

	DebugEnabled() (models.DebugFlags, bool)

	// ProfilePerformance samples performance at one-second cadence for the
	// window and returns the resulting report.
	ProfilePerformance(ctx context.Context, window time.Duration) (models.PerformanceReport, error)

	// CollectLogs writes a bundle of current health, performance, error and
	// diagnostic state for offline support and returns its path.
	CollectLogs(ctx context.Context) (string, error)

	SystemInfo(ctx context.Context) models.SystemInfo
}

// Options configures Tools.
type Options struct {
	// BasePath is the project root containing the .forge directory.
	BasePath string

	// NetworkProbeURL is the endpoint used by the network reachability probe.
	NetworkProbeURL string

	// Level is the shared log level raised and restored by debug mode.
	Level zap.AtomicLevel

	Health HealthSource
	Perf   PerfSource
	Errors ErrorSource
}

type tools struct {
	logger     *zap.Logger
	basePath   string
	networkURL string
	level      zap.AtomicLevel
	health     HealthSource
	perf       PerfSource
	errors     ErrorSource

	mu         sync.Mutex
	debugFlags models.DebugFlags
	debugOn    bool
	priorLevel zapcore.Level
}

// NewTools builds the diagnostic toolset.
func NewTools(logger *zap.Logger, opts Options) Tools {
	return &tools{
		logger:     logger,
		basePath:   opts.BasePath,
		networkURL: opts.NetworkProbeURL,
		level:      opts.Level,
		health:     opts.Health,
		perf:       opts.Perf,
		errors:     opts.Errors,
	}
}

func (t *tools) RunDiagnostics(ctx context.Context) models.DiagnosticReport {
	report := models.DiagnosticReport{Timestamp: time.Now()}
	for _, test := range testOrder {
		res := t.runTest(ctx, test)
		report.Results = append(report.Results, res)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
			if rec, ok := diagRecommendations[test]; ok {
				report.Recommendations = append(report.Recommendations, rec)
			}
		}
	}
	report.Recommendations = append(report.Recommendations, rollups(report.Results)...)
	report.SystemInfo = t.collectSystemInfo(ctx)

	t.logger.Info("diagnostics completed",
		zap.Int("passed", report.Passed), zap.Int("failed", report.Failed))
	return report
}

func (t *tools) RunTest(ctx context.Context, test models.DiagnosticTest) models.DiagnosticResult {
	return t.runTest(ctx, test)
}

func (t *tools) EnableDebugMode(flags models.DebugFlags) {
	t.mu.Lock()
	if !t.debugOn {
		t.priorLevel = t.level.Level()
	}
	t.debugOn = true
	t.debugFlags = flags
	prior := t.priorLevel
	t.mu.Unlock()

	if flags.Verbose {
		t.level.SetLevel(zapcore.DebugLevel)
	} else {
		t.level.SetLevel(prior)
	}
	if t.errors != nil {
		t.errors.SetCaptureStacks(flags.TraceErrors)
	}
	t.logger.Info("debug mode enabled",
		zap.Bool("verbose", flags.Verbose),
		zap.Bool("trace_errors", flags.TraceErrors),
		zap.Bool("profile_performance", flags.ProfilePerformance),
		zap.Bool("collect_logs", flags.CollectLogs))
}

func (t *tools) DisableDebugMode() {
	t.mu.Lock()
	if !t.debugOn {
		t.mu.Unlock()
		return
	}
	t.debugOn = false
	flags := t.debugFlags
	prior := t.priorLevel
	t.debugFlags = models.DebugFlags{}
	t.mu.Unlock()

	t.level.SetLevel(prior)
	if t.errors != nil {
		t.errors.SetCaptureStacks(false)
	}
	if flags.CollectLogs {
		if path, err := t.CollectLogs(context.Background()); err != nil {
			t.logger.Error("collecting logs on debug exit", zap.Error(err))
		} else {
			t.logger.Info("debug log bundle written", zap.String("path", path))
		}
	}
	t.logger.Info("debug mode disabled")
}

func (t *tools) DebugEnabled() (models.DebugFlags, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.debugFlags, t.debugOn
}

func (t *tools) ProfilePerformance(ctx context.Context, window time.Duration) (models.PerformanceReport, error) {
	if t.perf == nil {
		return models.PerformanceReport{}, fmt.Errorf("no performance source configured")
	}
	if window <= 0 {
		window = 30 * time.Second
	}
	if err := t.perf.Start(profileCadence); err != nil {
		return models.PerformanceReport{}, fmt.Errorf("starting profiling window: %w", err)
	}
	defer t.perf.Stop()

	t.logger.Info("profiling performance", zap.Duration("window", window))
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return t.perf.Report(), ctx.Err()
	}
	return t.perf.Report(), nil
}

func (t *tools) CollectLogs(ctx context.Context) (string, error) {
	diagnostics := t.RunDiagnostics(ctx)
	bundle := models.LogBundle{
		Timestamp:   time.Now(),
		Diagnostics: &diagnostics,
	}
	if t.health != nil {
		bundle.Health = t.health.Current()
	}
	if t.perf != nil {
		bundle.Performance = t.perf.Report()
	}
	if t.errors != nil {
		bundle.Errors = t.errors.Report()
	}

	dir := filepath.Join(t.basePath, ".forge", "monitoring", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log bundle directory: %w", err)
	}

	stamp := fmt.Sprintf("%s-%s",
		bundle.Timestamp.Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(dir, fmt.Sprintf("diagnostics-%s.json", stamp))

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling log bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing log bundle: %w", err)
	}
	return path, nil
}

func (t *tools) SystemInfo(ctx context.Context) models.SystemInfo {
	return t.collectSystemInfo(ctx)
}
