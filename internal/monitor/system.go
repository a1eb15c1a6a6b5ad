package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forgelabs/forgemon/internal/alerting"
	"github.com/forgelabs/forgemon/internal/config"
	"github.com/forgelabs/forgemon/internal/diag"
	"github.com/forgelabs/forgemon/internal/errtrack"
	"github.com/forgelabs/forgemon/internal/health"
	"github.com/forgelabs/forgemon/internal/perf"
	"github.com/forgelabs/forgemon/pkg/models"
)

// averageLatencyLimit is the report-level average above which the orchestrator
// raises a performance degradation alert.
const averageLatencyLimit = time.Second

// errorRateLimitPct is the report-level error percentage with the same role.
const errorRateLimitPct = 10.0

// System is the single entry point external collaborators use: lifecycle,
// pull accessors, and event subscription.
type System interface {
	Start(ctx context.Context) error
	Stop()

	// GetStatus is a cheap synchronous read: last known health plus freshly
	// aggregated (not re-probed) performance and error reports.
	GetStatus() models.SystemStatus

	// GenerateReport forces one fresh health probe and full aggregates.
	// Diagnostics run only when asked; they are expensive.
	GenerateReport(ctx context.Context, includeDiagnostics bool) models.MonitoringReport

	RunDiagnostics(ctx context.Context) models.DiagnosticReport

	TrackMetric(metric models.PerformanceMetric)
	StartOperation(id string, metricType models.MetricType)
	EndOperation(id string, success bool, message string)

	TrackError(message string, category models.ErrorCategory, severity models.ErrorSeverity, context map[string]string) models.TrackedError

	CreateAlert(alertType string, severity models.AlertSeverity, title, message string, metadata map[string]string) models.Alert
	AcknowledgeAlert(id string) bool
	ActiveAlerts() []models.Alert

	Diagnostics() diag.Tools
	Events() EventLog
	AddListener(listener SystemListener)
}

// Components are the wired sub-systems the orchestrator owns. The App
// constructs them; tests may substitute their own.
type Components struct {
	Health   health.Monitor
	Perf     perf.Monitor
	Errors   errtrack.Tracker
	Alerts   alerting.System
	Diag     diag.Tools
	EventLog EventLog
}

type system struct {
	logger *zap.Logger
	cfg    *config.Config
	comps  Components

	mu        sync.Mutex
	listeners []SystemListener
	started   bool
	startedAt time.Time
}

// NewSystem wires the orchestrator into each component's event stream.
func NewSystem(logger *zap.Logger, cfg *config.Config, comps Components) System {
	s := &system{logger: logger, cfg: cfg, comps: comps}
	comps.Health.AddListener(s)
	comps.Perf.AddListener(s)
	comps.Errors.AddListener(s)
	comps.Alerts.AddListener(s)
	return s
}

func (s *system) AddListener(listener SystemListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *system) snapshotListeners() []SystemListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SystemListener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

// appendEvent writes one line to the durable event log. Failures are logged
// and swallowed; the log must never block monitoring.
func (s *system) appendEvent(eventType string, data map[string]any) {
	if s.comps.EventLog == nil {
		return
	}
	err := s.comps.EventLog.Write(Event{Time: time.Now().UTC(), Type: eventType, Data: data})
	if err != nil {
		s.logger.Warn("appending monitoring event",
			zap.String("type", eventType), zap.Error(err))
	}
}

// Start boots every sub-component, runs one synchronous health probe, and
// records the start timestamp. Starting twice is a logged no-op.
func (s *system) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn("monitoring system already started")
		return nil
	}
	s.started = true
	s.startedAt = time.Now()
	started := s.startedAt
	s.mu.Unlock()

	if s.cfg.EnableAlerts {
		if err := s.comps.Alerts.Start(); err != nil {
			return err
		}
	}
	if err := s.comps.Errors.Start(); err != nil {
		return err
	}
	if err := s.comps.Perf.Start(s.cfg.PerformanceReportInterval); err != nil {
		return err
	}
	if err := s.comps.Health.Start(); err != nil {
		return err
	}

	// Establish a baseline before returning.
	s.comps.Health.RunChecks(ctx)

	s.logger.Info("monitoring system started")
	s.appendEvent("system.started", nil)
	for _, l := range s.snapshotListeners() {
		l.OnStarted(started)
	}
	return nil
}

// Stop halts all component timers. Double stop and stop before start are
// logged no-ops.
func (s *system) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.logger.Warn("monitoring system stop called while not running")
		return
	}
	s.started = false
	s.mu.Unlock()

	s.comps.Health.Stop()
	s.comps.Perf.Stop()
	s.comps.Errors.Stop()
	if s.cfg.EnableAlerts {
		s.comps.Alerts.Stop()
	}

	stopped := time.Now()
	s.logger.Info("monitoring system stopped")
	s.appendEvent("system.stopped", nil)
	for _, l := range s.snapshotListeners() {
		l.OnStopped(stopped)
	}
}

func (s *system) GetStatus() models.SystemStatus {
	s.mu.Lock()
	running := s.started
	startedAt := s.startedAt
	s.mu.Unlock()

	status := models.SystemStatus{
		Running:      running,
		Health:       s.comps.Health.Current(),
		Performance:  s.comps.Perf.Report(),
		Errors:       s.comps.Errors.Report(),
		ActiveAlerts: len(s.comps.Alerts.ActiveAlerts()),
		Timestamp:    time.Now(),
	}
	if running {
		status.StartedAt = startedAt
		status.Uptime = time.Since(startedAt)
	}
	trend := s.comps.Health.Trend()
	status.Trend = &trend
	return status
}

func (s *system) GenerateReport(ctx context.Context, includeDiagnostics bool) models.MonitoringReport {
	report := models.MonitoringReport{
		GeneratedAt:  time.Now(),
		Health:       s.comps.Health.RunChecks(ctx),
		Trend:        s.comps.Health.Trend(),
		Performance:  s.comps.Perf.Report(),
		Errors:       s.comps.Errors.Report(),
		ActiveAlerts: s.comps.Alerts.ActiveAlerts(),
	}
	s.mu.Lock()
	if s.started {
		report.Uptime = time.Since(s.startedAt)
	}
	s.mu.Unlock()

	if includeDiagnostics {
		diagnostics := s.comps.Diag.RunDiagnostics(ctx)
		report.Diagnostics = &diagnostics
	}
	return report
}

func (s *system) RunDiagnostics(ctx context.Context) models.DiagnosticReport {
	return s.comps.Diag.RunDiagnostics(ctx)
}

func (s *system) TrackMetric(metric models.PerformanceMetric) {
	s.comps.Perf.RecordMetric(metric)
}

func (s *system) StartOperation(id string, metricType models.MetricType) {
	s.comps.Perf.StartOperation(id, metricType)
}

func (s *system) EndOperation(id string, success bool, message string) {
	s.comps.Perf.EndOperation(id, success, message)
}

func (s *system) TrackError(message string, category models.ErrorCategory, severity models.ErrorSeverity, context map[string]string) models.TrackedError {
	return s.comps.Errors.Track(message, category, severity, context)
}

func (s *system) CreateAlert(alertType string, severity models.AlertSeverity, title, message string, metadata map[string]string) models.Alert {
	return s.comps.Alerts.CreateAlert(alertType, severity, title, message, metadata)
}

func (s *system) AcknowledgeAlert(id string) bool {
	return s.comps.Alerts.Acknowledge(id)
}

func (s *system) ActiveAlerts() []models.Alert {
	return s.comps.Alerts.ActiveAlerts()
}

func (s *system) Diagnostics() diag.Tools { return s.comps.Diag }

func (s *system) Events() EventLog { return s.comps.EventLog }

// raiseAlert applies the enable_alerts gate before creating an alert.
func (s *system) raiseAlert(alertType string, severity models.AlertSeverity, title, message string, metadata map[string]string) {
	if !s.cfg.EnableAlerts {
		return
	}
	s.comps.Alerts.CreateAlert(alertType, severity, title, message, metadata)
}

// --- escalation policy: health events ---

func (s *system) OnHealthUpdate(h models.SystemHealth) {
	s.appendEvent("health.update", map[string]any{
		"score":  h.OverallScore,
		"status": string(h.Status),
	})
	if h.Status == models.StatusCritical || h.Status == models.StatusFailed {
		severity := models.AlertWarning
		if h.Status == models.StatusFailed {
			severity = models.AlertCritical
		}
		s.raiseAlert(models.AlertHealthDegradation, severity,
			"System health degraded",
			fmt.Sprintf("overall health score is %d (%s)", h.OverallScore, h.Status), nil)
	}
	for _, l := range s.snapshotListeners() {
		l.OnHealthUpdate(h)
	}
}

func (s *system) OnStatusChange(change models.StatusChange) {
	s.appendEvent("health.status_change", map[string]any{
		"from":  string(change.From),
		"to":    string(change.To),
		"score": change.Score,
	})
	if change.To == models.StatusFailed {
		s.raiseAlert(models.AlertHealthFailure, models.AlertCritical,
			"System health failed",
			"health status transitioned from "+string(change.From)+" to failed", nil)
	}
	for _, l := range s.snapshotListeners() {
		l.OnStatusChange(change)
	}
}

// --- escalation policy: performance events ---

func (s *system) OnPerformanceReport(report models.PerformanceReport) {
	s.appendEvent("performance.report", map[string]any{
		"total_operations": report.TotalOperations,
		"error_rate":       report.ErrorRate,
		"average_latency":  report.AverageLatency.String(),
	})
	if report.ErrorRate > errorRateLimitPct || report.AverageLatency > averageLatencyLimit {
		s.raiseAlert(models.AlertPerformanceDegradation, models.AlertWarning,
			"Performance degraded",
			"operation error rate or average latency exceeds limits", nil)
	}
	for _, l := range s.snapshotListeners() {
		l.OnPerformanceReport(report)
	}
}

func (s *system) OnPerformanceAlert(alert models.ThresholdAlert) {
	s.appendEvent("performance.alert", map[string]any{
		"metric_type": string(alert.MetricType),
		"name":        alert.Name,
		"severity":    string(alert.Severity),
		"actual":      alert.Actual.String(),
	})
	s.raiseAlert(models.AlertPerformanceDegradation, alert.Severity,
		"Performance threshold exceeded: "+alert.Name, alert.Message,
		map[string]string{"metric_type": string(alert.MetricType)})
	for _, l := range s.snapshotListeners() {
		l.OnPerformanceAlert(alert)
	}
}

// --- escalation policy: error events ---

func (s *system) OnErrorTracked(e models.TrackedError) {
	s.appendEvent("error.tracked", map[string]any{
		"id":       e.ID,
		"category": string(e.Category),
		"severity": string(e.Severity),
		"count":    e.Count,
	})
	// One automatic attempt per tracked error, and only when enabled.
	if s.cfg.EnableAutoRecovery && e.RecoveryAttempts == 0 && !e.Recovered {
		s.comps.Errors.AttemptRecovery(e.ID)
	}
	for _, l := range s.snapshotListeners() {
		l.OnErrorTracked(e)
	}
}

func (s *system) OnErrorRecovered(e models.TrackedError) {
	s.appendEvent("error.recovered", map[string]any{"id": e.ID})
	for _, l := range s.snapshotListeners() {
		l.OnErrorRecovered(e)
	}
}

func (s *system) OnRecoveryAction(action models.RecoveryAction) {
	s.appendEvent("error.recovery_action", map[string]any{
		"error_id": action.ErrorID,
		"action":   string(action.Action),
		"attempt":  action.Attempt,
	})
}

func (s *system) OnErrorReport(report models.ErrorReport) {
	s.appendEvent("error.report", map[string]any{
		"total_errors":  report.TotalErrors,
		"error_rate":    report.ErrorRate,
		"recovery_rate": report.RecoveryRate,
	})
	for _, alert := range errtrack.ThresholdAlerts(report) {
		s.raiseAlert(alert.Type, alert.Severity, alert.Title, alert.Message, alert.Metadata)
	}
	for _, l := range s.snapshotListeners() {
		l.OnErrorReport(report)
	}
}

// --- escalation policy: alerting events ---

func (s *system) OnAlert(alert models.Alert) {
	s.appendEvent("alert.raised", map[string]any{
		"id":       alert.ID,
		"type":     alert.Type,
		"severity": string(alert.Severity),
		"count":    alert.Count,
	})
	for _, l := range s.snapshotListeners() {
		l.OnAlert(alert)
	}
}

func (s *system) OnNotification(n models.Notification) {
	s.appendEvent("alert.notification", map[string]any{"alerts": len(n.Alerts)})
	for _, l := range s.snapshotListeners() {
		l.OnNotification(n)
	}
}

func (s *system) OnRollback(intent models.RemediationIntent) {
	if !s.cfg.EnableAutoRecovery {
		s.logger.Debug("rollback intent dropped, auto-recovery disabled",
			zap.String("alert_id", intent.AlertID))
		return
	}
	s.appendEvent("remediation.rollback", map[string]any{
		"alert_id": intent.AlertID, "alert_type": intent.AlertType,
	})
	for _, l := range s.snapshotListeners() {
		l.OnRollback(intent)
	}
}

func (s *system) OnRestart(intent models.RemediationIntent) {
	if !s.cfg.EnableAutoRecovery {
		s.logger.Debug("restart intent dropped, auto-recovery disabled",
			zap.String("alert_id", intent.AlertID))
		return
	}
	s.appendEvent("remediation.restart", map[string]any{
		"alert_id": intent.AlertID, "alert_type": intent.AlertType,
	})
	for _, l := range s.snapshotListeners() {
		l.OnRestart(intent)
	}
}
