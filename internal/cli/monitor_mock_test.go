package cli

import (
	"context"
	"time"

	"github.com/forgelabs/forgemon/internal/diag"
	"github.com/forgelabs/forgemon/internal/monitor"
	"github.com/forgelabs/forgemon/pkg/models"
)

// mockSystem implements monitor.System with overridable function fields.
type mockSystem struct {
	getStatusFn        func() models.SystemStatus
	generateReportFn   func(includeDiagnostics bool) models.MonitoringReport
	runDiagnosticsFn   func() models.DiagnosticReport
	trackErrorFn       func(message string, category models.ErrorCategory, severity models.ErrorSeverity, context map[string]string) models.TrackedError
	activeAlertsFn     func() []models.Alert
	acknowledgeAlertFn func(id string) bool
	diagnostics        diag.Tools
}

func (m *mockSystem) Start(_ context.Context) error { return nil }
func (m *mockSystem) Stop()                         {}

func (m *mockSystem) GetStatus() models.SystemStatus {
	if m.getStatusFn != nil {
		return m.getStatusFn()
	}
	return models.SystemStatus{}
}

func (m *mockSystem) GenerateReport(_ context.Context, includeDiagnostics bool) models.MonitoringReport {
	if m.generateReportFn != nil {
		return m.generateReportFn(includeDiagnostics)
	}
	return models.MonitoringReport{}
}

func (m *mockSystem) RunDiagnostics(_ context.Context) models.DiagnosticReport {
	if m.runDiagnosticsFn != nil {
		return m.runDiagnosticsFn()
	}
	return models.DiagnosticReport{}
}

func (m *mockSystem) TrackMetric(_ models.PerformanceMetric)       {}
func (m *mockSystem) StartOperation(_ string, _ models.MetricType) {}
func (m *mockSystem) EndOperation(_ string, _ bool, _ string)      {}

func (m *mockSystem) TrackError(message string, category models.ErrorCategory, severity models.ErrorSeverity, context map[string]string) models.TrackedError {
	if m.trackErrorFn != nil {
		return m.trackErrorFn(message, category, severity, context)
	}
	return models.TrackedError{}
}

func (m *mockSystem) CreateAlert(_ string, _ models.AlertSeverity, _, _ string, _ map[string]string) models.Alert {
	return models.Alert{}
}

func (m *mockSystem) AcknowledgeAlert(id string) bool {
	if m.acknowledgeAlertFn != nil {
		return m.acknowledgeAlertFn(id)
	}
	return false
}

func (m *mockSystem) ActiveAlerts() []models.Alert {
	if m.activeAlertsFn != nil {
		return m.activeAlertsFn()
	}
	return nil
}

func (m *mockSystem) Diagnostics() diag.Tools              { return m.diagnostics }
func (m *mockSystem) Events() monitor.EventLog             { return nil }
func (m *mockSystem) AddListener(_ monitor.SystemListener) {}

// mockDiagTools implements diag.Tools with overridable function fields.
type mockDiagTools struct {
	runTestFn     func(test models.DiagnosticTest) models.DiagnosticResult
	profileFn     func(ctx context.Context, window time.Duration) (models.PerformanceReport, error)
	collectLogsFn func() (string, error)
}

func (m *mockDiagTools) RunDiagnostics(_ context.Context) models.DiagnosticReport {
	return models.DiagnosticReport{}
}

func (m *mockDiagTools) RunTest(_ context.Context, test models.DiagnosticTest) models.DiagnosticResult {
	if m.runTestFn != nil {
		return m.runTestFn(test)
	}
	return models.DiagnosticResult{Test: test, Passed: true}
}

func (m *mockDiagTools) EnableDebugMode(_ models.DebugFlags) {}
func (m *mockDiagTools) DisableDebugMode()                   {}

func (m *mockDiagTools) DebugEnabled() (models.DebugFlags, bool) {
	return models.DebugFlags{}, false
}

func (m *mockDiagTools) ProfilePerformance(ctx context.Context, window time.Duration) (models.PerformanceReport, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, window)
	}
	return models.PerformanceReport{}, nil
}

func (m *mockDiagTools) CollectLogs(_ context.Context) (string, error) {
	if m.collectLogsFn != nil {
		return m.collectLogsFn()
	}
	return "", nil
}

func (m *mockDiagTools) SystemInfo(_ context.Context) models.SystemInfo {
	return models.SystemInfo{}
}
