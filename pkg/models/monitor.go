package models

import "time"

// SystemStatus is the cheap synchronous view returned by the orchestrator's
// GetStatus: the last known health plus freshly aggregated (not re-probed)
// performance and error reports.
type SystemStatus struct {
	Running      bool              `json:"running"`
	StartedAt    time.Time         `json:"started_at,omitempty"`
	Uptime       time.Duration     `json:"uptime"`
	Health       *SystemHealth     `json:"health,omitempty"`
	Trend        *HealthTrend      `json:"trend,omitempty"`
	Performance  PerformanceReport `json:"performance"`
	Errors       ErrorReport       `json:"errors"`
	ActiveAlerts int               `json:"active_alerts"`
	Timestamp    time.Time         `json:"timestamp"`
}

// MonitoringReport is the full report produced by GenerateReport. Diagnostics
// is populated only when explicitly requested.
type MonitoringReport struct {
	GeneratedAt  time.Time         `json:"generated_at"`
	Uptime       time.Duration     `json:"uptime"`
	Health       SystemHealth      `json:"health"`
	Trend        HealthTrend       `json:"trend"`
	Performance  PerformanceReport `json:"performance"`
	Errors       ErrorReport       `json:"errors"`
	ActiveAlerts []Alert           `json:"active_alerts"`
	Diagnostics  *DiagnosticReport `json:"diagnostics,omitempty"`
}

// LogBundle is the collected-logs document written for offline support.
type LogBundle struct {
	Timestamp   time.Time         `json:"timestamp"`
	Health      *SystemHealth     `json:"health,omitempty"`
	Performance PerformanceReport `json:"performance"`
	Errors      ErrorReport       `json:"errors"`
	Diagnostics *DiagnosticReport `json:"diagnostics,omitempty"`
}
