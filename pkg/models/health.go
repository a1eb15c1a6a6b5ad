// Package models contains the shared data model for the forgemon monitoring
// system: health snapshots, performance metrics, tracked errors, alerts, and
// diagnostic reports exchanged between components and external consumers.
package models

import "time"

// CheckType identifies one of the recurring health probes.
type CheckType string

const (
	CheckFilesystem       CheckType = "filesystem"
	CheckDirectories      CheckType = "directories"
	CheckCoreModules      CheckType = "core_modules"
	CheckStateFreshness   CheckType = "state_freshness"
	CheckAgentDefinitions CheckType = "agent_definitions"
	CheckMemory           CheckType = "memory"
	CheckCommandInventory CheckType = "command_inventory"
	CheckAutomationConfig CheckType = "automation_config"
)

// HealthStatus classifies a probe result or the overall system health.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusCritical HealthStatus = "critical"
	StatusFailed   HealthStatus = "failed"
)

// HealthCheckResult is the outcome of a single probe. Results are produced
// fresh every cycle and never mutated afterwards.
type HealthCheckResult struct {
	CheckType CheckType         `json:"check_type"`
	Status    HealthStatus      `json:"status"`
	Score     int               `json:"score"`
	Latency   time.Duration     `json:"latency"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// SystemHealth is the weighted aggregate of one probe cycle. Snapshots are
// swapped by reference; readers never observe a partially built value.
type SystemHealth struct {
	OverallScore    int                 `json:"overall_score"`
	Status          HealthStatus        `json:"status"`
	Checks          []HealthCheckResult `json:"checks"`
	Uptime          time.Duration       `json:"uptime"`
	Recommendations []string            `json:"recommendations,omitempty"`
	Timestamp       time.Time           `json:"timestamp"`
}

// StatusChange records a transition of the overall health status between
// consecutive cycles.
type StatusChange struct {
	From      HealthStatus `json:"from"`
	To        HealthStatus `json:"to"`
	Score     int          `json:"score"`
	Timestamp time.Time    `json:"timestamp"`
}

// TrendDirection summarizes how health evolved over the recent history window.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
	TrendStable    TrendDirection = "stable"
)

// HealthTrend compares the first and second half of the last few snapshots.
type HealthTrend struct {
	Direction      TrendDirection `json:"direction"`
	Delta          float64        `json:"delta"`
	CriticalCycles int            `json:"critical_cycles"`
	SampleSize     int            `json:"sample_size"`
}
