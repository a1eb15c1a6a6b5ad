package models

import "time"

// MetricType classifies a timed operation.
type MetricType string

const (
	MetricCommand MetricType = "command"
	MetricAgent   MetricType = "agent"
	MetricFileOp  MetricType = "file_op"
	MetricStateOp MetricType = "state_op"
	MetricNetwork MetricType = "network"
	MetricRender  MetricType = "render"
)

// PerformanceMetric is one recorded timing sample.
type PerformanceMetric struct {
	MetricType MetricType        `json:"metric_type"`
	Name       string            `json:"name"`
	Duration   time.Duration     `json:"duration"`
	Success    bool              `json:"success"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// PerformanceStats are derived on demand from a metric buffer, never stored.
type PerformanceStats struct {
	Count         int           `json:"count"`
	TotalDuration time.Duration `json:"total_duration"`
	Average       time.Duration `json:"average"`
	Min           time.Duration `json:"min"`
	Max           time.Duration `json:"max"`
	P50           time.Duration `json:"p50"`
	P90           time.Duration `json:"p90"`
	P99           time.Duration `json:"p99"`
	SuccessRate   float64       `json:"success_rate"`
}

// PerformanceThreshold holds the warning and critical duration limits for one
// metric type.
type PerformanceThreshold struct {
	Warning  time.Duration `json:"warning"`
	Critical time.Duration `json:"critical"`
}

// ThresholdAlert fires when a metric or aggregate crosses its threshold.
type ThresholdAlert struct {
	MetricType MetricType    `json:"metric_type"`
	Name       string        `json:"name"`
	Severity   AlertSeverity `json:"severity"`
	Threshold  time.Duration `json:"threshold"`
	Actual     time.Duration `json:"actual"`
	Aggregate  bool          `json:"aggregate"`
	Message    string        `json:"message"`
	Timestamp  time.Time     `json:"timestamp"`
}

// PerformanceReport is a point-in-time snapshot of per-type stats plus global
// totals, generated on demand or on the report cadence.
type PerformanceReport struct {
	Stats           map[MetricType]PerformanceStats `json:"stats"`
	TotalOperations int                             `json:"total_operations"`
	AverageLatency  time.Duration                   `json:"average_latency"`
	ErrorRate       float64                         `json:"error_rate"`
	Alerts          []ThresholdAlert                `json:"alerts,omitempty"`
	Timestamp       time.Time                       `json:"timestamp"`
}
