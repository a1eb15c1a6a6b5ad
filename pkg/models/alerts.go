package models

import "time"

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Well-known alert types raised by the orchestrator's escalation policy.
// Components may raise additional free-form types.
const (
	AlertHealthDegradation      = "health_degradation"
	AlertHealthFailure          = "health_failure"
	AlertPerformanceDegradation = "performance_degradation"
	AlertHighErrorRate          = "high_error_rate"
	AlertLowRecoveryRate        = "low_recovery_rate"
	AlertCategorySaturation     = "category_saturation"
	AlertCriticalErrors         = "critical_errors"
	AlertDeploymentFailure      = "deployment_failure"
	AlertResourceExhaustion     = "resource_exhaustion"
)

// Alert is a discrete, severity-tagged notification raised when a metric or
// report crosses a configured threshold. Metadata is an opaque key-value bag
// not interpreted by the core.
type Alert struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Severity     AlertSeverity     `json:"severity"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Count        int               `json:"count"`
	Acknowledged bool              `json:"acknowledged"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Notification is a batch of active alerts emitted on the alert check cadence.
type Notification struct {
	Alerts    []Alert   `json:"alerts"`
	Timestamp time.Time `json:"timestamp"`
}

// RemediationIntent signals that an alert indicates automatable recovery.
// It is forwarded by the orchestrator only when auto-recovery is enabled.
type RemediationIntent struct {
	AlertID   string    `json:"alert_id"`
	AlertType string    `json:"alert_type"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
