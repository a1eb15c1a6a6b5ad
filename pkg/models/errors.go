package models

import "time"

// ErrorCategory buckets tracked errors for recovery-strategy lookup and
// reporting. It is never used for control flow.
type ErrorCategory string

const (
	CategoryUI          ErrorCategory = "ui"
	CategoryBackend     ErrorCategory = "backend"
	CategoryIntegration ErrorCategory = "integration"
	CategoryState       ErrorCategory = "state"
	CategoryAgent       ErrorCategory = "agent"
	CategoryCommand     ErrorCategory = "command"
	CategoryFileSystem  ErrorCategory = "file_system"
	CategoryNetwork     ErrorCategory = "network"
	CategoryValidation  ErrorCategory = "validation"
	CategoryUnknown     ErrorCategory = "unknown"
)

// ErrorSeverity orders tracked errors for prioritization. Severity only ever
// escalates on repeat occurrences.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// severityRank maps severities to a comparable order.
var severityRank = map[ErrorSeverity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b ErrorSeverity) ErrorSeverity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// TrackedError is a deduplicated, count-accumulating record of a recurring
// error condition. Identity: same (category, message prefix) always maps to
// the same ID.
type TrackedError struct {
	ID               string            `json:"id"`
	Category         ErrorCategory     `json:"category"`
	Severity         ErrorSeverity     `json:"severity"`
	Message          string            `json:"message"`
	Stack            string            `json:"stack,omitempty"`
	Context          map[string]string `json:"context,omitempty"`
	Recovered        bool              `json:"recovered"`
	RecoveryAttempts int               `json:"recovery_attempts"`
	FirstOccurrence  time.Time         `json:"first_occurrence"`
	LastOccurrence   time.Time         `json:"last_occurrence"`
	Count            int               `json:"count"`
}

// RecoveryActionType enumerates the automatic remediation actions.
type RecoveryActionType string

const (
	ActionRetry    RecoveryActionType = "retry"
	ActionReset    RecoveryActionType = "reset"
	ActionRollback RecoveryActionType = "rollback"
	ActionAlert    RecoveryActionType = "alert"
	ActionIgnore   RecoveryActionType = "ignore"
)

// RecoveryStrategy is the per-category policy governing automatic remediation.
type RecoveryStrategy struct {
	Category    ErrorCategory      `json:"category" yaml:"category"`
	Action      RecoveryActionType `json:"action" yaml:"action"`
	MaxAttempts int                `json:"max_attempts" yaml:"max_attempts"`
	BackoffMs   int                `json:"backoff_ms" yaml:"backoff_ms"`
}

// RecoveryAction is dispatched when a recovery attempt fires after backoff.
type RecoveryAction struct {
	ErrorID   string             `json:"error_id"`
	Category  ErrorCategory      `json:"category"`
	Action    RecoveryActionType `json:"action"`
	Attempt   int                `json:"attempt"`
	Timestamp time.Time          `json:"timestamp"`
}

// CategoryStats aggregates the tracked errors of one category.
type CategoryStats struct {
	Total                   int                   `json:"total"`
	Resolved                int                   `json:"resolved"`
	Unresolved              int                   `json:"unresolved"`
	AverageRecoveryAttempts float64               `json:"average_recovery_attempts"`
	BySeverity              map[ErrorSeverity]int `json:"by_severity"`
}

// ErrorReport is the on-demand aggregate over all tracked errors.
type ErrorReport struct {
	TotalErrors    int                             `json:"total_errors"`
	ErrorRate      float64                         `json:"error_rate"`
	Categories     map[ErrorCategory]CategoryStats `json:"categories"`
	TopErrors      []TrackedError                  `json:"top_errors"`
	RecoveryRate   float64                         `json:"recovery_rate"`
	CriticalErrors []TrackedError                  `json:"critical_errors"`
	Timestamp      time.Time                       `json:"timestamp"`
}
