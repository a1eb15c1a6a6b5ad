package cli

import (
	"strings"
	"testing"

	"github.com/forgelabs/forgemon/pkg/models"
)

func TestErrorsCommand_NilMonitor(t *testing.T) {
	origMonitor := Monitor
	defer func() { Monitor = origMonitor }()
	Monitor = nil

	if err := errorsCmd.RunE(errorsCmd, nil); err == nil {
		t.Fatal("expected error when Monitor is nil")
	}
}

func TestErrorsCommand_RendersReport(t *testing.T) {
	origMonitor := Monitor
	origJSON := errorsJSON
	defer func() {
		Monitor = origMonitor
		errorsJSON = origJSON
	}()
	errorsJSON = false

	Monitor = &mockSystem{
		getStatusFn: func() models.SystemStatus {
			return models.SystemStatus{
				Errors: models.ErrorReport{
					TotalErrors:  7,
					ErrorRate:    1.5,
					RecoveryRate: 50,
					Categories: map[models.ErrorCategory]models.CategoryStats{
						models.CategoryNetwork: {Total: 2, Resolved: 1, Unresolved: 1},
					},
					TopErrors: []models.TrackedError{
						{Count: 5, Category: models.CategoryNetwork, Severity: models.SeverityHigh, Message: "ECONNRESET"},
					},
					CriticalErrors: []models.TrackedError{
						{ID: "abc123", Message: "state corrupted"},
					},
				},
			}
		},
	}

	if err := errorsCmd.RunE(errorsCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTrackErrorCommand_Records(t *testing.T) {
	origMonitor := Monitor
	origCategory := trackCategory
	origSeverity := trackSeverity
	defer func() {
		Monitor = origMonitor
		trackCategory = origCategory
		trackSeverity = origSeverity
	}()
	trackCategory = "network"
	trackSeverity = "high"

	var capturedMessage string
	var capturedSeverity models.ErrorSeverity
	Monitor = &mockSystem{
		trackErrorFn: func(message string, category models.ErrorCategory, severity models.ErrorSeverity, _ map[string]string) models.TrackedError {
			capturedMessage = message
			capturedSeverity = severity
			return models.TrackedError{ID: "id-1", Category: category, Severity: severity, Count: 1}
		},
	}

	if err := trackErrorCmd.RunE(trackErrorCmd, []string{"ECONNRESET"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capturedMessage != "ECONNRESET" {
		t.Errorf("captured message = %q", capturedMessage)
	}
	if capturedSeverity != models.SeverityHigh {
		t.Errorf("captured severity = %q, want high", capturedSeverity)
	}
}

func TestTrackErrorCommand_RejectsInvalidSeverity(t *testing.T) {
	origMonitor := Monitor
	origSeverity := trackSeverity
	defer func() {
		Monitor = origMonitor
		trackSeverity = origSeverity
	}()
	trackSeverity = "apocalyptic"

	Monitor = &mockSystem{}

	err := trackErrorCmd.RunE(trackErrorCmd, []string{"boom"})
	if err == nil {
		t.Fatal("expected error for invalid severity")
	}
	if !strings.Contains(err.Error(), "invalid severity") {
		t.Errorf("unexpected error: %v", err)
	}
}
