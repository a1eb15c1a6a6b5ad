package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/forgelabs/forgemon/pkg/models"
)

// Shared style definitions for command output.
var (
	healthyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	severityCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityInfo     = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
)

func styleForHealth(status models.HealthStatus) lipgloss.Style {
	switch status {
	case models.StatusHealthy:
		return healthyStyle
	case models.StatusDegraded:
		return degradedStyle
	case models.StatusCritical:
		return criticalStyle
	case models.StatusFailed:
		return failedStyle
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity models.AlertSeverity) lipgloss.Style {
	switch severity {
	case models.AlertCritical:
		return severityCritical
	case models.AlertWarning:
		return severityWarning
	case models.AlertInfo:
		return severityInfo
	default:
		return lipgloss.NewStyle()
	}
}
