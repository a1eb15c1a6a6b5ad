// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the monitoring system as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forgelabs/forgemon/internal/monitor"
	"github.com/forgelabs/forgemon/pkg/models"
)

// Server wraps the monitoring system and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	system monitor.System
}

// NewServer creates a new MCP server over the given monitoring system.
func NewServer(system monitor.System, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{system: system}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "forgemon", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getStatusInput struct{}

type getStatusOutput struct {
	Running       bool    `json:"running"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	HealthScore   int     `json:"health_score"`
	HealthStatus  string  `json:"health_status"`
	Trend         string  `json:"trend"`
	Operations    int     `json:"operations"`
	ErrorRatePct  float64 `json:"error_rate_pct"`
	TrackedErrors int     `json:"tracked_errors"`
	ActiveAlerts  int     `json:"active_alerts"`
}

type generateReportInput struct {
	IncludeDiagnostics bool `json:"include_diagnostics,omitempty" jsonschema:"also run the full (expensive) diagnostic battery"`
}

type generateReportOutput struct {
	Report models.MonitoringReport `json:"report"`
}

type runDiagnosticsInput struct{}

type runDiagnosticsOutput struct {
	Passed          int                       `json:"passed"`
	Failed          int                       `json:"failed"`
	Recommendations []string                  `json:"recommendations,omitempty"`
	Results         []models.DiagnosticResult `json:"results"`
}

type trackErrorInput struct {
	Message  string `json:"message" jsonschema:"required,the error message"`
	Category string `json:"category,omitempty" jsonschema:"error category (ui, backend, integration, state, agent, command, file_system, network, validation, unknown); classified from the message when omitted"`
	Severity string `json:"severity,omitempty" jsonschema:"error severity (low, medium, high, critical); defaults to medium"`
}

type trackErrorOutput struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type acknowledgeAlertInput struct {
	AlertID string `json:"alert_id" jsonschema:"required,the id of the alert to acknowledge"`
}

type acknowledgeAlertOutput struct {
	Message string `json:"message"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_status",
		Description: "Get a cheap synchronous monitoring snapshot: health score, trend, performance aggregates, tracked errors, and active alert count.",
	}, s.handleGetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "generate_report",
		Description: "Run a fresh health probe and return the full monitoring report, optionally with a complete diagnostic battery.",
	}, s.handleGenerateReport)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "run_diagnostics",
		Description: "Run the 10-probe diagnostic battery (filesystem, layout, dependencies, configuration, state, commands, git, network, memory, disk).",
	}, s.handleRunDiagnostics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "track_error",
		Description: "Record an error occurrence. Identical (category, message) occurrences are deduplicated into one counted entry.",
	}, s.handleTrackError)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_active_alerts",
		Description: "List the currently active (unacknowledged, unexpired) alerts.",
	}, s.handleGetAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "acknowledge_alert",
		Description: "Acknowledge an active alert by id, removing it from the active set.",
	}, s.handleAcknowledgeAlert)
}

// --- Tool handlers ---

func (s *Server) handleGetStatus(_ context.Context, _ *gomcp.CallToolRequest, _ getStatusInput) (*gomcp.CallToolResult, getStatusOutput, error) {
	status := s.system.GetStatus()

	out := getStatusOutput{
		Running:       status.Running,
		UptimeSeconds: status.Uptime.Seconds(),
		Operations:    status.Performance.TotalOperations,
		ErrorRatePct:  status.Performance.ErrorRate,
		TrackedErrors: status.Errors.TotalErrors,
		ActiveAlerts:  status.ActiveAlerts,
	}
	if status.Health != nil {
		out.HealthScore = status.Health.OverallScore
		out.HealthStatus = string(status.Health.Status)
	}
	if status.Trend != nil {
		out.Trend = string(status.Trend.Direction)
	}
	return nil, out, nil
}

func (s *Server) handleGenerateReport(ctx context.Context, _ *gomcp.CallToolRequest, input generateReportInput) (*gomcp.CallToolResult, generateReportOutput, error) {
	report := s.system.GenerateReport(ctx, input.IncludeDiagnostics)
	return nil, generateReportOutput{Report: report}, nil
}

func (s *Server) handleRunDiagnostics(ctx context.Context, _ *gomcp.CallToolRequest, _ runDiagnosticsInput) (*gomcp.CallToolResult, runDiagnosticsOutput, error) {
	report := s.system.RunDiagnostics(ctx)
	out := runDiagnosticsOutput{
		Passed:          report.Passed,
		Failed:          report.Failed,
		Recommendations: report.Recommendations,
		Results:         report.Results,
	}
	return nil, out, nil
}

func (s *Server) handleTrackError(_ context.Context, _ *gomcp.CallToolRequest, input trackErrorInput) (*gomcp.CallToolResult, trackErrorOutput, error) {
	if input.Message == "" {
		return errorResult("message is required"), trackErrorOutput{}, nil
	}
	if input.Severity != "" {
		valid := map[string]bool{"low": true, "medium": true, "high": true, "critical": true}
		if !valid[input.Severity] {
			return errorResult(fmt.Sprintf("invalid severity %q: must be one of low, medium, high, critical", input.Severity)), trackErrorOutput{}, nil
		}
	}

	tracked := s.system.TrackError(input.Message,
		models.ErrorCategory(input.Category), models.ErrorSeverity(input.Severity), nil)

	out := trackErrorOutput{
		ID:       tracked.ID,
		Category: string(tracked.Category),
		Severity: string(tracked.Severity),
		Count:    tracked.Count,
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	alerts := s.system.ActiveAlerts()

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:        a.ID,
			Type:      a.Type,
			Severity:  string(a.Severity),
			Title:     a.Title,
			Message:   a.Message,
			Count:     a.Count,
			Timestamp: a.Timestamp.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleAcknowledgeAlert(_ context.Context, _ *gomcp.CallToolRequest, input acknowledgeAlertInput) (*gomcp.CallToolResult, acknowledgeAlertOutput, error) {
	if input.AlertID == "" {
		return errorResult("alert_id is required"), acknowledgeAlertOutput{}, nil
	}
	if !s.system.AcknowledgeAlert(input.AlertID) {
		return errorResult(fmt.Sprintf("no active alert with id %s", input.AlertID)), acknowledgeAlertOutput{}, nil
	}
	return nil, acknowledgeAlertOutput{
		Message: fmt.Sprintf("alert %s acknowledged", input.AlertID),
	}, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
