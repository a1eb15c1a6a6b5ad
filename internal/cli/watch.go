package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/forgelabs/forgemon/pkg/models"
)

// Watch panel indices.
const (
	panelHealth = iota
	panelPerformance
	panelAlerts
	panelCount
)

// watchRefreshInterval is the auto-refresh cadence of the watch view.
const watchRefreshInterval = 5 * time.Second

type watchModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	status models.SystemStatus
	alerts []models.Alert

	// State.
	loading bool
	err     error
}

// statusLoadedMsg carries loaded data back to the model.
type statusLoadedMsg struct {
	status models.SystemStatus
	alerts []models.Alert
	err    error
}

// refreshTickMsg triggers the periodic reload.
type refreshTickMsg struct{}

// Style definitions.
var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	watchPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	watchActivePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	watchHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				MarginBottom(1)

	watchHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newWatchModel() watchModel {
	return watchModel{
		activePanel: panelHealth,
		loading:     true,
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(watchRefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(loadStatus, scheduleRefresh())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadStatus
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(loadStatus, scheduleRefresh())

	case statusLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = msg.status
		m.alerts = msg.alerts
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := watchTitleStyle.Render(" forgemon ")
	help := watchHelpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	healthPanel := m.renderHealthPanel()
	perfPanel := m.renderPerformancePanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		healthPanel = m.applyPanelStyle(panelHealth, healthPanel, colWidth-4)
		perfPanel = m.applyPanelStyle(panelPerformance, perfPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, healthPanel, perfPanel, alertsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		healthPanel = m.applyPanelStyle(panelHealth, healthPanel, panelWidth)
		perfPanel = m.applyPanelStyle(panelPerformance, perfPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, healthPanel, perfPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m watchModel) applyPanelStyle(panel int, content string, width int) string {
	style := watchPanelStyle
	if m.activePanel == panel {
		style = watchActivePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m watchModel) renderHealthPanel() string {
	var b strings.Builder
	b.WriteString(watchHeaderStyle.Render("Health"))
	b.WriteString("\n")

	if m.status.Health == nil {
		b.WriteString("  No snapshot yet.")
		return b.String()
	}

	h := m.status.Health
	badge := styleForHealth(h.Status).Render(strings.ToUpper(string(h.Status)))
	b.WriteString(fmt.Sprintf("  %s  score %d\n", badge, h.OverallScore))
	if m.status.Trend != nil {
		b.WriteString(fmt.Sprintf("  Trend: %s\n", m.status.Trend.Direction))
	}
	b.WriteString("\n")

	for _, check := range h.Checks {
		label := fmt.Sprintf("  %-18s %3d", check.CheckType, check.Score)
		b.WriteString(styleForHealth(check.Status).Render(label))
		b.WriteString("\n")
	}

	return b.String()
}

func (m watchModel) renderPerformancePanel() string {
	var b strings.Builder
	b.WriteString(watchHeaderStyle.Render("Performance"))
	b.WriteString("\n")

	p := m.status.Performance
	b.WriteString(fmt.Sprintf("  %-14s %d\n", "Operations", p.TotalOperations))
	b.WriteString(fmt.Sprintf("  %-14s %s\n", "Avg latency", p.AverageLatency.Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("  %-14s %.1f%%\n", "Error rate", p.ErrorRate))
	b.WriteString(fmt.Sprintf("  %-14s %d (%.1f/min)\n", "Errors", m.status.Errors.TotalErrors, m.status.Errors.ErrorRate))

	if len(p.Stats) > 0 {
		types := make([]models.MetricType, 0, len(p.Stats))
		for metricType := range p.Stats {
			types = append(types, metricType)
		}
		sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

		b.WriteString("\n")
		for _, metricType := range types {
			stats := p.Stats[metricType]
			b.WriteString(fmt.Sprintf("  %-10s %4d ops, p90 %s\n",
				metricType, stats.Count, stats.P90.Round(time.Millisecond)))
		}
	}

	return b.String()
}

func (m watchModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(watchHeaderStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		badge := styleForSeverity(a.Severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Severity))))
		b.WriteString(fmt.Sprintf("  %s %s (x%d)\n", badge, a.Title, a.Count))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

// alertSeverityRank orders alerts most severe first for display.
func alertSeverityRank(s models.AlertSeverity) int {
	switch s {
	case models.AlertCritical:
		return 0
	case models.AlertWarning:
		return 1
	case models.AlertInfo:
		return 2
	default:
		return 3
	}
}

func loadStatus() tea.Msg {
	if Monitor == nil {
		return statusLoadedMsg{err: fmt.Errorf("monitoring system not initialized")}
	}

	status := Monitor.GetStatus()
	alerts := Monitor.ActiveAlerts()
	sort.SliceStable(alerts, func(i, j int) bool {
		return alertSeverityRank(alerts[i].Severity) < alertSeverityRank(alerts[j].Severity)
	})

	return statusLoadedMsg{status: status, alerts: alerts}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive TUI for live monitoring",
	Long: `Launch an interactive terminal view showing health, performance, and
alerts, refreshing every few seconds.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}
		p := tea.NewProgram(newWatchModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
