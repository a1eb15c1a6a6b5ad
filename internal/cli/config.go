package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/forgelabs/forgemon/internal/config"
	"github.com/forgelabs/forgemon/pkg/models"
)

// configView is the effective configuration rendered by 'forgemon config'.
// Durations are rendered as strings so the output round-trips as a valid
// .forgemon.yaml.
type configView struct {
	ProjectPath string `yaml:"project_path"`
	Intervals   struct {
		HealthCheck       string `yaml:"health_check"`
		PerformanceReport string `yaml:"performance_report"`
		ErrorReport       string `yaml:"error_report"`
		AlertCheck        string `yaml:"alert_check"`
	} `yaml:"intervals"`
	EnableAutoRecovery bool   `yaml:"enable_auto_recovery"`
	EnableAlerts       bool   `yaml:"enable_alerts"`
	PersistMetrics     bool   `yaml:"persist_metrics"`
	AlertExpiry        string `yaml:"alert_expiry"`
	NetworkProbeURL    string `yaml:"network_probe_url"`
	Notifications      struct {
		SlackWebhookURL string `yaml:"slack_webhook_url,omitempty"`
	} `yaml:"notifications,omitempty"`
	Recovery []models.RecoveryStrategy `yaml:"recovery,omitempty"`
}

func renderConfig(cfg *config.Config) ([]byte, error) {
	var view configView
	view.ProjectPath = cfg.ProjectPath
	view.Intervals.HealthCheck = cfg.HealthCheckInterval.String()
	view.Intervals.PerformanceReport = cfg.PerformanceReportInterval.String()
	view.Intervals.ErrorReport = cfg.ErrorReportInterval.String()
	view.Intervals.AlertCheck = cfg.AlertCheckInterval.String()
	view.EnableAutoRecovery = cfg.EnableAutoRecovery
	view.EnableAlerts = cfg.EnableAlerts
	view.PersistMetrics = cfg.PersistMetrics
	view.AlertExpiry = cfg.AlertExpiry.String()
	view.NetworkProbeURL = cfg.NetworkProbeURL
	view.Notifications.SlackWebhookURL = cfg.SlackWebhookURL

	for _, strategy := range cfg.Recovery {
		view.Recovery = append(view.Recovery, strategy)
	}
	sort.Slice(view.Recovery, func(i, j int) bool {
		return view.Recovery[i].Category < view.Recovery[j].Category
	})

	return yaml.Marshal(view)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML: the contents of
.forgemon.yaml merged over the built-in defaults.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Cfg == nil {
			return fmt.Errorf("configuration not initialized")
		}

		data, err := renderConfig(Cfg)
		if err != nil {
			return fmt.Errorf("rendering configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
