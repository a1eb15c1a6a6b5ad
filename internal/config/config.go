// Package config loads and validates the forgemon configuration from the
// .forgemon.yaml file in the project root, with sensible defaults when the
// file is missing.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/forgelabs/forgemon/pkg/models"
)

// Config is the full configuration surface accepted at construction.
type Config struct {
	ProjectPath string `yaml:"project_path"`

	HealthCheckInterval       time.Duration `yaml:"health_check_interval"`
	PerformanceReportInterval time.Duration `yaml:"performance_report_interval"`
	ErrorReportInterval       time.Duration `yaml:"error_report_interval"`
	AlertCheckInterval        time.Duration `yaml:"alert_check_interval"`

	EnableAutoRecovery bool `yaml:"enable_auto_recovery"`
	EnableAlerts       bool `yaml:"enable_alerts"`
	PersistMetrics     bool `yaml:"persist_metrics"`

	// AlertExpiry is how long an unacknowledged alert stays active.
	AlertExpiry time.Duration `yaml:"alert_expiry"`

	// SlackWebhookURL enables webhook notifications when non-empty.
	SlackWebhookURL string `yaml:"slack_webhook_url"`

	// NetworkProbeURL is the endpoint used by reachability probes.
	NetworkProbeURL string `yaml:"network_probe_url"`

	// Recovery holds per-category strategy overrides. Categories absent here
	// use the built-in defaults.
	Recovery map[models.ErrorCategory]models.RecoveryStrategy `yaml:"recovery,omitempty"`
}

// Manager loads and validates forgemon configuration.
type Manager interface {
	Load() (*Config, error)
	Validate(cfg *Config) error

	// Watch re-reads .forgemon.yaml whenever it changes on disk and invokes
	// onChange with the freshly loaded configuration. Updates that fail to
	// load or validate are skipped. Watch is a no-op when the file does not
	// exist at call time.
	Watch(onChange func(*Config))
}

// viperManager implements Manager using Viper for reading the YAML file.
type viperManager struct {
	// basePath is the directory where .forgemon.yaml resides.
	basePath string
}

// NewManager creates a Manager that reads configuration relative to basePath.
func NewManager(basePath string) Manager {
	return &viperManager{basePath: basePath}
}

// Default returns a Config populated with the documented defaults.
func Default(basePath string) *Config {
	return &Config{
		ProjectPath:               basePath,
		HealthCheckInterval:       30 * time.Second,
		PerformanceReportInterval: 60 * time.Second,
		ErrorReportInterval:       60 * time.Second,
		AlertCheckInterval:        60 * time.Second,
		EnableAutoRecovery:        true,
		EnableAlerts:              true,
		PersistMetrics:            true,
		AlertExpiry:               30 * time.Minute,
		NetworkProbeURL:           "https://proxy.golang.org",
	}
}

// Load reads .forgemon.yaml from the base path. A missing file yields the
// defaults; a malformed file is an error the caller may ignore in favor of
// defaults.
func (m *viperManager) Load() (*Config, error) {
	cfg := Default(m.basePath)

	v := viper.New()
	v.SetConfigName(".forgemon")
	v.SetConfigType("yaml")
	v.AddConfigPath(m.basePath)

	v.SetDefault("project_path", cfg.ProjectPath)
	v.SetDefault("intervals.health_check", cfg.HealthCheckInterval)
	v.SetDefault("intervals.performance_report", cfg.PerformanceReportInterval)
	v.SetDefault("intervals.error_report", cfg.ErrorReportInterval)
	v.SetDefault("intervals.alert_check", cfg.AlertCheckInterval)
	v.SetDefault("enable_auto_recovery", cfg.EnableAutoRecovery)
	v.SetDefault("enable_alerts", cfg.EnableAlerts)
	v.SetDefault("persist_metrics", cfg.PersistMetrics)
	v.SetDefault("alert_expiry", cfg.AlertExpiry)
	v.SetDefault("network_probe_url", cfg.NetworkProbeURL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .forgemon.yaml: %w", err)
	}

	cfg.ProjectPath = v.GetString("project_path")
	cfg.HealthCheckInterval = v.GetDuration("intervals.health_check")
	cfg.PerformanceReportInterval = v.GetDuration("intervals.performance_report")
	cfg.ErrorReportInterval = v.GetDuration("intervals.error_report")
	cfg.AlertCheckInterval = v.GetDuration("intervals.alert_check")
	cfg.EnableAutoRecovery = v.GetBool("enable_auto_recovery")
	cfg.EnableAlerts = v.GetBool("enable_alerts")
	cfg.PersistMetrics = v.GetBool("persist_metrics")
	cfg.AlertExpiry = v.GetDuration("alert_expiry")
	cfg.SlackWebhookURL = v.GetString("notifications.slack_webhook_url")
	cfg.NetworkProbeURL = v.GetString("network_probe_url")

	cfg.Recovery = parseRecoveryOverrides(v.Get("recovery"))

	return cfg, nil
}

// Watch sets up a viper file watcher on .forgemon.yaml. Each change event
// triggers a full reload through Load so defaults and validation behave
// exactly as at startup.
func (m *viperManager) Watch(onChange func(*Config)) {
	v := viper.New()
	v.SetConfigName(".forgemon")
	v.SetConfigType("yaml")
	v.AddConfigPath(m.basePath)

	if err := v.ReadInConfig(); err != nil {
		// Nothing to watch without a config file.
		return
	}

	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := m.Load()
		if err != nil {
			return
		}
		if err := m.Validate(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// parseRecoveryOverrides maps the recovery: section into per-category
// strategy overrides. Unknown or incomplete entries are skipped.
func parseRecoveryOverrides(raw interface{}) map[models.ErrorCategory]models.RecoveryStrategy {
	entries, ok := raw.([]interface{})
	if !ok || len(entries) == 0 {
		return nil
	}

	overrides := make(map[models.ErrorCategory]models.RecoveryStrategy)
	for _, item := range entries {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		strategy := models.RecoveryStrategy{}
		if c, ok := m["category"].(string); ok {
			strategy.Category = models.ErrorCategory(c)
		}
		if a, ok := m["action"].(string); ok {
			strategy.Action = models.RecoveryActionType(a)
		}
		switch n := m["max_attempts"].(type) {
		case int:
			strategy.MaxAttempts = n
		case float64:
			strategy.MaxAttempts = int(n)
		}
		switch n := m["backoff_ms"].(type) {
		case int:
			strategy.BackoffMs = n
		case float64:
			strategy.BackoffMs = int(n)
		}
		if strategy.Category == "" || strategy.Action == "" {
			continue
		}
		overrides[strategy.Category] = strategy
	}
	if len(overrides) == 0 {
		return nil
	}
	return overrides
}

// validActions is the set of allowed recovery action values.
var validActions = map[models.RecoveryActionType]bool{
	models.ActionRetry:    true,
	models.ActionReset:    true,
	models.ActionRollback: true,
	models.ActionAlert:    true,
	models.ActionIgnore:   true,
}

// Validate checks the configuration for invalid values and returns a clear
// error message identifying every problem found.
func (m *viperManager) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.ProjectPath == "" {
		errs = append(errs, "project_path must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"intervals.health_check":       cfg.HealthCheckInterval,
		"intervals.performance_report": cfg.PerformanceReportInterval,
		"intervals.error_report":       cfg.ErrorReportInterval,
		"intervals.alert_check":        cfg.AlertCheckInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got %s", name, d))
		}
	}
	if cfg.AlertExpiry <= 0 {
		errs = append(errs, fmt.Sprintf("alert_expiry must be positive, got %s", cfg.AlertExpiry))
	}

	for category, strategy := range cfg.Recovery {
		if !validActions[strategy.Action] {
			errs = append(errs, fmt.Sprintf(
				"recovery action %q for category %q is invalid, must be one of: retry, reset, rollback, alert, ignore",
				strategy.Action, category,
			))
		}
		if strategy.MaxAttempts < 0 {
			errs = append(errs, fmt.Sprintf(
				"recovery max_attempts for category %q must be non-negative, got %d",
				category, strategy.MaxAttempts,
			))
		}
		if strategy.BackoffMs < 0 {
			errs = append(errs, fmt.Sprintf(
				"recovery backoff_ms for category %q must be non-negative, got %d",
				category, strategy.BackoffMs,
			))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
