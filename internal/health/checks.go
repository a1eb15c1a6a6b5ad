package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
	"github.com/shirou/gopsutil/v4/mem"
	"gopkg.in/yaml.v3"
)

// Probe is a single bounded test of one subsystem producing a 0-100 score.
type Probe interface {
	Type() models.CheckType
	Run(ctx context.Context) (models.HealthCheckResult, error)
}

// defaultWeights is the fixed per-probe-type weight table. Weights sum to 1.0.
var defaultWeights = map[models.CheckType]float64{
	models.CheckFilesystem:       0.20,
	models.CheckDirectories:      0.15,
	models.CheckCoreModules:      0.15,
	models.CheckStateFreshness:   0.10,
	models.CheckAgentDefinitions: 0.15,
	models.CheckMemory:           0.10,
	models.CheckCommandInventory: 0.10,
	models.CheckAutomationConfig: 0.05,
}

// recommendations maps each probe type to its fixed remediation string,
// appended whenever that probe comes back critical or failed.
var recommendations = map[models.CheckType]string{
	models.CheckFilesystem:       "verify the project directory is writable and the disk is not full",
	models.CheckDirectories:      "run 'forge init' to recreate the expected .forge directory layout",
	models.CheckCoreModules:      "reinstall forge or restore .forge/config.json",
	models.CheckStateFreshness:   "run 'forge sync' to refresh .forge/state/project.json",
	models.CheckAgentDefinitions: "add agent definitions under .forge/agents/",
	models.CheckMemory:           "close unused processes to free memory before running agents",
	models.CheckCommandInventory: "add command definitions under .forge/commands/",
	models.CheckAutomationConfig: "create or fix .forge/automation.yaml",
}

// classify maps a 0-100 score to a status using the fixed thresholds.
func classify(score int) models.HealthStatus {
	switch {
	case score >= 85:
		return models.StatusHealthy
	case score >= 70:
		return models.StatusDegraded
	case score >= 50:
		return models.StatusCritical
	default:
		return models.StatusFailed
	}
}

// DefaultProbes returns the standard battery for a project rooted at basePath.
func DefaultProbes(basePath string) []Probe {
	return []Probe{
		&filesystemProbe{basePath: basePath},
		&directoriesProbe{basePath: basePath},
		&coreModulesProbe{basePath: basePath},
		&stateFreshnessProbe{basePath: basePath},
		&agentDefinitionsProbe{basePath: basePath},
		&memoryProbe{},
		&commandInventoryProbe{basePath: basePath},
		&automationConfigProbe{basePath: basePath},
	}
}

// result builds a HealthCheckResult with the status derived from the score.
func result(t models.CheckType, score int, message string, details map[string]string) models.HealthCheckResult {
	return models.HealthCheckResult{
		CheckType: t,
		Status:    classify(score),
		Score:     score,
		Message:   message,
		Details:   details,
	}
}

// --- filesystem round-trip ---

type filesystemProbe struct {
	basePath string
}

func (p *filesystemProbe) Type() models.CheckType { return models.CheckFilesystem }

func (p *filesystemProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	f, err := os.CreateTemp(p.basePath, ".fmon-probe-*")
	if err != nil {
		return models.HealthCheckResult{}, fmt.Errorf("creating probe file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	payload := []byte("forgemon-roundtrip")
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return models.HealthCheckResult{}, fmt.Errorf("writing probe file: %w", err)
	}
	if err := f.Close(); err != nil {
		return models.HealthCheckResult{}, fmt.Errorf("closing probe file: %w", err)
	}

	read, err := os.ReadFile(path)
	if err != nil {
		return models.HealthCheckResult{}, fmt.Errorf("reading probe file back: %w", err)
	}
	if string(read) != string(payload) {
		return result(p.Type(), 0, "filesystem round-trip returned corrupted data", nil), nil
	}
	return result(p.Type(), 100, "filesystem round-trip ok", nil), nil
}

// --- expected directory layout ---

type directoriesProbe struct {
	basePath string
}

func (p *directoriesProbe) Type() models.CheckType { return models.CheckDirectories }

func (p *directoriesProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	expected := []string{
		".forge",
		filepath.Join(".forge", "agents"),
		filepath.Join(".forge", "commands"),
		filepath.Join(".forge", "state"),
		filepath.Join(".forge", "analytics"),
	}

	present := 0
	var missing []string
	for _, rel := range expected {
		info, err := os.Stat(filepath.Join(p.basePath, rel))
		if err == nil && info.IsDir() {
			present++
		} else {
			missing = append(missing, rel)
		}
	}

	score := present * 100 / len(expected)
	msg := fmt.Sprintf("%d of %d expected directories present", present, len(expected))
	var details map[string]string
	if len(missing) > 0 {
		details = map[string]string{"missing": fmt.Sprintf("%v", missing)}
	}
	return result(p.Type(), score, msg, details), nil
}

// --- core module presence ---

type coreModulesProbe struct {
	basePath string
}

func (p *coreModulesProbe) Type() models.CheckType { return models.CheckCoreModules }

func (p *coreModulesProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	score := 0
	details := map[string]string{}

	if _, err := os.Stat(filepath.Join(p.basePath, ".forge", "config.json")); err == nil {
		score += 50
		details["config"] = "present"
	} else {
		details["config"] = "missing"
	}
	if path, err := exec.LookPath("forge"); err == nil {
		score += 50
		details["binary"] = path
	} else {
		details["binary"] = "not on PATH"
	}

	return result(p.Type(), score, "core module presence", details), nil
}

// --- state freshness ---

type stateFreshnessProbe struct {
	basePath string
}

func (p *stateFreshnessProbe) Type() models.CheckType { return models.CheckStateFreshness }

func (p *stateFreshnessProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	path := filepath.Join(p.basePath, ".forge", "state", "project.json")
	info, err := os.Stat(path)
	if err != nil {
		return result(p.Type(), 0, "project state file missing", nil), nil
	}

	age := time.Since(info.ModTime())
	var score int
	switch {
	case age < 24*time.Hour:
		score = 100
	case age < 72*time.Hour:
		score = 70
	case age < 168*time.Hour:
		score = 50
	default:
		score = 25
	}
	msg := fmt.Sprintf("project state last updated %s ago", age.Round(time.Minute))
	return result(p.Type(), score, msg, nil), nil
}

// --- agent definitions ---

type agentDefinitionsProbe struct {
	basePath string
}

func (p *agentDefinitionsProbe) Type() models.CheckType { return models.CheckAgentDefinitions }

func (p *agentDefinitionsProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	count, err := countMarkdown(filepath.Join(p.basePath, ".forge", "agents"))
	if err != nil {
		return result(p.Type(), 0, "agents directory unreadable", nil), nil
	}
	if count == 0 {
		return result(p.Type(), 0, "no agent definitions found", nil), nil
	}
	return result(p.Type(), 100, fmt.Sprintf("%d agent definitions found", count), nil), nil
}

// --- memory headroom ---

type memoryProbe struct{}

func (p *memoryProbe) Type() models.CheckType { return models.CheckMemory }

func (p *memoryProbe) Run(ctx context.Context) (models.HealthCheckResult, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.HealthCheckResult{}, fmt.Errorf("reading virtual memory stats: %w", err)
	}

	var score int
	switch {
	case vm.UsedPercent < 70:
		score = 100
	case vm.UsedPercent < 80:
		score = 75
	case vm.UsedPercent < 90:
		score = 50
	default:
		score = 25
	}
	msg := fmt.Sprintf("memory %.1f%% used", vm.UsedPercent)
	details := map[string]string{
		"total_mb":     fmt.Sprintf("%d", vm.Total/1024/1024),
		"available_mb": fmt.Sprintf("%d", vm.Available/1024/1024),
	}
	return result(p.Type(), score, msg, details), nil
}

// --- command inventory ---

type commandInventoryProbe struct {
	basePath string
}

func (p *commandInventoryProbe) Type() models.CheckType { return models.CheckCommandInventory }

func (p *commandInventoryProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	count, err := countMarkdown(filepath.Join(p.basePath, ".forge", "commands"))
	if err != nil {
		return result(p.Type(), 0, "commands directory unreadable", nil), nil
	}
	if count == 0 {
		return result(p.Type(), 0, "no command definitions found", nil), nil
	}
	return result(p.Type(), 100, fmt.Sprintf("%d command definitions found", count), nil), nil
}

// --- automation config ---

type automationConfigProbe struct {
	basePath string
}

func (p *automationConfigProbe) Type() models.CheckType { return models.CheckAutomationConfig }

func (p *automationConfigProbe) Run(_ context.Context) (models.HealthCheckResult, error) {
	path := filepath.Join(p.basePath, ".forge", "automation.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return result(p.Type(), 0, "automation config missing", nil), nil
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result(p.Type(), 40, "automation config present but not valid YAML", nil), nil
	}
	return result(p.Type(), 100, "automation config ok", nil), nil
}

// countMarkdown counts .md files directly inside dir.
func countMarkdown(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			count++
		}
	}
	return count, nil
}
