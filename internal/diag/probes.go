package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"gopkg.in/yaml.v3"

	"github.com/forgelabs/forgemon/pkg/models"
)

const networkProbeTimeout = 3 * time.Second

// headroomLimitPct is the used-resource percentage above which the memory and
// disk probes fail.
const headroomLimitPct = 90.0

// testOrder fixes the battery order so reports are stable.
var testOrder = []models.DiagnosticTest{
	models.DiagFilesystem,
	models.DiagDirectoryLayout,
	models.DiagDependencies,
	models.DiagConfiguration,
	models.DiagStateSchema,
	models.DiagCommands,
	models.DiagSourceControl,
	models.DiagNetwork,
	models.DiagMemory,
	models.DiagDisk,
}

// diagRecommendations maps each failing test to its remediation string.
var diagRecommendations = map[models.DiagnosticTest]string{
	models.DiagFilesystem:      "verify the project directory is writable and the disk is not full",
	models.DiagDirectoryLayout: "run 'forge init' to recreate the expected .forge directory layout",
	models.DiagDependencies:    "install the forge binary and git, and make sure both are on PATH",
	models.DiagConfiguration:   "restore .forge/config.json or recreate it with 'forge init'",
	models.DiagStateSchema:     "run 'forge sync' to rebuild .forge/state/project.json",
	models.DiagCommands:        "add command definitions under .forge/commands/",
	models.DiagSourceControl:   "commit or stash pending changes, or initialize a git repository",
	models.DiagNetwork:         "check network connectivity and proxy settings",
	models.DiagMemory:          "close unused processes to free memory",
	models.DiagDisk:            "free disk space on the project volume",
}

// rollupLimit is the failure count at which a bucket-wide recommendation is
// appended alongside the per-test ones.
const rollupLimit = 2

// rollupBuckets groups the battery into coarse problem areas.
var rollupBuckets = map[models.DiagnosticTest]string{
	models.DiagFilesystem:      "system",
	models.DiagDependencies:    "system",
	models.DiagSourceControl:   "system",
	models.DiagNetwork:         "system",
	models.DiagMemory:          "system",
	models.DiagDisk:            "system",
	models.DiagConfiguration:   "configuration",
	models.DiagStateSchema:     "configuration",
	models.DiagDirectoryLayout: "agents",
	models.DiagCommands:        "agents",
}

// Bucket order is fixed so reports are stable.
var rollupOrder = []struct {
	bucket  string
	message string
}{
	{"system", "multiple system checks failing: review host resources and tool installation"},
	{"configuration", "multiple configuration checks failing: re-run 'forge init' to rebuild project configuration"},
	{"agents", "agent and command definitions incomplete: re-run 'forge sync' to restore .forge content"},
}

// rollups derives bucket-level recommendations from individual results.
func rollups(results []models.DiagnosticResult) []string {
	failures := map[string]int{}
	for _, res := range results {
		if !res.Passed {
			failures[rollupBuckets[res.Test]]++
		}
	}
	var out []string
	for _, r := range rollupOrder {
		if failures[r.bucket] >= rollupLimit {
			out = append(out, r.message)
		}
	}
	return out
}

// runTest dispatches a single probe and stamps its duration.
func (t *tools) runTest(ctx context.Context, test models.DiagnosticTest) models.DiagnosticResult {
	start := time.Now()
	var res models.DiagnosticResult
	switch test {
	case models.DiagFilesystem:
		res = t.checkFilesystem()
	case models.DiagDirectoryLayout:
		res = t.checkDirectoryLayout()
	case models.DiagDependencies:
		res = t.checkDependencies()
	case models.DiagConfiguration:
		res = t.checkConfiguration()
	case models.DiagStateSchema:
		res = t.checkStateSchema()
	case models.DiagCommands:
		res = t.checkCommands()
	case models.DiagSourceControl:
		res = t.checkSourceControl(ctx)
	case models.DiagNetwork:
		res = t.checkNetwork(ctx)
	case models.DiagMemory:
		res = t.checkMemory(ctx)
	case models.DiagDisk:
		res = t.checkDisk(ctx)
	default:
		res = models.DiagnosticResult{Test: test, Message: "unknown diagnostic test"}
	}
	res.Test = test
	res.Duration = time.Since(start)
	return res
}

func pass(message string, details map[string]string) models.DiagnosticResult {
	return models.DiagnosticResult{Passed: true, Message: message, Details: details}
}

func fail(message string, details map[string]string) models.DiagnosticResult {
	return models.DiagnosticResult{Passed: false, Message: message, Details: details}
}

func (t *tools) checkFilesystem() models.DiagnosticResult {
	f, err := os.CreateTemp(t.basePath, ".fmon-diag-*")
	if err != nil {
		return fail(fmt.Sprintf("cannot create files in project directory: %v", err), nil)
	}
	path := f.Name()
	defer os.Remove(path)

	payload := []byte("forgemon-diagnostic")
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return fail(fmt.Sprintf("cannot write files: %v", err), nil)
	}
	if err := f.Close(); err != nil {
		return fail(fmt.Sprintf("cannot close written file: %v", err), nil)
	}
	read, err := os.ReadFile(path)
	if err != nil || string(read) != string(payload) {
		return fail("file round-trip returned unexpected data", nil)
	}
	return pass("filesystem read/write ok", nil)
}

func (t *tools) checkDirectoryLayout() models.DiagnosticResult {
	expected := []string{
		".forge",
		filepath.Join(".forge", "agents"),
		filepath.Join(".forge", "commands"),
		filepath.Join(".forge", "state"),
		filepath.Join(".forge", "monitoring"),
	}
	var missing []string
	for _, rel := range expected {
		info, err := os.Stat(filepath.Join(t.basePath, rel))
		if err != nil || !info.IsDir() {
			missing = append(missing, rel)
		}
	}
	if len(missing) > 0 {
		return fail(fmt.Sprintf("%d expected directories missing", len(missing)),
			map[string]string{"missing": strings.Join(missing, ", ")})
	}
	return pass("directory layout complete", nil)
}

func (t *tools) checkDependencies() models.DiagnosticResult {
	details := map[string]string{}
	ok := true
	if path, err := exec.LookPath("forge"); err == nil {
		details["forge"] = path
	} else {
		details["forge"] = "not on PATH"
		ok = false
	}
	if path, err := exec.LookPath("git"); err == nil {
		details["git"] = path
	} else {
		details["git"] = "not on PATH"
		ok = false
	}
	if !ok {
		return fail("required tools missing", details)
	}
	return pass("required tools present", details)
}

func (t *tools) checkConfiguration() models.DiagnosticResult {
	path := filepath.Join(t.basePath, ".forge", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fail("tool configuration missing", map[string]string{"path": path})
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fail("tool configuration is not valid JSON", map[string]string{"path": path})
	}

	// The automation config is optional, but when present it must parse.
	autoPath := filepath.Join(t.basePath, ".forge", "automation.yaml")
	if autoData, err := os.ReadFile(autoPath); err == nil {
		var auto map[string]interface{}
		if err := yaml.Unmarshal(autoData, &auto); err != nil {
			return fail("automation config present but not valid YAML", map[string]string{"path": autoPath})
		}
	}
	return pass("configuration files valid", nil)
}

func (t *tools) checkStateSchema() models.DiagnosticResult {
	path := filepath.Join(t.basePath, ".forge", "state", "project.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fail("project state file missing", map[string]string{"path": path})
	}
	var state map[string]interface{}
	if err := json.Unmarshal(data, &state); err != nil {
		return fail("project state is not valid JSON", map[string]string{"path": path})
	}
	if _, ok := state["name"]; !ok {
		return fail("project state is missing the name field", nil)
	}
	return pass("project state schema valid", nil)
}

func (t *tools) checkCommands() models.DiagnosticResult {
	dir := filepath.Join(t.basePath, ".forge", "commands")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fail("commands directory unreadable", map[string]string{"path": dir})
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			count++
		}
	}
	if count == 0 {
		return fail("no command definitions found", nil)
	}
	return pass(fmt.Sprintf("%d command definitions found", count),
		map[string]string{"count": fmt.Sprintf("%d", count)})
}

func (t *tools) checkSourceControl(ctx context.Context) models.DiagnosticResult {
	cmd := exec.CommandContext(ctx, "git", "-C", t.basePath, "status", "--porcelain")
	out, err := cmd.Output()
	if err != nil {
		return fail("not a git repository or git unavailable", nil)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	dirty := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			dirty++
		}
	}
	details := map[string]string{"pending_changes": fmt.Sprintf("%d", dirty)}
	if dirty > 0 {
		return pass(fmt.Sprintf("working tree has %d pending changes", dirty), details)
	}
	return pass("working tree clean", details)
}

func (t *tools) checkNetwork(ctx context.Context) models.DiagnosticResult {
	ctx, cancel := context.WithTimeout(ctx, networkProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.networkURL, nil)
	if err != nil {
		return fail(fmt.Sprintf("building network probe request: %v", err), nil)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fail(fmt.Sprintf("network unreachable: %v", err),
			map[string]string{"url": t.networkURL})
	}
	defer resp.Body.Close()
	return pass(fmt.Sprintf("network reachable (status %d)", resp.StatusCode),
		map[string]string{"url": t.networkURL})
}

func (t *tools) checkMemory(ctx context.Context) models.DiagnosticResult {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fail(fmt.Sprintf("reading memory stats: %v", err), nil)
	}
	details := map[string]string{
		"used_pct":     fmt.Sprintf("%.1f", vm.UsedPercent),
		"available_mb": fmt.Sprintf("%d", vm.Available/1024/1024),
	}
	if vm.UsedPercent >= headroomLimitPct {
		return fail(fmt.Sprintf("memory %.1f%% used", vm.UsedPercent), details)
	}
	return pass(fmt.Sprintf("memory %.1f%% used", vm.UsedPercent), details)
}

func (t *tools) checkDisk(ctx context.Context) models.DiagnosticResult {
	usage, err := disk.UsageWithContext(ctx, t.basePath)
	if err != nil {
		return fail(fmt.Sprintf("reading disk stats: %v", err), nil)
	}
	details := map[string]string{
		"used_pct": fmt.Sprintf("%.1f", usage.UsedPercent),
		"free_gb":  fmt.Sprintf("%d", usage.Free/1024/1024/1024),
	}
	if usage.UsedPercent >= headroomLimitPct {
		return fail(fmt.Sprintf("disk %.1f%% used", usage.UsedPercent), details)
	}
	return pass(fmt.Sprintf("disk %.1f%% used", usage.UsedPercent), details)
}
