package models

import "time"

// DiagnosticTest identifies one of the one-shot diagnostic probes.
type DiagnosticTest string

const (
	DiagFilesystem      DiagnosticTest = "filesystem"
	DiagDirectoryLayout DiagnosticTest = "directory_layout"
	DiagDependencies    DiagnosticTest = "dependencies"
	DiagConfiguration   DiagnosticTest = "configuration"
	DiagStateSchema     DiagnosticTest = "state_schema"
	DiagCommands        DiagnosticTest = "commands"
	DiagSourceControl   DiagnosticTest = "source_control"
	DiagNetwork         DiagnosticTest = "network"
	DiagMemory          DiagnosticTest = "memory"
	DiagDisk            DiagnosticTest = "disk"
)

// DiagnosticResult is the outcome of a single one-shot probe.
type DiagnosticResult struct {
	Test     DiagnosticTest    `json:"test"`
	Passed   bool              `json:"passed"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// SystemInfo is a snapshot of the host environment attached to each
// diagnostic report.
type SystemInfo struct {
	Hostname       string  `json:"hostname"`
	Platform       string  `json:"platform"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
	GoVersion      string  `json:"go_version"`
	CPUCount       int     `json:"cpu_count"`
	MemoryTotalMB  uint64  `json:"memory_total_mb"`
	MemoryUsedPct  float64 `json:"memory_used_pct"`
	DiskTotalGB    uint64  `json:"disk_total_gb"`
	DiskUsedPct    float64 `json:"disk_used_pct"`
	HostUptimeSecs uint64  `json:"host_uptime_secs"`
}

// DiagnosticReport aggregates the full probe battery.
type DiagnosticReport struct {
	Results         []DiagnosticResult `json:"results"`
	Passed          int                `json:"passed"`
	Failed          int                `json:"failed"`
	SystemInfo      SystemInfo         `json:"system_info"`
	Recommendations []string           `json:"recommendations,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// DebugFlags is the togglable debug-mode flag bundle.
type DebugFlags struct {
	Verbose            bool `json:"verbose"`
	TraceErrors        bool `json:"trace_errors"`
	ProfilePerformance bool `json:"profile_performance"`
	CollectLogs        bool `json:"collect_logs"`
}
