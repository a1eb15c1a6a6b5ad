package diag

import (
	"fmt"
	"strings"
	"time"

	"github.com/forgelabs/forgemon/pkg/models"
)

// FormatDiagnosticSummary renders a report as plain text for terminals and
// log bundles. It performs no I/O.
func FormatDiagnosticSummary(report models.DiagnosticReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Diagnostics: %d passed, %d failed\n", report.Passed, report.Failed)
	fmt.Fprintf(&b, "Host: %s (%s/%s, %d CPUs, go %s)\n",
		report.SystemInfo.Hostname, report.SystemInfo.OS, report.SystemInfo.Arch,
		report.SystemInfo.CPUCount, strings.TrimPrefix(report.SystemInfo.GoVersion, "go"))
	fmt.Fprintf(&b, "Memory: %d MB total, %.1f%% used; Disk: %d GB total, %.1f%% used\n\n",
		report.SystemInfo.MemoryTotalMB, report.SystemInfo.MemoryUsedPct,
		report.SystemInfo.DiskTotalGB, report.SystemInfo.DiskUsedPct)

	for _, res := range report.Results {
		mark := "PASS"
		if !res.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %-16s %s (%s)\n", mark, res.Test, res.Message, res.Duration.Round(10*time.Microsecond))
	}

	if len(report.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}
	return b.String()
}
