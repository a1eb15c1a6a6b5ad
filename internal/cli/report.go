package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	reportDiagnostics bool
	reportJSON        bool
	reportOutput      string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a full monitoring report",
	Long: `Run a fresh health probe and generate a full monitoring report with
performance aggregates, error statistics, and active alerts.

With --diagnostics the full diagnostic battery is run as well, which is
slower. With --output the report is written as JSON to the given file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		report := Monitor.GenerateReport(cmd.Context(), reportDiagnostics)

		if reportOutput != "" {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting report as JSON: %w", err)
			}
			if err := os.WriteFile(reportOutput, data, 0o644); err != nil {
				return fmt.Errorf("writing report to %s: %w", reportOutput, err)
			}
			fmt.Printf("Report written to %s\n", reportOutput)
			return nil
		}

		if reportJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting report as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		badge := styleForHealth(report.Health.Status).Render(string(report.Health.Status))
		fmt.Printf("Monitoring report (%s)\n\n", report.GeneratedAt.Format(time.RFC3339))
		fmt.Printf("  %-24s %s (score %d)\n", "Health:", badge, report.Health.OverallScore)
		fmt.Printf("  %-24s %s\n", "Trend:", report.Trend.Direction)

		for _, check := range report.Health.Checks {
			marker := styleForHealth(check.Status).Render(fmt.Sprintf("%-8s", check.Status))
			fmt.Printf("    %s %-20s %3d  %s\n", marker, check.CheckType, check.Score, check.Message)
		}

		fmt.Printf("\n  %-24s %d ops, avg %s, %.1f%% errors\n", "Performance:",
			report.Performance.TotalOperations,
			report.Performance.AverageLatency.Round(time.Millisecond),
			report.Performance.ErrorRate)
		fmt.Printf("  %-24s %d tracked, %.1f%% recovered\n", "Errors:",
			report.Errors.TotalErrors, report.Errors.RecoveryRate)
		fmt.Printf("  %-24s %d\n", "Active alerts:", len(report.ActiveAlerts))

		if report.Diagnostics != nil {
			fmt.Printf("  %-24s %d passed, %d failed\n", "Diagnostics:",
				report.Diagnostics.Passed, report.Diagnostics.Failed)
		}

		if len(report.Health.Recommendations) > 0 {
			fmt.Println("\n  Recommendations:")
			for _, rec := range report.Health.Recommendations {
				fmt.Printf("    - %s\n", rec)
			}
		}

		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportDiagnostics, "diagnostics", false, "Also run the full diagnostic battery")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output the report as JSON")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "Write the report as JSON to a file")
	rootCmd.AddCommand(reportCmd)
}
