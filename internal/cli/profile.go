package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forgemon/pkg/models"
)

var (
	profileWindow time.Duration
	profileJSON   bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile performance over a sampling window",
	Long: `Sample performance at one-second cadence for the given window and print
the resulting report. Cancelling early (Ctrl+C) returns the partial report.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}
		if profileWindow <= 0 {
			return fmt.Errorf("invalid --window %s: must be positive", profileWindow)
		}

		fmt.Printf("Profiling for %s...\n", profileWindow)
		report, err := Monitor.Diagnostics().ProfilePerformance(cmd.Context(), profileWindow)
		if err != nil {
			fmt.Printf("Profiling interrupted: %v\n", err)
		}

		if profileJSON {
			data, jsonErr := json.MarshalIndent(report, "", "  ")
			if jsonErr != nil {
				return fmt.Errorf("formatting report as JSON: %w", jsonErr)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("\n  %-24s %d\n", "Operations:", report.TotalOperations)
		fmt.Printf("  %-24s %s\n", "Average latency:", report.AverageLatency.Round(time.Millisecond))
		fmt.Printf("  %-24s %.1f%%\n", "Error rate:", report.ErrorRate)

		if len(report.Stats) > 0 {
			types := make([]models.MetricType, 0, len(report.Stats))
			for metricType := range report.Stats {
				types = append(types, metricType)
			}
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

			fmt.Println("\n  By type:")
			fmt.Printf("    %-10s %-7s %-10s %-10s %-10s %s\n", "TYPE", "COUNT", "AVG", "P90", "P99", "SUCCESS")
			for _, metricType := range types {
				stats := report.Stats[metricType]
				fmt.Printf("    %-10s %-7d %-10s %-10s %-10s %.1f%%\n",
					metricType, stats.Count,
					stats.Average.Round(time.Millisecond),
					stats.P90.Round(time.Millisecond),
					stats.P99.Round(time.Millisecond),
					stats.SuccessRate)
			}
		}

		return nil
	},
}

func init() {
	profileCmd.Flags().DurationVar(&profileWindow, "window", 30*time.Second, "Sampling window (e.g. 30s, 2m)")
	profileCmd.Flags().BoolVar(&profileJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(profileCmd)
}
