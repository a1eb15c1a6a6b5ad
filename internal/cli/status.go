package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the current monitoring status",
	Long: `Display the last known health snapshot plus freshly aggregated
performance and error reports. No probes are re-run; use 'forgemon report'
for a fresh health probe.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		status := Monitor.GetStatus()

		if statusJSON {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting status as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		running := "stopped"
		if status.Running {
			running = fmt.Sprintf("running (up %s)", status.Uptime.Round(time.Second))
		}
		fmt.Printf("Monitoring: %s\n\n", running)

		if status.Health != nil {
			badge := styleForHealth(status.Health.Status).Render(strings.ToUpper(string(status.Health.Status)))
			fmt.Printf("  %-24s %s (score %d)\n", "Health:", badge, status.Health.OverallScore)
		} else {
			fmt.Printf("  %-24s no snapshot yet\n", "Health:")
		}
		if status.Trend != nil {
			fmt.Printf("  %-24s %s (delta %+.1f over %d samples)\n",
				"Trend:", status.Trend.Direction, status.Trend.Delta, status.Trend.SampleSize)
		}

		fmt.Printf("  %-24s %d\n", "Operations:", status.Performance.TotalOperations)
		fmt.Printf("  %-24s %s\n", "Average latency:", status.Performance.AverageLatency.Round(time.Millisecond))
		fmt.Printf("  %-24s %.1f%%\n", "Operation error rate:", status.Performance.ErrorRate)
		fmt.Printf("  %-24s %d (%.1f/min)\n", "Tracked errors:", status.Errors.TotalErrors, status.Errors.ErrorRate)
		fmt.Printf("  %-24s %d\n", "Active alerts:", status.ActiveAlerts)

		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")
	rootCmd.AddCommand(statusCmd)
}
