package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectLogsCmd = &cobra.Command{
	Use:   "collect-logs",
	Short: "Write a support log bundle",
	Long: `Collect the current health, performance, error, and diagnostic state
into a single JSON bundle under .forge/monitoring/logs/ and print its path.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		path, err := Monitor.Diagnostics().CollectLogs(cmd.Context())
		if err != nil {
			return fmt.Errorf("collecting logs: %w", err)
		}
		fmt.Printf("Log bundle written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectLogsCmd)
}
