package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsJSON bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List active alerts",
	Long: `List the currently active alerts, most severe first. Alerts expire on
their own after the configured expiry, or can be dismissed explicitly with
'forgemon alerts ack <id>'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		alerts := Monitor.ActiveAlerts()

		if alertsJSON {
			data, err := json.MarshalIndent(alerts, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting alerts as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(alerts) == 0 {
			fmt.Println("No active alerts.")
			return nil
		}

		fmt.Printf("Active alerts (%d)\n\n", len(alerts))
		for _, a := range alerts {
			badge := styleForSeverity(a.Severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Severity))))
			fmt.Printf("  %s %s: %s (x%d)\n", badge, a.Title, a.Message, a.Count)
			fmt.Printf("    id %s, type %s, raised %s\n", a.ID, a.Type, a.Timestamp.Format("2006-01-02 15:04 UTC"))
		}

		return nil
	},
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an active alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		if !Monitor.AcknowledgeAlert(args[0]) {
			return fmt.Errorf("no active alert with id %s", args[0])
		}
		fmt.Printf("Alert %s acknowledged.\n", args[0])
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "Output alerts as JSON")
	alertsCmd.AddCommand(alertsAckCmd)
	rootCmd.AddCommand(alertsCmd)
}
