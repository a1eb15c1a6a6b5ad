package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forgemon/pkg/models"
)

var errorsJSON bool

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Display tracked error statistics",
	Long: `Display the aggregated error report: totals, per-category statistics,
the most frequent errors, and unresolved critical errors.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		report := Monitor.GetStatus().Errors

		if errorsJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting error report as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Tracked errors\n\n")
		fmt.Printf("  %-24s %d\n", "Total occurrences:", report.TotalErrors)
		fmt.Printf("  %-24s %.1f/min\n", "Error rate:", report.ErrorRate)
		fmt.Printf("  %-24s %.1f%%\n", "Recovery rate:", report.RecoveryRate)

		if len(report.Categories) > 0 {
			categories := make([]models.ErrorCategory, 0, len(report.Categories))
			for category := range report.Categories {
				categories = append(categories, category)
			}
			sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

			fmt.Println("\n  By category:")
			fmt.Printf("    %-14s %-7s %-9s %s\n", "CATEGORY", "TOTAL", "RESOLVED", "UNRESOLVED")
			for _, category := range categories {
				stats := report.Categories[category]
				fmt.Printf("    %-14s %-7d %-9d %d\n", category, stats.Total, stats.Resolved, stats.Unresolved)
			}
		}

		if len(report.TopErrors) > 0 {
			fmt.Println("\n  Most frequent:")
			for _, e := range report.TopErrors {
				fmt.Printf("    %4dx [%s/%s] %s\n", e.Count, e.Category, e.Severity, e.Message)
			}
		}

		if len(report.CriticalErrors) > 0 {
			fmt.Println("\n  Unresolved critical:")
			for _, e := range report.CriticalErrors {
				fmt.Printf("    %s  %s\n", e.ID, e.Message)
			}
		}

		return nil
	},
}

var trackErrorCmd = &cobra.Command{
	Use:   "track <message>",
	Short: "Record an error occurrence",
	Long: `Record an error occurrence with the tracker. The category is classified
from the message unless --category is given; severity defaults to medium.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		severity := models.ErrorSeverity(trackSeverity)
		switch severity {
		case "", models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
		default:
			return fmt.Errorf("invalid severity %q: must be one of low, medium, high, critical", trackSeverity)
		}

		tracked := Monitor.TrackError(args[0], models.ErrorCategory(trackCategory), severity, nil)
		fmt.Printf("Tracked %s [%s/%s] count=%d\n", tracked.ID, tracked.Category, tracked.Severity, tracked.Count)
		return nil
	},
}

var (
	trackCategory string
	trackSeverity string
)

func init() {
	errorsCmd.Flags().BoolVar(&errorsJSON, "json", false, "Output the error report as JSON")
	trackErrorCmd.Flags().StringVar(&trackCategory, "category", "", "Error category (classified from the message when empty)")
	trackErrorCmd.Flags().StringVar(&trackSeverity, "severity", "", "Error severity (low, medium, high, critical)")
	errorsCmd.AddCommand(trackErrorCmd)
	rootCmd.AddCommand(errorsCmd)
}
