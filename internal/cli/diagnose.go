package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgelabs/forgemon/internal/diag"
	"github.com/forgelabs/forgemon/pkg/models"
)

var (
	diagnoseTest string
	diagnoseJSON bool
)

// knownDiagnosticTests is the accepted set for --test.
var knownDiagnosticTests = map[models.DiagnosticTest]bool{
	models.DiagFilesystem:      true,
	models.DiagDirectoryLayout: true,
	models.DiagDependencies:    true,
	models.DiagConfiguration:   true,
	models.DiagStateSchema:     true,
	models.DiagCommands:        true,
	models.DiagSourceControl:   true,
	models.DiagNetwork:         true,
	models.DiagMemory:          true,
	models.DiagDisk:            true,
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the diagnostic battery",
	Long: `Run the one-shot diagnostic battery against the project directory:
filesystem, directory layout, dependencies, configuration, state schema,
commands, source control, network, memory, and disk.

Use --test to run a single probe by name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitoring system not initialized")
		}

		if diagnoseTest != "" {
			test := models.DiagnosticTest(diagnoseTest)
			if !knownDiagnosticTests[test] {
				return fmt.Errorf("unknown diagnostic test %q", diagnoseTest)
			}
			result := Monitor.Diagnostics().RunTest(cmd.Context(), test)
			if diagnoseJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("formatting result as JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			marker := "[PASS]"
			if !result.Passed {
				marker = "[FAIL]"
			}
			fmt.Printf("%s %-18s %-8s %s\n", marker, result.Test,
				result.Duration.Round(10*time.Microsecond), result.Message)
			return nil
		}

		report := Monitor.RunDiagnostics(cmd.Context())

		if diagnoseJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting report as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Print(diag.FormatDiagnosticSummary(report))
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseTest, "test", "", "Run a single probe (e.g. network, disk, state_schema)")
	diagnoseCmd.Flags().BoolVar(&diagnoseJSON, "json", false, "Output results as JSON")
	rootCmd.AddCommand(diagnoseCmd)
}
