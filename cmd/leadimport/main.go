// Command leadimport previews lead imports offline, writes the sample
// import file and runs schema migrations. Preview uses the same pipeline as
// the API without touching the database.
package main

import (
	"fmt"
	"os"

	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	jsonOutput  bool
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "leadimport",
	Short: "Preview CRM lead imports from Excel or CSV files",
	Long: `leadimport runs the lead import pipeline locally.

Examples:
  leadimport preview leads.xlsx --org org-1
  leadimport preview leads.csv --org org-1 --existing leads.json --json
  leadimport template --out leads_template.xlsx
  leadimport migrate up`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(migrateCmd)
}

// cliLogger logs to stderr so JSON output on stdout stays clean
func cliLogger() zerolog.Logger {
	level := "warn"
	if verboseFlag {
		level = "debug"
	}
	return logger.NewWithWriter(config.LogConfig{Level: level, Format: "pretty", Environment: "development"}, os.Stderr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderFail("Error: ")+err.Error())
		os.Exit(1)
	}
}
