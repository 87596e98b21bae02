package main

import (
	"fmt"
	"os"

	"github.com/crm-lead-import-api/internal/leadimport"
	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the sample lead import file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")

		write := leadimport.WriteTemplate
		switch format {
		case "xlsx":
		case "csv":
			write = leadimport.WriteTemplateCSV
		default:
			return fmt.Errorf("unsupported format %q (want xlsx or csv)", format)
		}

		if out == "" {
			out = "leads_template." + format
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if err := write(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to write template: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", renderPass(iconPass), out)
		}
		return nil
	},
}

func init() {
	templateCmd.Flags().String("out", "", "Output path (default leads_template.<format>)")
	templateCmd.Flags().String("format", "xlsx", "Template format: xlsx or csv")
}
