package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/crm-lead-import-api/internal/leadimport"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/spf13/cobra"
)

// maxListed caps the rows printed per section in the text report
const maxListed = 20

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Parse, validate and deduplicate a lead import file",
	Long: `Run the import pipeline on FILE and print what a commit would create.

Existing leads for duplicate detection can be passed as a JSON array of
{"id","name","email","phone","company"} objects with --existing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		org, _ := cmd.Flags().GetString("org")
		existingPath, _ := cmd.Flags().GetString("existing")

		existing, err := loadSnapshot(existingPath)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		result := leadimport.New(cliLogger()).Import(f, filepath.Base(args[0]), org, existing)

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		renderReport(cmd.OutOrStdout(), args[0], result)
		return nil
	},
}

func init() {
	previewCmd.Flags().String("org", "", "Organization ID the leads belong to (required)")
	previewCmd.Flags().String("existing", "", "JSON file with the organization's existing leads")
	_ = previewCmd.MarkFlagRequired("org")
}

// loadSnapshot reads the existing-lead snapshot; an empty path means none
func loadSnapshot(path string) ([]models.ExistingLead, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var existing []models.ExistingLead
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return existing, nil
}

func renderReport(w io.Writer, file string, result *models.ImportResult) {
	fmt.Fprintf(w, "%s %s\n", renderCategory("Import preview"), renderMuted(file))
	fmt.Fprintln(w, renderSeparator())

	status := renderPass(iconPass + " ready to commit")
	if !result.Success {
		status = renderFail(iconFail + " nothing to commit")
	}
	fmt.Fprintf(w, "%s\n", status)
	fmt.Fprintf(w, "  rows:       %d\n", result.TotalRows)
	fmt.Fprintf(w, "  valid:      %s\n", renderPass(fmt.Sprint(len(result.ValidLeads))))
	fmt.Fprintf(w, "  duplicates: %s\n", renderWarn(fmt.Sprint(len(result.Duplicates))))
	fmt.Fprintf(w, "  errors:     %s\n", renderFail(fmt.Sprint(len(result.Errors))))

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderCategory("Errors"))
		for i, e := range result.Errors {
			if i == maxListed {
				fmt.Fprintln(w, renderMuted(fmt.Sprintf("  ... %d more", len(result.Errors)-maxListed)))
				break
			}
			field := ""
			if e.Field != "" {
				field = " [" + e.Field + "]"
			}
			fmt.Fprintf(w, "  %s row %d%s: %s\n", renderFail(iconFail), e.Row, field, e.Message)
		}
	}

	if len(result.Duplicates) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderCategory("Duplicates"))
		for i, d := range result.Duplicates {
			if i == maxListed {
				fmt.Fprintln(w, renderMuted(fmt.Sprintf("  ... %d more", len(result.Duplicates)-maxListed)))
				break
			}
			fmt.Fprintf(w, "  %s row %d %s (%s)\n", renderWarn(iconWarn), d.Row, d.Lead.Name, d.DuplicateType)
			detail := "matched on " + strings.Join(d.MatchedFields, ", ")
			if d.ExistingLeadID != "" {
				detail += " with lead " + d.ExistingLeadID
			}
			fmt.Fprintf(w, "    %s%s\n", treeLast, renderMuted(detail))
		}
	}
}
