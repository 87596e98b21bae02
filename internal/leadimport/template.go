package leadimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// TemplateSheetName is the worksheet name used by the sample workbook
const TemplateSheetName = "Leads"

// TemplateHeaders are the canonical headers operators are asked to use
var TemplateHeaders = []string{"Name", "Email", "Phone", "Company", "Estimated Value", "Status", "Source", "Notes"}

type templateRow struct {
	name, email, phone, company string
	value                       int
	status, source, notes       string
}

var templateRows = []templateRow{
	{"John Doe", "john@example.com", "+1-555-0123", "Acme Corp", 15000, "New", "Website", "Interested in premium package"},
	{"Jane Smith", "jane@techco.com", "+1-555-0124", "Tech Co", 25000, "Contacted", "Referral", "Needs demo next week"},
	{"Bob Johnson", "bob@startup.io", "+1-555-0125", "Startup Inc", 5000, "Interested", "Cold Call", "Budget approved"},
	{"Alice Brown", "alice@corp.com", "", "Corp Ltd", 30000, "Meeting", "LinkedIn", "Decision maker identified"},
}

// WriteTemplate writes the sample import workbook (xlsx) to w
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplateSheetName); err != nil {
		return fmt.Errorf("failed to name template sheet: %w", err)
	}

	header := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(TemplateSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}

	for i, r := range templateRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.name, r.email, r.phone, r.company, r.value, r.status, r.source, r.notes}
		if err := f.SetSheetRow(TemplateSheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write template row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

// WriteTemplateCSV writes the same sample as comma-separated text
func WriteTemplateCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(TemplateHeaders); err != nil {
		return err
	}
	for _, r := range templateRows {
		record := []string{r.name, r.email, r.phone, r.company, strconv.Itoa(r.value), r.status, r.source, r.notes}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
