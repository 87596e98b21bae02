// Package leadimport turns an uploaded spreadsheet or delimited file into
// candidate leads for one organization.
//
// Import never touches storage. It parses the file, maps headers onto the
// canonical lead fields, validates and coerces each row, and flags rows that
// duplicate another row of the same file (internal) or a lead from the
// caller-supplied snapshot (external). Every failure is reported inside the
// returned ImportResult; the caller decides what to commit.
package leadimport

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/validation"
	"github.com/rs/zerolog"
)

const missingNameColumnMessage = `Required column "name" not found. Please ensure your Excel file has a "Name" column.`

// Importer runs the import pipeline. It holds no per-call state and is safe
// for concurrent use.
type Importer struct {
	validator *validation.Validator
	coerce    func(fields map[string]string, organizationID string) *models.CandidateLead
	log       zerolog.Logger
}

// New creates an Importer
func New(log zerolog.Logger) *Importer {
	return &Importer{
		validator: validation.NewValidator(),
		coerce:    coerceLead,
		log:       log.With().Str("component", "leadimport").Logger(),
	}
}

// Import reads r fully and imports it. The filename is only used to pick
// the parser.
func (im *Importer) Import(r io.Reader, filename, organizationID string, existing []models.ExistingLead) *models.ImportResult {
	data, err := io.ReadAll(r)
	if err != nil {
		im.log.Warn().Err(err).Str("file", filename).Msg("Failed to read import file")
		return fileFailure(0, "Error reading file")
	}
	return im.ImportBytes(data, filename, organizationID, existing)
}

// ImportBytes imports an in-memory file
func (im *Importer) ImportBytes(data []byte, filename, organizationID string, existing []models.ExistingLead) *models.ImportResult {
	rows, err := readTable(data, filename)
	switch {
	case errors.Is(err, errNoWorksheet):
		return fileFailure(0, "No worksheets found in the file")
	case err != nil:
		im.log.Warn().Err(err).Str("file", filename).Msg("Failed to parse import file")
		return fileFailure(0, fmt.Sprintf("Error reading file: %v", err))
	case len(rows) == 0:
		return fileFailure(0, "The worksheet is empty")
	}

	headers := normalizeHeaders(rows[0])
	if !hasColumn(headers, FieldName) {
		return fileFailure(1, missingNameColumnMessage)
	}

	var validated []candidate
	errs := make([]models.ImportError, 0)

	for i := 1; i < len(rows); i++ {
		if isEmptyRow(rows[i]) {
			continue
		}
		rowNum := i + 1

		lead, rowErrs := im.processRow(headers, rows[i], rowNum, organizationID)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		validated = append(validated, candidate{row: rowNum, lead: *lead})
	}

	internal := detectInternalDuplicates(validated)
	flagged := make(map[int]bool, len(internal))
	for _, d := range internal {
		flagged[d.Row] = true
	}

	external := detectExternalDuplicates(validated, flagged, existing)
	for _, d := range external {
		flagged[d.Row] = true
	}

	duplicates := make([]models.DuplicateInfo, 0, len(internal)+len(external))
	duplicates = append(duplicates, internal...)
	duplicates = append(duplicates, external...)

	validLeads := make([]models.CandidateLead, 0, len(validated))
	for _, c := range validated {
		if !flagged[c.row] {
			validLeads = append(validLeads, c.lead)
		}
	}

	result := &models.ImportResult{
		Success:    len(validLeads) > 0 || len(duplicates) > 0,
		TotalRows:  len(rows) - 1,
		ValidLeads: validLeads,
		Errors:     errs,
		Duplicates: duplicates,
	}

	im.log.Debug().
		Str("file", filename).
		Str("organization_id", organizationID).
		Int("total_rows", result.TotalRows).
		Int("valid", len(validLeads)).
		Int("internal_duplicates", len(internal)).
		Int("external_duplicates", len(external)).
		Int("errors", len(errs)).
		Msg("Import parsed")

	return result
}

// processRow coerces and validates one data row. A panic while handling the
// row is reported as an error for that row only.
func (im *Importer) processRow(headers, cells []string, rowNum int, organizationID string) (lead *models.CandidateLead, errs []models.ImportError) {
	defer func() {
		if r := recover(); r != nil {
			im.log.Error().Interface("panic", r).Int("row", rowNum).Msg("Row processing panicked - recovered")
			lead = nil
			errs = []models.ImportError{{
				Row:     rowNum,
				Message: fmt.Sprintf("Error processing row: %v", r),
			}}
		}
	}()

	fields := mapRow(headers, cells)

	if strings.TrimSpace(fields[FieldName]) == "" {
		return nil, []models.ImportError{{Row: rowNum, Field: FieldName, Message: "Name is required"}}
	}

	lead = im.coerce(fields, organizationID)
	lead.Row = rowNum

	for _, e := range im.validator.ValidateLead(lead) {
		errs = append(errs, models.ImportError{Row: rowNum, Field: e.Field, Message: e.Message})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return lead, nil
}

func coerceLead(fields map[string]string, organizationID string) *models.CandidateLead {
	lead := &models.CandidateLead{
		Name:           strings.TrimSpace(fields[FieldName]),
		Email:          strings.TrimSpace(fields[FieldEmail]),
		Phone:          strings.TrimSpace(fields[FieldPhone]),
		Company:        strings.TrimSpace(fields[FieldCompany]),
		Status:         models.LeadStatusNew,
		Source:         strings.TrimSpace(fields[FieldSource]),
		Notes:          strings.TrimSpace(fields[FieldNotes]),
		OrganizationID: organizationID,
	}

	if raw, ok := fields[FieldEstimatedValue]; ok {
		value := parseEstimatedValue(raw)
		lead.EstimatedValue = &value
	}
	if raw, ok := fields[FieldStatus]; ok {
		lead.Status = NormalizeStatus(raw)
	}
	if lead.Source == "" {
		lead.Source = models.DefaultLeadSource
	}
	return lead
}

// parseEstimatedValue never fails: anything unparseable counts as 0
func parseEstimatedValue(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// fileFailure builds the result for errors that abort the whole import
func fileFailure(row int, message string) *models.ImportResult {
	return &models.ImportResult{
		Success:    false,
		TotalRows:  0,
		ValidLeads: []models.CandidateLead{},
		Errors:     []models.ImportError{{Row: row, Message: message}},
		Duplicates: []models.DuplicateInfo{},
	}
}
