package leadimport

import (
	"strings"

	"github.com/crm-lead-import-api/internal/models"
)

// Canonical lead fields recognized in an import header
const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldCompany        = "company"
	FieldEstimatedValue = "estimatedValue"
	FieldStatus         = "status"
	FieldSource         = "source"
	FieldNotes          = "notes"
)

var canonicalFields = map[string]bool{
	FieldName:           true,
	FieldEmail:          true,
	FieldPhone:          true,
	FieldCompany:        true,
	FieldEstimatedValue: true,
	FieldStatus:         true,
	FieldSource:         true,
	FieldNotes:          true,
}

// columnSynonyms is keyed by lower-cased, trimmed header text
var columnSynonyms = map[string]string{
	"name":            FieldName,
	"full name":       FieldName,
	"lead name":       FieldName,
	"customer name":   FieldName,
	"email":           FieldEmail,
	"email address":   FieldEmail,
	"phone":           FieldPhone,
	"phone number":    FieldPhone,
	"mobile":          FieldPhone,
	"company":         FieldCompany,
	"company name":    FieldCompany,
	"organization":    FieldCompany,
	"estimated value": FieldEstimatedValue,
	"value":           FieldEstimatedValue,
	"deal value":      FieldEstimatedValue,
	"revenue":         FieldEstimatedValue,
	"status":          FieldStatus,
	"lead status":     FieldStatus,
	"source":          FieldSource,
	"lead source":     FieldSource,
	"notes":           FieldNotes,
	"comments":        FieldNotes,
	"description":     FieldNotes,
}

var statusSynonyms = map[string]models.LeadStatus{
	"new":        models.LeadStatusNew,
	"contacted":  models.LeadStatusContacted,
	"interested": models.LeadStatusInterested,
	"meeting":    models.LeadStatusMeeting,
	"scheduled":  models.LeadStatusMeeting,
	"converted":  models.LeadStatusConverted,
	"closed":     models.LeadStatusClosed,
	"won":        models.LeadStatusConverted,
	"lost":       models.LeadStatusClosed,
}

// NormalizeColumnName maps a header cell to its canonical field name.
// Unrecognized headers are returned unchanged.
func NormalizeColumnName(header string) string {
	if field, ok := columnSynonyms[strings.ToLower(strings.TrimSpace(header))]; ok {
		return field
	}
	return header
}

// NormalizeStatus maps free-text status values onto the lead pipeline.
// Anything unrecognized becomes "new".
func NormalizeStatus(status string) models.LeadStatus {
	if s, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(status))]; ok {
		return s
	}
	return models.LeadStatusNew
}

func normalizeHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	for i, cell := range cells {
		headers[i] = NormalizeColumnName(cell)
	}
	return headers
}

func hasColumn(headers []string, field string) bool {
	for _, h := range headers {
		if h == field {
			return true
		}
	}
	return false
}

// mapRow keys the non-empty cells of a row by canonical field.
// When two columns map to the same field the rightmost non-empty one wins.
func mapRow(headers, cells []string) map[string]string {
	fields := make(map[string]string, len(headers))
	for i, header := range headers {
		if !canonicalFields[header] || i >= len(cells) || cells[i] == "" {
			continue
		}
		fields[header] = cells[i]
	}
	return fields
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
