package models

// DuplicateType tells whether a duplicate was found inside the upload or in storage
type DuplicateType string

const (
	DuplicateInternal DuplicateType = "internal"
	DuplicateExternal DuplicateType = "external"
)

// ImportError describes one problem found while importing a file.
// Row is 1-based and counts the header, so the first data row is 2.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// DuplicateInfo describes a row excluded because it matches another lead
type DuplicateInfo struct {
	Row            int           `json:"row"`
	Lead           CandidateLead `json:"lead"`
	DuplicateType  DuplicateType `json:"duplicateType"`
	MatchedFields  []string      `json:"matchedFields"`
	ExistingLeadID string        `json:"existingLeadId,omitempty"`
}

// ImportResult is the report produced by a single import run
type ImportResult struct {
	Success    bool            `json:"success"`
	TotalRows  int             `json:"totalRows"`
	ValidLeads []CandidateLead `json:"validLeads"`
	Errors     []ImportError   `json:"errors"`
	Duplicates []DuplicateInfo `json:"duplicates"`
}
