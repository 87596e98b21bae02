package models

import (
	"time"
)

// JobStatus represents the status of an import job
type JobStatus string

const (
	JobStatusPreviewed  JobStatus = "previewed"
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobErrorKind separates problems found in the file from problems hit while committing
type JobErrorKind string

const (
	JobErrorValidation JobErrorKind = "validation"
	JobErrorCommit     JobErrorKind = "commit"
)

// ImportJob tracks one uploaded file from preview through commit
type ImportJob struct {
	ID                string        `json:"job_id" db:"id"`
	OrganizationID    string        `json:"organization_id" db:"organization_id"`
	FileName          string        `json:"file_name" db:"file_name"`
	Status            JobStatus     `json:"status" db:"status"`
	IdempotencyKey    string        `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TotalRows         int           `json:"total_rows" db:"total_rows"`
	ValidCount        int           `json:"valid" db:"valid_count"`
	DuplicateCount    int           `json:"duplicates" db:"duplicate_count"`
	ErrorCount        int           `json:"errors" db:"error_count"`
	CommittedCount    int           `json:"committed" db:"committed_count"`
	CommitFailedCount int           `json:"commit_failed" db:"commit_failed_count"`
	DurationMs        int64         `json:"duration_ms,omitempty" db:"duration_ms"`
	Result            *ImportResult `json:"result,omitempty" db:"result"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	StartedAt         *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// JobError is a stored validation or commit error for a job
type JobError struct {
	Line    int          `json:"line"`
	Kind    JobErrorKind `json:"kind"`
	Field   string       `json:"field,omitempty"`
	Message string       `json:"message"`
	Value   interface{}  `json:"value,omitempty"`
}

// JobResponse is the API response for job status
type JobResponse struct {
	ImportJob
	CommitErrors []JobError `json:"commit_errors,omitempty"`
	ErrorReport  string     `json:"error_report_url,omitempty"`
}

// ImportRequest represents an import preview request
type ImportRequest struct {
	OrganizationID string `json:"organization_id"`
	IdempotencyKey string `json:"-"` // From header
}
