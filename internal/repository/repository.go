package repository

import (
	"context"
	"database/sql"

	"github.com/crm-lead-import-api/internal/database"
	"github.com/crm-lead-import-api/internal/models"
)

// LeadRepository defines the interface for lead data operations
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	// ListByOrganization returns leads oldest first. A limit of 0 returns all of them.
	ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*models.Lead, error)
	// Count counts leads of one organization, or of all when organizationID is empty
	Count(ctx context.Context, organizationID string) (int, error)
	StreamByOrganization(ctx context.Context, organizationID string, callback func(*models.Lead) error) error
}

// JobRepository defines the interface for import job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.ImportJob) error
	Update(ctx context.Context, job *models.ImportJob) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	GetByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.ImportJob, error)
	GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	// TransitionStatus moves a job from one status to another only if it is
	// still in the from status
	TransitionStatus(ctx context.Context, jobID string, from, to models.JobStatus) (bool, error)
	AddErrors(ctx context.Context, jobID string, errors []models.JobError) error
	// GetErrors lists errors of a job by line. An empty kind returns every kind.
	GetErrors(ctx context.Context, jobID string, kind models.JobErrorKind, limit int) ([]models.JobError, error)
}

// StoreStatus reports on the database behind the repositories
type StoreStatus interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// Repositories holds all repository interfaces
type Repositories struct {
	Lead LeadRepository
	Job  JobRepository
	// Store is nil when the repositories are not backed by a database
	Store StoreStatus
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Lead:  NewLeadRepo(db),
		Job:   NewJobRepo(db),
		Store: db,
	}
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
