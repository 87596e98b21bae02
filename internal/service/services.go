package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/repository"
	"github.com/rs/zerolog"
)

var (
	// ErrJobNotFound is returned when no import job has the requested id
	ErrJobNotFound = errors.New("import job not found")
	// ErrJobNotCommittable is returned when a job is not in a state that allows the transition
	ErrJobNotCommittable = errors.New("import job cannot be changed in its current state")
	// ErrLeadNotFound is returned when no lead has the requested id
	ErrLeadNotFound = errors.New("lead not found")
)

// ImportService defines the interface for import operations
type ImportService interface {
	PreviewImport(ctx context.Context, req *models.ImportRequest, filename string, data []byte) (*models.ImportJob, error)
	CommitImport(ctx context.Context, jobID string) (*models.ImportJob, error)
	CancelImport(ctx context.Context, jobID string) (*models.ImportJob, error)
	ProcessCommit(ctx context.Context, job *models.ImportJob) error
}

// LeadService defines the interface for lead operations
type LeadService interface {
	CreateLead(ctx context.Context, organizationID string, req *models.CreateLeadRequest) (*models.Lead, error)
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	ListLeads(ctx context.Context, organizationID string, limit, offset int) ([]*models.Lead, int, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamLeads(ctx context.Context, w http.ResponseWriter, organizationID, format string) error
	GetCount(ctx context.Context, organizationID string) (int, error)
}

// JobService defines the interface for job management
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.ImportJob, error)
	GetJobErrors(ctx context.Context, id string, kind models.JobErrorKind) ([]models.JobError, error)
	SetImportService(importService ImportService)
}

// HealthService reports database reachability and pool usage
type HealthService interface {
	Check(ctx context.Context) error
	PoolStats() sql.DBStats
}

// Services holds all service interfaces
type Services struct {
	Import ImportService
	Lead   LeadService
	Export ExportService
	Job    JobService
	Health HealthService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	jobSvc := newJobService(repos.Job, cfg.Import, log)
	importSvc := newImportService(repos, cfg, log)
	leadSvc := newLeadService(repos, log)
	exportSvc := newExportService(repos, log)

	// Wire up job processor to import service
	jobSvc.SetImportService(importSvc)

	return &Services{
		Import: importSvc,
		Lead:   leadSvc,
		Export: exportSvc,
		Job:    jobSvc,
		Health: newHealthService(repos.Store),
	}
}
