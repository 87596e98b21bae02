package mocks

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/service"
)

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	PreviewFunc   func(ctx context.Context, req *models.ImportRequest, filename string, data []byte) (*models.ImportJob, error)
	CommitFunc    func(ctx context.Context, jobID string) (*models.ImportJob, error)
	CancelFunc    func(ctx context.Context, jobID string) (*models.ImportJob, error)
	ProcessFunc   func(ctx context.Context, job *models.ImportJob) error
	PreviewedJobs []*models.ImportJob
	ProcessedJobs []*models.ImportJob
	Uploads       map[string][]byte
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		PreviewedJobs: make([]*models.ImportJob, 0),
		ProcessedJobs: make([]*models.ImportJob, 0),
		Uploads:       make(map[string][]byte),
	}
}

func (m *MockImportService) PreviewImport(ctx context.Context, req *models.ImportRequest, filename string, data []byte) (*models.ImportJob, error) {
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx, req, filename, data)
	}
	m.Uploads[filename] = data
	job := &models.ImportJob{
		ID:             "test-job-id",
		OrganizationID: req.OrganizationID,
		FileName:       filename,
		Status:         models.JobStatusPreviewed,
		IdempotencyKey: req.IdempotencyKey,
		Result: &models.ImportResult{
			ValidLeads: []models.CandidateLead{},
			Errors:     []models.ImportError{},
			Duplicates: []models.DuplicateInfo{},
		},
		CreatedAt: time.Now(),
	}
	m.PreviewedJobs = append(m.PreviewedJobs, job)
	return job, nil
}

func (m *MockImportService) CommitImport(ctx context.Context, jobID string) (*models.ImportJob, error) {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, jobID)
	}
	return &models.ImportJob{ID: jobID, Status: models.JobStatusPending}, nil
}

func (m *MockImportService) CancelImport(ctx context.Context, jobID string) (*models.ImportJob, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, jobID)
	}
	return &models.ImportJob{ID: jobID, Status: models.JobStatusCancelled}, nil
}

func (m *MockImportService) ProcessCommit(ctx context.Context, job *models.ImportJob) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, job)
	}
	m.ProcessedJobs = append(m.ProcessedJobs, job)
	job.Status = models.JobStatusCompleted
	return nil
}

// MockLeadService is a mock implementation of LeadService
type MockLeadService struct {
	Leads      map[string]*models.Lead
	CreateFunc func(ctx context.Context, organizationID string, req *models.CreateLeadRequest) (*models.Lead, error)
}

// Verify interface compliance
var _ service.LeadService = (*MockLeadService)(nil)

func NewMockLeadService() *MockLeadService {
	return &MockLeadService{Leads: make(map[string]*models.Lead)}
}

func (m *MockLeadService) CreateLead(ctx context.Context, organizationID string, req *models.CreateLeadRequest) (*models.Lead, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, organizationID, req)
	}
	lead := &models.Lead{
		ID:             "lead-" + req.Name,
		OrganizationID: organizationID,
		Name:           req.Name,
		Email:          req.Email,
		Status:         models.LeadStatusNew,
		CreatedAt:      time.Now(),
	}
	m.Leads[lead.ID] = lead
	return lead, nil
}

func (m *MockLeadService) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, ok := m.Leads[id]
	if !ok {
		return nil, service.ErrLeadNotFound
	}
	return lead, nil
}

func (m *MockLeadService) ListLeads(ctx context.Context, organizationID string, limit, offset int) ([]*models.Lead, int, error) {
	leads := make([]*models.Lead, 0)
	for _, lead := range m.Leads {
		if lead.OrganizationID == organizationID {
			leads = append(leads, lead)
		}
	}
	return leads, len(leads), nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamLeadsFunc func(ctx context.Context, w http.ResponseWriter, organizationID, format string) error
	Counts          map[string]int
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{Counts: make(map[string]int)}
}

func (m *MockExportService) StreamLeads(ctx context.Context, w http.ResponseWriter, organizationID, format string) error {
	if m.StreamLeadsFunc != nil {
		return m.StreamLeadsFunc(ctx, w, organizationID, format)
	}
	return nil
}

func (m *MockExportService) GetCount(ctx context.Context, organizationID string) (int, error) {
	return m.Counts[organizationID], nil
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs          map[string]*models.JobResponse
	Errors        map[string][]models.JobError
	ImportService service.ImportService
}

// Verify interface compliance
var _ service.JobService = (*MockJobService)(nil)

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:   make(map[string]*models.JobResponse),
		Errors: make(map[string][]models.JobError),
	}
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	job, ok := m.Jobs[id]
	if !ok {
		return nil, service.ErrJobNotFound
	}
	return job, nil
}

func (m *MockJobService) GetJobByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.ImportJob, error) {
	for _, job := range m.Jobs {
		if job.OrganizationID == organizationID && job.IdempotencyKey == key {
			return &job.ImportJob, nil
		}
	}
	return nil, nil
}

func (m *MockJobService) GetJobErrors(ctx context.Context, id string, kind models.JobErrorKind) ([]models.JobError, error) {
	if _, ok := m.Jobs[id]; !ok {
		return nil, service.ErrJobNotFound
	}
	var errors []models.JobError
	for _, e := range m.Errors[id] {
		if kind == "" || e.Kind == kind {
			errors = append(errors, e)
		}
	}
	return errors, nil
}

func (m *MockJobService) SetImportService(importService service.ImportService) {
	m.ImportService = importService
}

// MockHealthService is a mock implementation of HealthService
type MockHealthService struct {
	Err   error
	Stats sql.DBStats
}

// Verify interface compliance
var _ service.HealthService = (*MockHealthService)(nil)

func (m *MockHealthService) Check(ctx context.Context) error {
	return m.Err
}

func (m *MockHealthService) PoolStats() sql.DBStats {
	return m.Stats
}
