package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.LeadRepository = (*MockLeadRepository)(nil)
	_ repository.JobRepository  = (*MockJobRepository)(nil)
)

// MockLeadRepository is an in-memory LeadRepository. Leads keep insertion order.
type MockLeadRepository struct {
	mu          sync.Mutex
	Leads       map[string]*models.Lead
	Order       []string
	InsertError error
	ListError   error
	// CreateFunc, when set, replaces Create entirely
	CreateFunc  func(ctx context.Context, lead *models.Lead) error
	CreateCalls int
}

func NewMockLeadRepository() *MockLeadRepository {
	return &MockLeadRepository{
		Leads: make(map[string]*models.Lead),
	}
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	m.mu.Lock()
	m.CreateCalls++
	createFunc := m.CreateFunc
	m.mu.Unlock()

	if createFunc != nil {
		if err := createFunc(ctx, lead); err != nil {
			return err
		}
	} else if m.InsertError != nil {
		return m.InsertError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Leads[lead.ID] = lead
	m.Order = append(m.Order, lead.ID)
	return nil
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Leads[id], nil
}

func (m *MockLeadRepository) ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*models.Lead, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	all := m.byOrganization(organizationID)
	if limit <= 0 {
		return all, nil
	}
	if offset >= len(all) {
		return []*models.Lead{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MockLeadRepository) Count(ctx context.Context, organizationID string) (int, error) {
	if organizationID == "" {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.Leads), nil
	}
	return len(m.byOrganization(organizationID)), nil
}

func (m *MockLeadRepository) StreamByOrganization(ctx context.Context, organizationID string, callback func(*models.Lead) error) error {
	for _, lead := range m.byOrganization(organizationID) {
		if err := callback(lead); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockLeadRepository) byOrganization(organizationID string) []*models.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	leads := make([]*models.Lead, 0)
	for _, id := range m.Order {
		if lead := m.Leads[id]; lead.OrganizationID == organizationID {
			leads = append(leads, lead)
		}
	}
	return leads
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mu              sync.Mutex
	Jobs            map[string]*models.ImportJob
	IdempotencyJobs map[string]*models.ImportJob
	Errors          map[string][]models.JobError
	CreateError     error
	UpdateError     error
	UpdateCalls     int
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		Jobs:            make(map[string]*models.ImportJob),
		IdempotencyJobs: make(map[string]*models.ImportJob),
		Errors:          make(map[string][]models.JobError),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *job
	m.Jobs[job.ID] = &stored
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[idempotencyIndex(job.OrganizationID, job.IdempotencyKey)] = &stored
	}
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored, ok := m.Jobs[job.ID]
	if !ok {
		return nil
	}
	stored.Status = job.Status
	stored.CommittedCount = job.CommittedCount
	stored.CommitFailedCount = job.CommitFailedCount
	stored.DurationMs = job.DurationMs
	stored.StartedAt = job.StartedAt
	stored.CompletedAt = job.CompletedAt
	return nil
}

// GetByID returns a copy so callers cannot mutate stored state behind the repository
func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.IdempotencyJobs[idempotencyIndex(organizationID, key)]
	if !ok {
		return nil, nil
	}
	copied := *m.Jobs[job.ID]
	return &copied, nil
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.ImportJob
	for _, job := range m.Jobs {
		if job.Status == models.JobStatusPending {
			pending = append(pending, &models.ImportJob{
				ID:             job.ID,
				OrganizationID: job.OrganizationID,
				FileName:       job.FileName,
				Status:         job.Status,
				CreatedAt:      job.CreatedAt,
			})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (m *MockJobRepository) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	return m.TransitionStatus(ctx, jobID, models.JobStatusPending, models.JobStatusProcessing)
}

func (m *MockJobRepository) TransitionStatus(ctx context.Context, jobID string, from, to models.JobStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.Jobs[jobID]
	if !exists || job.Status != from {
		return false, nil
	}
	job.Status = to
	return true, nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.JobError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[jobID] = append(m.Errors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, kind models.JobErrorKind, limit int) ([]models.JobError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errors []models.JobError
	for _, e := range m.Errors[jobID] {
		if kind == "" || e.Kind == kind {
			errors = append(errors, e)
		}
	}
	sort.SliceStable(errors, func(i, j int) bool { return errors[i].Line < errors[j].Line })
	if limit > 0 && len(errors) > limit {
		return errors[:limit], nil
	}
	return errors, nil
}

// Status returns the stored status of a job, or "" when unknown
func (m *MockJobRepository) Status(jobID string) models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[jobID]; ok {
		return job.Status
	}
	return ""
}

func idempotencyIndex(organizationID, key string) string {
	return organizationID + "\x00" + key
}

// MockStore is a mock implementation of StoreStatus
type MockStore struct {
	PingError error
	PoolStats sql.DBStats
	PingCalls int
}

// Verify interface compliance
var _ repository.StoreStatus = (*MockStore)(nil)

func (m *MockStore) HealthCheck(ctx context.Context) error {
	m.PingCalls++
	return m.PingError
}

func (m *MockStore) Stats() sql.DBStats {
	return m.PoolStats
}
