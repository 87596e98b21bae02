package service_test

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crm-lead-import-api/internal/mocks"
	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/repository"
	"github.com/crm-lead-import-api/internal/service"
	"github.com/rs/zerolog"
)

func floatPtr(f float64) *float64 { return &f }

// --- Job service ---

func TestJobService_GetJob(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	h.jobRepo.Create(ctx, &models.ImportJob{
		ID:                "test-job-123",
		OrganizationID:    testOrg,
		Status:            models.JobStatusCompleted,
		TotalRows:         1000,
		ValidCount:        950,
		ErrorCount:        50,
		CommittedCount:    948,
		CommitFailedCount: 2,
		CreatedAt:         time.Now(),
	})
	h.jobRepo.AddErrors(ctx, "test-job-123", []models.JobError{
		{Line: 10, Kind: models.JobErrorValidation, Field: "email", Message: "Invalid email"},
		{Line: 0, Kind: models.JobErrorCommit, Message: "pq: deadlock detected", Value: "A"},
		{Line: 0, Kind: models.JobErrorCommit, Message: "pq: deadlock detected", Value: "B"},
	})

	resp, err := h.services.Job.GetJob(ctx, "test-job-123")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if resp.TotalRows != 1000 {
		t.Errorf("Expected 1000 total rows, got %d", resp.TotalRows)
	}
	if len(resp.CommitErrors) != 2 {
		t.Errorf("Expected 2 commit errors, got %d", len(resp.CommitErrors))
	}
	if resp.ErrorReport != "/v1/imports/test-job-123/errors" {
		t.Errorf("Unexpected error report url: %s", resp.ErrorReport)
	}
}

func TestJobService_GetJobNotFound(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.services.Job.GetJob(context.Background(), "missing")
	if !errors.Is(err, service.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}

	_, err = h.services.Job.GetJobErrors(context.Background(), "missing", "")
	if !errors.Is(err, service.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound from GetJobErrors, got %v", err)
	}
}

func TestJobService_GetJobErrorsByKind(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	h.jobRepo.Create(ctx, &models.ImportJob{ID: "job-1", Status: models.JobStatusCompleted})
	h.jobRepo.AddErrors(ctx, "job-1", []models.JobError{
		{Line: 3, Kind: models.JobErrorValidation, Message: "Name is required"},
		{Line: 0, Kind: models.JobErrorCommit, Message: "boom"},
	})

	tests := []struct {
		kind     models.JobErrorKind
		expected int
	}{
		{"", 2},
		{models.JobErrorValidation, 1},
		{models.JobErrorCommit, 1},
	}

	for _, tt := range tests {
		errs, err := h.services.Job.GetJobErrors(ctx, "job-1", tt.kind)
		if err != nil {
			t.Fatalf("GetJobErrors(%q) failed: %v", tt.kind, err)
		}
		if len(errs) != tt.expected {
			t.Errorf("GetJobErrors(%q): expected %d, got %d", tt.kind, tt.expected, len(errs))
		}
	}
}

func TestJobService_ProcessorPicksUpCommittedJobs(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	previewed := preview(t, h, "Name\nA\n")
	h.jobRepo.Create(ctx, &models.ImportJob{ID: "not-committed", Status: models.JobStatusPreviewed})
	h.services.Import.CommitImport(ctx, previewed.ID)

	processed := make(chan string, 4)
	mockImport := mocks.NewMockImportService()
	mockImport.ProcessFunc = func(ctx context.Context, job *models.ImportJob) error {
		processed <- job.ID
		return nil
	}
	h.services.Job.SetImportService(mockImport)

	go h.services.Job.StartProcessor(ctx)
	defer h.services.Job.StopProcessor()

	select {
	case id := <-processed:
		if id != previewed.ID {
			t.Errorf("Expected job %s to be processed, got %s", previewed.ID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Processor did not pick up the committed job")
	}

	if h.jobRepo.Status(previewed.ID) != models.JobStatusProcessing {
		t.Errorf("Expected processing, got %s", h.jobRepo.Status(previewed.ID))
	}
	if h.jobRepo.Status("not-committed") != models.JobStatusPreviewed {
		t.Error("Previewed jobs must not be processed")
	}
}

func TestJobService_ProcessorRecoversFromPanic(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	job := preview(t, h, "Name\nA\n")
	h.services.Import.CommitImport(ctx, job.ID)

	mockImport := mocks.NewMockImportService()
	mockImport.ProcessFunc = func(ctx context.Context, job *models.ImportJob) error {
		panic("boom")
	}
	h.services.Job.SetImportService(mockImport)

	go h.services.Job.StartProcessor(ctx)
	defer h.services.Job.StopProcessor()

	deadline := time.Now().Add(2 * time.Second)
	for h.jobRepo.Status(job.ID) != models.JobStatusFailed {
		if time.Now().After(deadline) {
			t.Fatalf("Expected failed after panic, got %s", h.jobRepo.Status(job.ID))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// --- Lead service ---

func TestLeadService_CreateLead(t *testing.T) {
	tests := []struct {
		name      string
		req       models.CreateLeadRequest
		wantField string
		want      models.LeadStatus
	}{
		{name: "defaults status", req: models.CreateLeadRequest{Name: "A"}, want: models.LeadStatusNew},
		{name: "explicit status", req: models.CreateLeadRequest{Name: "A", Status: "Meeting"}, want: models.LeadStatusMeeting},
		{name: "invalid email", req: models.CreateLeadRequest{Name: "A", Email: "nope"}, wantField: "email"},
		{name: "negative value", req: models.CreateLeadRequest{Name: "A", EstimatedValue: floatPtr(-1)}, wantField: "estimatedValue"},
		{name: "unknown status", req: models.CreateLeadRequest{Name: "A", Status: "archived"}, wantField: "status"},
		{name: "blank name", req: models.CreateLeadRequest{Name: "  "}, wantField: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(t)

			lead, err := h.services.Lead.CreateLead(context.Background(), testOrg, &tt.req)
			if tt.wantField != "" {
				var vErr *service.LeadValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("Expected LeadValidationError, got %v", err)
				}
				if vErr.Errors[0].Field != tt.wantField {
					t.Errorf("Expected error on %s, got %s", tt.wantField, vErr.Errors[0].Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateLead failed: %v", err)
			}
			if lead.Status != tt.want {
				t.Errorf("Expected status %s, got %s", tt.want, lead.Status)
			}
			if lead.OrganizationID != testOrg || lead.ID == "" {
				t.Errorf("Lead not scoped or identified: %+v", lead)
			}
		})
	}
}

func TestLeadService_GetAndList(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		seedLead(h, "lead-"+string(rune('a'+i)), "Lead", "", "")
	}

	lead, err := h.services.Lead.GetLead(ctx, "lead-b")
	if err != nil || lead == nil {
		t.Fatalf("GetLead failed: %v", err)
	}

	_, err = h.services.Lead.GetLead(ctx, "missing")
	if !errors.Is(err, service.ErrLeadNotFound) {
		t.Errorf("Expected ErrLeadNotFound, got %v", err)
	}

	page, total, err := h.services.Lead.ListLeads(ctx, testOrg, 2, 1)
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if len(page) != 2 || page[0].ID != "lead-b" {
		t.Errorf("Unexpected page: %d leads", len(page))
	}
}

// --- Export service ---

func TestExportService_StreamLeads(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	h.leadRepo.Create(ctx, &models.Lead{
		ID: "lead-1", OrganizationID: testOrg, Name: "John Doe", Email: "john@example.com",
		EstimatedValue: floatPtr(1500.5), Status: models.LeadStatusMeeting, CreatedAt: time.Now(),
	})
	h.leadRepo.Create(ctx, &models.Lead{ID: "lead-2", OrganizationID: testOrg, Name: "Jane", Status: models.LeadStatusNew})
	h.leadRepo.Create(ctx, &models.Lead{ID: "other", OrganizationID: "org-2", Name: "Elsewhere"})

	t.Run("ndjson", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := h.services.Export.StreamLeads(ctx, w, testOrg, "ndjson"); err != nil {
			t.Fatalf("StreamLeads failed: %v", err)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
			t.Errorf("Expected ndjson content type, got %s", ct)
		}
		lines := 0
		scanner := bufio.NewScanner(w.Body)
		for scanner.Scan() {
			var lead models.Lead
			if err := json.Unmarshal(scanner.Bytes(), &lead); err != nil {
				t.Fatalf("Invalid ndjson line: %v", err)
			}
			lines++
		}
		if lines != 2 {
			t.Errorf("Expected 2 lines, got %d", lines)
		}
	})

	t.Run("json", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := h.services.Export.StreamLeads(ctx, w, testOrg, "json"); err != nil {
			t.Fatalf("StreamLeads failed: %v", err)
		}
		var leads []models.Lead
		if err := json.Unmarshal(w.Body.Bytes(), &leads); err != nil {
			t.Fatalf("Invalid json array: %v", err)
		}
		if len(leads) != 2 || leads[0].Name != "John Doe" {
			t.Errorf("Unexpected export: %+v", leads)
		}
	})

	t.Run("csv", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := h.services.Export.StreamLeads(ctx, w, testOrg, "csv"); err != nil {
			t.Fatalf("StreamLeads failed: %v", err)
		}
		records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
		if err != nil {
			t.Fatalf("Invalid csv: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("Expected header and 2 rows, got %d", len(records))
		}
		if records[0][0] != "Name" || records[1][0] != "John Doe" {
			t.Errorf("Unexpected csv: %v", records[:2])
		}
		if records[1][4] != "1500.5" || records[1][5] != "meeting" {
			t.Errorf("Unexpected value or status: %v", records[1])
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := h.services.Export.StreamLeads(ctx, w, testOrg, "xml"); err == nil {
			t.Error("Expected error for unsupported format")
		}
	})
}

func TestExportService_CsvCanBeReimported(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()
	seedLead(h, "lead-1", "John Doe", "john@example.com", "Acme")

	w := httptest.NewRecorder()
	if err := h.services.Export.StreamLeads(ctx, w, testOrg, "csv"); err != nil {
		t.Fatalf("StreamLeads failed: %v", err)
	}

	job := preview(t, h, w.Body.String())
	if job.ErrorCount != 0 || job.DuplicateCount != 1 {
		t.Errorf("Expected the exported lead to come back as one duplicate, got %d errors and %d duplicates",
			job.ErrorCount, job.DuplicateCount)
	}
}

func TestExportService_GetCount(t *testing.T) {
	h := newTestHarness(t)
	seedLead(h, "lead-1", "A", "", "")
	seedLead(h, "lead-2", "B", "", "")

	count, err := h.services.Export.GetCount(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("GetCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2, got %d", count)
	}
}

// --- Health service ---

func TestHealthService_WithoutStore(t *testing.T) {
	h := newTestHarness(t)

	if err := h.services.Health.Check(context.Background()); err != nil {
		t.Errorf("In-memory repositories should be healthy, got %v", err)
	}
	if stats := h.services.Health.PoolStats(); stats.OpenConnections != 0 {
		t.Errorf("Expected zero pool stats, got %+v", stats)
	}
}

func TestHealthService_WrapsStoreErrors(t *testing.T) {
	pingErr := errors.New("connection refused")
	store := &mocks.MockStore{PingError: pingErr, PoolStats: sql.DBStats{InUse: 4}}
	repos := &repository.Repositories{Lead: mocks.NewMockLeadRepository(), Job: mocks.NewMockJobRepository(), Store: store}
	services := service.NewServices(repos, &config.Config{}, zerolog.Nop())

	err := services.Health.Check(context.Background())
	if !errors.Is(err, pingErr) {
		t.Errorf("Expected wrapped ping error, got %v", err)
	}
	if services.Health.PoolStats().InUse != 4 {
		t.Errorf("Expected pool stats from the store, got %+v", services.Health.PoolStats())
	}
}
