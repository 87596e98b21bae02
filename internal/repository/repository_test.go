package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/crm-lead-import-api/internal/mocks"
	"github.com/crm-lead-import-api/internal/models"
)

func TestMockLeadRepository_SnapshotOrder(t *testing.T) {
	repo := mocks.NewMockLeadRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		org := "org-1"
		if i%2 == 1 {
			org = "org-2"
		}
		repo.Create(ctx, &models.Lead{
			ID:             fmt.Sprintf("lead-%d", i),
			OrganizationID: org,
			Name:           fmt.Sprintf("Lead %d", i),
			CreatedAt:      time.Now(),
		})
	}

	leads, err := repo.ListByOrganization(ctx, "org-1", 0, 0)
	if err != nil {
		t.Fatalf("ListByOrganization failed: %v", err)
	}
	if len(leads) != 3 {
		t.Fatalf("Expected 3 leads, got %d", len(leads))
	}
	for i, want := range []string{"lead-0", "lead-2", "lead-4"} {
		if leads[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, leads[i].ID)
		}
	}

	page, _ := repo.ListByOrganization(ctx, "org-1", 1, 2)
	if len(page) != 1 || page[0].ID != "lead-4" {
		t.Errorf("Expected lead-4 on the last page, got %v", page)
	}
}

func TestMockLeadRepository_Count(t *testing.T) {
	repo := mocks.NewMockLeadRepository()
	ctx := context.Background()

	// Initially empty
	count, _ := repo.Count(ctx, "")
	if count != 0 {
		t.Errorf("Expected 0, got %d", count)
	}

	for i := 0; i < 5; i++ {
		repo.Create(ctx, &models.Lead{ID: fmt.Sprintf("lead-%d", i), OrganizationID: fmt.Sprintf("org-%d", i%2)})
	}

	count, _ = repo.Count(ctx, "")
	if count != 5 {
		t.Errorf("Expected 5, got %d", count)
	}
	count, _ = repo.Count(ctx, "org-0")
	if count != 3 {
		t.Errorf("Expected 3 in org-0, got %d", count)
	}
}

func TestLead_Snapshot(t *testing.T) {
	lead := &models.Lead{ID: "lead-1", Name: "John", Email: "j@x.com", Phone: "1", Company: "Acme", Notes: "ignored"}

	snap := lead.Snapshot()
	if snap.ID != "lead-1" || snap.Email != "j@x.com" || snap.Company != "Acme" {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
}

func TestMockJobRepository_PendingJobs(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()
	now := time.Now()

	// Create jobs with different statuses
	jobs := []*models.ImportJob{
		{ID: "job-1", Status: models.JobStatusPending, CreatedAt: now.Add(2 * time.Second)},
		{ID: "job-2", Status: models.JobStatusProcessing, CreatedAt: now},
		{ID: "job-3", Status: models.JobStatusPending, CreatedAt: now},
		{ID: "job-4", Status: models.JobStatusPreviewed, CreatedAt: now},
	}

	for _, job := range jobs {
		repo.Create(ctx, job)
	}

	pending, err := repo.GetPendingJobs(ctx)
	if err != nil {
		t.Fatalf("GetPendingJobs failed: %v", err)
	}

	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending jobs, got %d", len(pending))
	}
	if pending[0].ID != "job-3" {
		t.Errorf("Expected oldest job first, got %s", pending[0].ID)
	}
}

func TestMockJobRepository_MarkAsProcessing(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.ImportJob{ID: "job-1", Status: models.JobStatusPending})

	marked, err := repo.MarkJobAsProcessing(ctx, "job-1")
	if err != nil {
		t.Fatalf("MarkJobAsProcessing failed: %v", err)
	}
	if !marked {
		t.Error("Job should be marked as processing")
	}

	// Try to mark again (should fail - already processing)
	marked, _ = repo.MarkJobAsProcessing(ctx, "job-1")
	if marked {
		t.Error("Job should not be marked again")
	}
}

func TestMockJobRepository_TransitionStatus(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()
	repo.Create(ctx, &models.ImportJob{ID: "job-1", Status: models.JobStatusPreviewed})

	ok, _ := repo.TransitionStatus(ctx, "job-1", models.JobStatusPending, models.JobStatusProcessing)
	if ok {
		t.Error("Transition from the wrong status should not apply")
	}

	ok, _ = repo.TransitionStatus(ctx, "job-1", models.JobStatusPreviewed, models.JobStatusPending)
	if !ok {
		t.Error("Transition from previewed to pending should apply")
	}
	if repo.Status("job-1") != models.JobStatusPending {
		t.Errorf("Expected pending, got %s", repo.Status("job-1"))
	}
}

func TestMockJobRepository_Errors(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.ImportJob{ID: "job-1", Status: models.JobStatusPreviewed})

	errors := []models.JobError{
		{Line: 5, Kind: models.JobErrorValidation, Field: "email", Message: "Invalid email", Value: "not-an-email"},
		{Line: 2, Kind: models.JobErrorValidation, Field: "name", Message: "Name is required"},
		{Line: 0, Kind: models.JobErrorCommit, Message: "pq: deadlock detected", Value: "John"},
	}
	repo.AddErrors(ctx, "job-1", errors)

	retrieved, err := repo.GetErrors(ctx, "job-1", "", 0)
	if err != nil {
		t.Fatalf("GetErrors failed: %v", err)
	}
	if len(retrieved) != 3 {
		t.Errorf("Expected 3 errors, got %d", len(retrieved))
	}
	if retrieved[0].Line != 0 || retrieved[2].Line != 5 {
		t.Errorf("Errors should be ordered by line, got %+v", retrieved)
	}

	validation, _ := repo.GetErrors(ctx, "job-1", models.JobErrorValidation, 0)
	if len(validation) != 2 {
		t.Errorf("Expected 2 validation errors, got %d", len(validation))
	}

	// Test limit
	retrieved, _ = repo.GetErrors(ctx, "job-1", "", 2)
	if len(retrieved) != 2 {
		t.Errorf("Expected 2 errors with limit, got %d", len(retrieved))
	}
}

func TestMockJobRepository_IdempotencyKey(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.ImportJob{
		ID:             "job-1",
		OrganizationID: "org-1",
		Status:         models.JobStatusPreviewed,
		IdempotencyKey: "unique-key-123",
	})

	retrieved, err := repo.GetByIdempotencyKey(ctx, "org-1", "unique-key-123")
	if err != nil {
		t.Fatalf("GetByIdempotencyKey failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Job should be found by idempotency key")
	}
	if retrieved.ID != "job-1" {
		t.Errorf("Expected job-1, got %s", retrieved.ID)
	}

	// Non-existent key
	retrieved, _ = repo.GetByIdempotencyKey(ctx, "org-1", "non-existent")
	if retrieved != nil {
		t.Error("Should not find job with non-existent key")
	}

	// Same key from another organization
	retrieved, _ = repo.GetByIdempotencyKey(ctx, "org-2", "unique-key-123")
	if retrieved != nil {
		t.Error("Should not find another organization's job")
	}
}
