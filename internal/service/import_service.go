package service

import (
	"context"
	"fmt"
	"time"

	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/internal/leadimport"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// errorFlushThreshold bounds how many commit errors are held in memory
// before they are written out.
const errorFlushThreshold = 1000

// importService is the concrete implementation of ImportService
type importService struct {
	repos    *repository.Repositories
	importer *leadimport.Importer
	cfg      *config.Config
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos:    repos,
		importer: leadimport.New(log),
		cfg:      cfg,
		log:      log.With().Str("service", "import").Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// PreviewImport runs the importer against the organization's current leads
// and stores the report as a previewed job. Nothing is written to leads.
func (s *importService) PreviewImport(ctx context.Context, req *models.ImportRequest, filename string, data []byte) (*models.ImportJob, error) {
	start := s.now()

	stored, err := s.repos.Lead.ListByOrganization(ctx, req.OrganizationID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing leads: %w", err)
	}
	existing := make([]models.ExistingLead, len(stored))
	for i, lead := range stored {
		existing[i] = lead.Snapshot()
	}

	result := s.importer.ImportBytes(data, filename, req.OrganizationID, existing)

	job := &models.ImportJob{
		ID:             s.newID(),
		OrganizationID: req.OrganizationID,
		FileName:       filename,
		Status:         models.JobStatusPreviewed,
		IdempotencyKey: req.IdempotencyKey,
		TotalRows:      result.TotalRows,
		ValidCount:     len(result.ValidLeads),
		DuplicateCount: len(result.Duplicates),
		ErrorCount:     len(result.Errors),
		Result:         result,
		CreatedAt:      start,
		DurationMs:     s.now().Sub(start).Milliseconds(),
	}

	if err := s.repos.Job.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to store import job: %w", err)
	}

	if len(result.Errors) > 0 {
		errs := make([]models.JobError, len(result.Errors))
		for i, e := range result.Errors {
			errs[i] = models.JobError{Line: e.Row, Kind: models.JobErrorValidation, Field: e.Field, Message: e.Message}
		}
		if err := s.repos.Job.AddErrors(ctx, job.ID, errs); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Int("count", len(errs)).Msg("Failed to store validation errors")
		}
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("organization_id", job.OrganizationID).
		Str("file", filename).
		Int("total_rows", job.TotalRows).
		Int("valid", job.ValidCount).
		Int("duplicates", job.DuplicateCount).
		Int("errors", job.ErrorCount).
		Int64("duration_ms", job.DurationMs).
		Msg("Import previewed")

	return job, nil
}

// CommitImport queues a previewed job for the processor
func (s *importService) CommitImport(ctx context.Context, jobID string) (*models.ImportJob, error) {
	job, err := s.transition(ctx, jobID, models.JobStatusPreviewed, models.JobStatusPending)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("job_id", job.ID).Int("valid", job.ValidCount).Msg("Import committed")
	return job, nil
}

// CancelImport discards a job that has not started committing
func (s *importService) CancelImport(ctx context.Context, jobID string) (*models.ImportJob, error) {
	job, err := s.transition(ctx, jobID, models.JobStatusPreviewed, models.JobStatusCancelled)
	if err == nil {
		s.log.Info().Str("job_id", job.ID).Msg("Import cancelled")
		return job, nil
	}
	if job == nil || job.Status != models.JobStatusPending {
		return nil, err
	}

	job, err = s.transition(ctx, jobID, models.JobStatusPending, models.JobStatusCancelled)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("job_id", job.ID).Msg("Queued import cancelled")
	return job, nil
}

// transition loads the job and moves it from one status to another. On a
// state conflict it returns the job as loaded together with ErrJobNotCommittable.
func (s *importService) transition(ctx context.Context, jobID string, from, to models.JobStatus) (*models.ImportJob, error) {
	job, err := s.repos.Job.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	ok, err := s.repos.Job.TransitionStatus(ctx, jobID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return job, fmt.Errorf("%w: job %s is %s", ErrJobNotCommittable, jobID, job.Status)
	}

	job.Status = to
	if to == models.JobStatusCancelled {
		now := s.now()
		job.CompletedAt = &now
	}
	return job, nil
}

// ProcessCommit creates one lead per valid row of a committed job. A lead
// that cannot be created is recorded as a commit error and the rest go on;
// the job only fails when it cannot run at all.
func (s *importService) ProcessCommit(ctx context.Context, job *models.ImportJob) error {
	startTime := s.now()

	full, err := s.repos.Job.GetByID(ctx, job.ID)
	if err != nil {
		return s.failJob(ctx, job, startTime, fmt.Errorf("failed to load job: %w", err))
	}
	if full == nil {
		return ErrJobNotFound
	}
	if full.Result == nil {
		return s.failJob(ctx, full, startTime, fmt.Errorf("job %s has no stored import result", full.ID))
	}
	*job = *full

	job.Status = models.JobStatusProcessing
	if job.StartedAt == nil {
		job.StartedAt = &startTime
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("organization_id", job.OrganizationID).
		Int("leads", len(job.Result.ValidLeads)).
		Msg("Starting commit processing")

	var commitErrors []models.JobError
	for i := range job.Result.ValidLeads {
		if err := ctx.Err(); err != nil {
			s.flushCommitErrors(ctx, job.ID, &commitErrors)
			return s.failJob(ctx, job, startTime, fmt.Errorf("commit interrupted after %d of %d leads: %w",
				job.CommittedCount+job.CommitFailedCount, len(job.Result.ValidLeads), err))
		}

		candidate := job.Result.ValidLeads[i]
		lead := candidate.ToLead(s.newID(), s.now())

		err := withRetry(ctx, newCommitBackoff(s.cfg.Import.CommitRetryMaxElapsed), func() error {
			return s.repos.Lead.Create(ctx, lead)
		})
		if err != nil {
			job.CommitFailedCount++
			commitErrors = append(commitErrors, models.JobError{
				Line:    candidate.Row,
				Kind:    models.JobErrorCommit,
				Message: err.Error(),
				Value:   candidate.Name,
			})
			s.log.Warn().Err(err).Str("job_id", job.ID).Str("lead", candidate.Name).Msg("Failed to create lead")
			if len(commitErrors) >= errorFlushThreshold {
				s.flushCommitErrors(ctx, job.ID, &commitErrors)
			}
			continue
		}
		job.CommittedCount++
	}
	s.flushCommitErrors(ctx, job.ID, &commitErrors)

	completedAt := s.now()
	job.CompletedAt = &completedAt
	job.DurationMs = completedAt.Sub(startTime).Milliseconds()
	job.Status = models.JobStatusCompleted

	s.log.Info().
		Str("job_id", job.ID).
		Int("committed", job.CommittedCount).
		Int("failed", job.CommitFailedCount).
		Int64("duration_ms", job.DurationMs).
		Msg("Commit completed")

	if err := s.repos.Job.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	return nil
}

// failJob marks the job failed and returns cause
func (s *importService) failJob(ctx context.Context, job *models.ImportJob, startTime time.Time, cause error) error {
	completedAt := s.now()
	job.Status = models.JobStatusFailed
	job.CompletedAt = &completedAt
	job.DurationMs = completedAt.Sub(startTime).Milliseconds()

	s.log.Error().Err(cause).Str("job_id", job.ID).Msg("Commit failed")

	// The caller's context may already be done; the final status still has to land.
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repos.Job.Update(updateCtx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark job as failed")
	}
	return cause
}

func (s *importService) flushCommitErrors(ctx context.Context, jobID string, errors *[]models.JobError) {
	if len(*errors) == 0 {
		return
	}
	if err := s.repos.Job.AddErrors(context.WithoutCancel(ctx), jobID, *errors); err != nil {
		s.log.Error().Err(err).Int("count", len(*errors)).Msg("Failed to flush commit errors")
	}
	*errors = (*errors)[:0]
}
