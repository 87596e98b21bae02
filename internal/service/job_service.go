package service

import (
	"context"
	"sync"
	"time"

	"github.com/crm-lead-import-api/internal/config"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/crm-lead-import-api/internal/repository"
	"github.com/rs/zerolog"
)

// commitErrorPreviewLimit caps the commit errors embedded in a job response
const commitErrorPreviewLimit = 100

// jobService is the concrete implementation of JobService
type jobService struct {
	jobRepo       repository.JobRepository
	importService ImportService
	interval      time.Duration
	log           zerolog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	running       bool
	mu            sync.Mutex
	// Semaphore: buffered channel to limit concurrent commits
	sem chan struct{}
}

// newJobService creates a new JobService with a worker pool sized from config
func newJobService(jobRepo repository.JobRepository, cfg config.ImportConfig, log zerolog.Logger) *jobService {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	interval := cfg.ProcessorInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	log.Info().Int("max_workers", maxWorkers).Dur("interval", interval).Msg("Initializing commit worker pool")

	return &jobService{
		jobRepo:  jobRepo,
		interval: interval,
		log:      log.With().Str("service", "job").Logger(),
		sem:      make(chan struct{}, maxWorkers),
	}
}

// SetImportService sets the import service for commit processing
func (s *jobService) SetImportService(importService ImportService) {
	s.importService = importService
}

// StartProcessor polls for committed jobs until ctx is done or StopProcessor is called
func (s *jobService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().Msg("Job processor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Job processor stopping")
			s.wg.Wait()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.processPendingJobs()
		}
	}
}

// StopProcessor stops the background job processor and waits for running commits
func (s *jobService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.log.Info().Msg("Job processor stopped")
}

// processPendingJobs hands every pending job to a worker
func (s *jobService) processPendingJobs() {
	jobs, err := s.jobRepo.GetPendingJobs(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending jobs")
		return
	}

	for _, job := range jobs {
		// Acquire semaphore slot - blocks if all workers are busy
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		if !s.reserveWorker() {
			<-s.sem
			return
		}

		// Mark as processing atomically
		marked, err := s.jobRepo.MarkJobAsProcessing(s.ctx, job.ID)
		if err != nil || !marked {
			s.wg.Done()
			<-s.sem  // Release slot since we're not processing this job
			continue // Another worker already picked it up, or it was cancelled
		}

		go func(j *models.ImportJob) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Interface("panic", r).
						Str("job_id", j.ID).
						Msg("Commit processing panicked - recovered")
					now := time.Now()
					j.Status = models.JobStatusFailed
					j.CompletedAt = &now
					s.jobRepo.Update(context.WithoutCancel(s.ctx), j)
				}
			}()
			s.processJob(j)
		}(job)
	}
}

// reserveWorker registers a worker with the wait group unless the processor
// is stopping. StopProcessor holds mu across cancel and Wait, so Add never
// races a Wait.
func (s *jobService) reserveWorker() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

// processJob commits a single job
func (s *jobService) processJob(job *models.ImportJob) {
	select {
	case <-s.ctx.Done():
		s.log.Warn().Str("job_id", job.ID).Msg("Commit cancelled due to shutdown")
		return
	default:
	}

	s.log.Info().Str("job_id", job.ID).Str("organization_id", job.OrganizationID).Msg("Processing job")

	if s.importService == nil {
		s.log.Error().Str("job_id", job.ID).Msg("No import service wired to the processor")
		return
	}
	if err := s.importService.ProcessCommit(s.ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Commit processing failed")
	}
}

// GetJob retrieves a job with its first commit errors
func (s *jobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	response := &models.JobResponse{ImportJob: *job}

	if job.CommitFailedCount > 0 {
		errs, err := s.jobRepo.GetErrors(ctx, id, models.JobErrorCommit, commitErrorPreviewLimit)
		if err != nil {
			s.log.Error().Err(err).Str("job_id", id).Msg("Failed to get commit errors")
		}
		response.CommitErrors = errs
	}

	// Add error report URL if there are errors
	if job.ErrorCount > 0 || job.CommitFailedCount > 0 {
		response.ErrorReport = "/v1/imports/" + job.ID + "/errors"
	}

	return response, nil
}

// GetJobByIdempotencyKey retrieves a job by idempotency key
func (s *jobService) GetJobByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.ImportJob, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, organizationID, key)
}

// GetJobErrors retrieves every error of a job, optionally of one kind
func (s *jobService) GetJobErrors(ctx context.Context, id string, kind models.JobErrorKind) ([]models.JobError, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return s.jobRepo.GetErrors(ctx, id, kind, 0)
}
