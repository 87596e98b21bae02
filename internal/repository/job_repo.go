package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crm-lead-import-api/internal/database"
	"github.com/crm-lead-import-api/internal/models"
	"github.com/lib/pq"
)

const jobColumns = `id, organization_id, file_name, status, idempotency_key, total_rows,
	valid_count, duplicate_count, error_count, committed_count, commit_failed_count,
	duration_ms, result, created_at, started_at, completed_at`

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new job together with its import report
func (r *jobRepo) Create(ctx context.Context, job *models.ImportJob) error {
	result, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO import_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.db.ExecContext(ctx, query,
		job.ID, job.OrganizationID, job.FileName, job.Status, nullString(job.IdempotencyKey),
		job.TotalRows, job.ValidCount, job.DuplicateCount, job.ErrorCount,
		job.CommittedCount, job.CommitFailedCount, job.DurationMs, result,
		job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	return err
}

// Update updates job status, counters and timestamps
func (r *jobRepo) Update(ctx context.Context, job *models.ImportJob) error {
	query := `
		UPDATE import_jobs SET
			status = $1, committed_count = $2, commit_failed_count = $3,
			duration_ms = $4, started_at = $5, completed_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.CommittedCount, job.CommitFailedCount,
		job.DurationMs, job.StartedAt, job.CompletedAt, job.ID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIdempotencyKey retrieves an organization's job by idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs WHERE organization_id = $1 AND idempotency_key = $2`
	return r.getOne(ctx, query, organizationID, key)
}

func (r *jobRepo) getOne(ctx context.Context, query string, args ...interface{}) (*models.ImportJob, error) {
	var job models.ImportJob
	var idempotencyKey sql.NullString
	var result []byte
	var startedAt, completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&job.ID, &job.OrganizationID, &job.FileName, &job.Status, &idempotencyKey,
		&job.TotalRows, &job.ValidCount, &job.DuplicateCount, &job.ErrorCount,
		&job.CommittedCount, &job.CommitFailedCount, &job.DurationMs, &result,
		&job.CreatedAt, &startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.IdempotencyKey = idempotencyKey.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if len(result) > 0 {
		job.Result = &models.ImportResult{}
		if err := json.Unmarshal(result, job.Result); err != nil {
			return nil, fmt.Errorf("failed to decode import result of job %s: %w", job.ID, err)
		}
	}

	return &job, nil
}

// GetPendingJobs retrieves committed jobs waiting for the processor, oldest first
func (r *jobRepo) GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error) {
	query := `
		SELECT id, organization_id, file_name, created_at
		FROM import_jobs WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		var job models.ImportJob
		if err := rows.Scan(&job.ID, &job.OrganizationID, &job.FileName, &job.CreatedAt); err != nil {
			continue
		}
		job.Status = models.JobStatusPending
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

// MarkJobAsProcessing atomically marks a pending job as processing
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE import_jobs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// TransitionStatus atomically moves a job between two statuses
func (r *jobRepo) TransitionStatus(ctx context.Context, jobID string, from, to models.JobStatus) (bool, error) {
	query := `UPDATE import_jobs SET status = $1 WHERE id = $2 AND status = $3`
	if to == models.JobStatusCancelled {
		query = `UPDATE import_jobs SET status = $1, completed_at = NOW() WHERE id = $2 AND status = $3`
	}
	result, err := r.db.ExecContext(ctx, query, to, jobID, from)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AddErrors stores job errors using the COPY protocol. A preview of a large
// file can carry tens of thousands of row errors.
func (r *jobRepo) AddErrors(ctx context.Context, jobID string, errors []models.JobError) error {
	if len(errors) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_job_errors",
		"job_id", "line_number", "kind", "field", "message", "value",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range errors {
		if _, err := stmt.ExecContext(ctx, jobID, e.Line, e.Kind, e.Field, e.Message, errorValue(e.Value)); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves errors for a job
func (r *jobRepo) GetErrors(ctx context.Context, jobID string, kind models.JobErrorKind, limit int) ([]models.JobError, error) {
	query := `SELECT line_number, kind, field, message, value FROM import_job_errors
		WHERE job_id = $1 AND ($2::text = '' OR kind = $2::text) ORDER BY line_number, id`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $3", jobID, string(kind), limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, jobID, string(kind))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errors []models.JobError
	for rows.Next() {
		var e models.JobError
		var field, value sql.NullString
		if err := rows.Scan(&e.Line, &e.Kind, &field, &e.Message, &value); err != nil {
			continue
		}
		e.Field = field.String
		if value.Valid {
			e.Value = value.String
		}
		errors = append(errors, e)
	}

	return errors, rows.Err()
}

func marshalResult(result *models.ImportResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode import result: %w", err)
	}
	return data, nil
}

// errorValue renders the offending value as text, NULL when absent
func errorValue(v interface{}) sql.NullString {
	switch val := v.(type) {
	case nil:
		return sql.NullString{}
	case string:
		return nullString(val)
	default:
		return sql.NullString{String: fmt.Sprint(val), Valid: true}
	}
}
