package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	db dbtx
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: pool}
}

func NewJobRepositoryWithTx(tx pgx.Tx) *JobRepository {
	return &JobRepository{db: tx}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO processing_jobs (id, tenant_id, kind, subject_id, status, attempts, last_error, next_retry_at, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.TenantID, job.Kind, job.SubjectID, job.Status, job.Attempts, nullableString(job.LastError), job.NextRetryAt, job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, kind, subject_id, status, attempts, last_error, next_retry_at, created_at, processed_at
		 FROM processing_jobs WHERE id = $1`,
		id,
	)
	job, err := scanJobRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimDue atomically claims up to limit runnable jobs and marks them
// processing. Jobs waiting on a retry delay are skipped until next_retry_at
// passes. Claiming interleaves tenants round-robin so one tenant's backlog
// cannot starve the others.
func (r *JobRepository) ClaimDue(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()

	rows, err := r.db.Query(ctx,
		`WITH ranked AS (
			 SELECT id, row_number() OVER (PARTITION BY tenant_id ORDER BY created_at ASC) AS rn
			 FROM processing_jobs
			 WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= $2)
		 ),
		 cte AS (
			 SELECT j.id
			 FROM processing_jobs j
			 JOIN ranked ON ranked.id = j.id
			 ORDER BY ranked.rn ASC, j.created_at ASC
			 FOR UPDATE OF j SKIP LOCKED
			 LIMIT $3
		 )
		 UPDATE processing_jobs
		 SET status = $4,
		     claimed_at = $2
		 FROM cte
		 WHERE processing_jobs.id = cte.id
		 RETURNING processing_jobs.id, processing_jobs.tenant_id, processing_jobs.kind, processing_jobs.subject_id,
		           processing_jobs.status, processing_jobs.attempts, processing_jobs.last_error,
		           processing_jobs.next_retry_at, processing_jobs.created_at, processing_jobs.processed_at`,
		domain.JobStatusQueued, now, limit, domain.JobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ScheduleRetry requeues a failed attempt with its next eligible time.
func (r *JobRepository) ScheduleRetry(ctx context.Context, id string, attempts int32, nextRetryAt time.Time, lastError string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE processing_jobs
		 SET status = $1, attempts = $2, next_retry_at = $3, last_error = $4, claimed_at = NULL
		 WHERE id = $5`,
		domain.JobStatusQueued, attempts, nextRetryAt, nullableString(lastError), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id string, attempts int32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE processing_jobs
		 SET status = $1, attempts = $2, last_error = NULL, processed_at = $3, claimed_at = NULL
		 WHERE id = $4`,
		domain.JobStatusCompleted, attempts, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, id string, attempts int32, lastError string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE processing_jobs
		 SET status = $1, attempts = $2, last_error = $3, processed_at = $4, claimed_at = NULL
		 WHERE id = $5`,
		domain.JobStatusFailed, attempts, nullableString(lastError), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// ReclaimStale requeues jobs stuck in processing past the visibility window,
// e.g. after a worker crash. Returns the number of jobs reclaimed.
func (r *JobRepository) ReclaimStale(ctx context.Context, olderThan time.Time) (int, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE processing_jobs
		 SET status = $1, claimed_at = NULL
		 WHERE status = $2 AND claimed_at IS NOT NULL AND claimed_at < $3`,
		domain.JobStatusQueued, domain.JobStatusProcessing, olderThan,
	)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func (r *JobRepository) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, kind, subject_id, status, attempts, last_error, next_retry_at, created_at, processed_at
		 FROM processing_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJobRow(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var lastError pgtype.Text
	if err := row.Scan(&job.ID, &job.TenantID, &job.Kind, &job.SubjectID, &job.Status, &job.Attempts, &lastError, &job.NextRetryAt, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	if lastError.Valid {
		job.LastError = lastError.String
	}
	return &job, nil
}
