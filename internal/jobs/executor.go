package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
)

const (
	// MaxAttempts is the attempt budget before a job becomes terminally failed
	MaxAttempts = 3

	// baseRetryDelay is doubled for each subsequent attempt
	baseRetryDelay = 60 * time.Second

	// jobTimeout caps a single processing attempt
	jobTimeout = 30 * time.Second

	// staleAfter is how long a job may sit in processing before it is
	// assumed orphaned by a crashed worker and requeued
	staleAfter = 5 * time.Minute

	defaultBatchSize = 25
)

// ProcessingJobRepository defines the interface for job queue persistence
type ProcessingJobRepository interface {
	ClaimDue(ctx context.Context, limit int) ([]*domain.Job, error)
	ScheduleRetry(ctx context.Context, id string, attempts int32, nextRetryAt time.Time, lastError string) error
	MarkCompleted(ctx context.Context, id string, attempts int32) error
	MarkFailed(ctx context.Context, id string, attempts int32, lastError string) error
	ReclaimStale(ctx context.Context, olderThan time.Time) (int, error)
}

// DocumentProcessor runs the ingestion pipeline for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, tenantID, documentID string) error
}

// ReplyGenerator produces and delivers the reply for one inbound message.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, tenantID, messageID string) error
}

// Executor drains the processing queue: claims due jobs, dispatches them by
// kind, and applies the retry policy to failures.
type Executor struct {
	repo      ProcessingJobRepository
	documents DocumentProcessor
	replies   ReplyGenerator
	batchSize int
	now       func() time.Time
}

// NewExecutor creates a new Executor instance
func NewExecutor(repo ProcessingJobRepository, documents DocumentProcessor, replies ReplyGenerator) *Executor {
	return &Executor{
		repo:      repo,
		documents: documents,
		replies:   replies,
		batchSize: defaultBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessJobs implements the JobProcessor interface
func (e *Executor) ProcessJobs(ctx context.Context) error {
	if reclaimed, err := e.repo.ReclaimStale(ctx, e.now().Add(-staleAfter)); err != nil {
		log.Printf("Failed to reclaim stale jobs: %v", err)
	} else if reclaimed > 0 {
		log.Printf("Reclaimed %d stale jobs", reclaimed)
	}

	jobs, err := e.repo.ClaimDue(ctx, e.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim due jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d claimed jobs", len(jobs))

	for _, job := range jobs {
		if err := e.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (e *Executor) processJob(ctx context.Context, job *domain.Job) error {
	attemptCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	var runErr error
	switch job.Kind {
	case domain.JobKindDocument:
		runErr = e.documents.Process(attemptCtx, job.TenantID, job.SubjectID)
	case domain.JobKindMessage:
		runErr = e.replies.GenerateReply(attemptCtx, job.TenantID, job.SubjectID)
	default:
		runErr = fmt.Errorf("unknown job kind: %s", job.Kind)
	}

	attempts := job.Attempts + 1

	if runErr == nil {
		if err := e.repo.MarkCompleted(ctx, job.ID, attempts); err != nil {
			return fmt.Errorf("failed to mark job completed: %w", err)
		}
		return nil
	}

	return e.handleJobFailure(ctx, job, attempts, runErr)
}

// handleJobFailure applies the retry policy. An ordering conflict keeps the
// job's attempt count untouched: waiting for a predecessor is not a failure.
func (e *Executor) handleJobFailure(ctx context.Context, job *domain.Job, attempts int32, jobErr error) error {
	if errors.Is(jobErr, domain.ErrConversationBusy) {
		log.Printf("Job %s waiting for earlier messages, rescheduling", job.ID)
		return e.repo.ScheduleRetry(ctx, job.ID, job.Attempts, e.now().Add(baseRetryDelay/4), jobErr.Error())
	}

	if !isRetryableFailure(jobErr) {
		log.Printf("Job %s failed permanently: %v", job.ID, jobErr)
		return e.repo.MarkFailed(ctx, job.ID, attempts, jobErr.Error())
	}

	if attempts >= MaxAttempts {
		log.Printf("Job %s exceeded max attempts (%d), marking as failed", job.ID, MaxAttempts)
		errMsg := fmt.Sprintf("max attempts exceeded: %v", jobErr)
		return e.repo.MarkFailed(ctx, job.ID, attempts, errMsg)
	}

	delay := baseRetryDelay << (attempts - 1)
	log.Printf("Job %s will be retried in %v (attempt %d/%d)", job.ID, delay, attempts, MaxAttempts)
	errMsg := fmt.Sprintf("attempt %d: %v", attempts, jobErr)
	return e.repo.ScheduleRetry(ctx, job.ID, attempts, e.now().Add(delay), errMsg)
}

func isRetryableFailure(err error) bool {
	return domain.IsRetryable(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
