package domain

import (
	"fmt"
	"time"
)

// JobKind identifies what a processing job operates on
type JobKind string

const (
	JobKindDocument JobKind = "document"
	JobKindMessage  JobKind = "message"
)

// JobStatus represents the status of a processing job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents one unit of durable async work: either ingesting a document
// or generating a reply to an inbound message. Jobs are claimed atomically,
// retried with exponential backoff, and become terminally failed once the
// retry budget is exhausted.
type Job struct {
	ID          string
	TenantID    string
	Kind        JobKind
	SubjectID   string
	Status      JobStatus
	Attempts    int32
	LastError   string
	NextRetryAt *time.Time
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewJob creates a new queued Job instance
func NewJob(id, tenantID string, kind JobKind, subjectID string, createdAt time.Time) *Job {
	return &Job{
		ID:        id,
		TenantID:  tenantID,
		Kind:      kind,
		SubjectID: subjectID,
		Status:    JobStatusQueued,
		CreatedAt: createdAt,
	}
}

// ValidateJob validates a Job instance
func ValidateJob(j *Job) error {
	if j == nil {
		return fmt.Errorf("job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if j.TenantID == "" {
		return fmt.Errorf("job TenantID is required")
	}

	if j.SubjectID == "" {
		return fmt.Errorf("job SubjectID is required")
	}

	if !isValidJobKind(j.Kind) {
		return fmt.Errorf("job Kind is invalid: %s", j.Kind)
	}

	if !isValidJobStatus(j.Status) {
		return fmt.Errorf("job Status is invalid: %s", j.Status)
	}

	if j.Attempts < 0 {
		return fmt.Errorf("job Attempts cannot be negative")
	}

	return nil
}

// isValidJobKind checks if a JobKind is valid
func isValidJobKind(k JobKind) bool {
	switch k {
	case JobKindDocument, JobKindMessage:
		return true
	}
	return false
}

// isValidJobStatus checks if a JobStatus is valid
func isValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}
