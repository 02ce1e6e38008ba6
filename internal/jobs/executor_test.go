package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProcessingJobRepository is a mock implementation of ProcessingJobRepository
type MockProcessingJobRepository struct {
	mock.Mock
}

func (m *MockProcessingJobRepository) ClaimDue(ctx context.Context, limit int) ([]*domain.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockProcessingJobRepository) ScheduleRetry(ctx context.Context, id string, attempts int32, nextRetryAt time.Time, lastError string) error {
	args := m.Called(ctx, id, attempts, nextRetryAt, lastError)
	return args.Error(0)
}

func (m *MockProcessingJobRepository) MarkCompleted(ctx context.Context, id string, attempts int32) error {
	args := m.Called(ctx, id, attempts)
	return args.Error(0)
}

func (m *MockProcessingJobRepository) MarkFailed(ctx context.Context, id string, attempts int32, lastError string) error {
	args := m.Called(ctx, id, attempts, lastError)
	return args.Error(0)
}

func (m *MockProcessingJobRepository) ReclaimStale(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

// MockDocumentProcessor is a mock implementation of DocumentProcessor
type MockDocumentProcessor struct {
	mock.Mock
}

func (m *MockDocumentProcessor) Process(ctx context.Context, tenantID, documentID string) error {
	args := m.Called(ctx, tenantID, documentID)
	return args.Error(0)
}

// MockReplyGenerator is a mock implementation of ReplyGenerator
type MockReplyGenerator struct {
	mock.Mock
}

func (m *MockReplyGenerator) GenerateReply(ctx context.Context, tenantID, messageID string) error {
	args := m.Called(ctx, tenantID, messageID)
	return args.Error(0)
}

func newExecutorForTest(repo *MockProcessingJobRepository, docs *MockDocumentProcessor, replies *MockReplyGenerator, now time.Time) *Executor {
	e := NewExecutor(repo, docs, replies)
	e.now = func() time.Time { return now }
	return e
}

func TestExecutor_ProcessJobs_NoDueJobs(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	mockRepo.On("ReclaimStale", mock.Anything, now.Add(-5*time.Minute)).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{}, nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockDocs.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
	mockReplies.AssertNotCalled(t, "GenerateReply", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_ProcessJobs_DocumentJobSuccess(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	job := domain.NewJob("job-1", "tenant-1", domain.JobKindDocument, "doc-1", now)

	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{job}, nil)
	mockDocs.On("Process", mock.Anything, "tenant-1", "doc-1").Return(nil)
	mockRepo.On("MarkCompleted", mock.Anything, "job-1", int32(1)).Return(nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockDocs.AssertExpectations(t)
}

func TestExecutor_ProcessJobs_MessageJobSuccess(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	job := domain.NewJob("job-1", "tenant-1", domain.JobKindMessage, "msg-1", now)

	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{job}, nil)
	mockReplies.On("GenerateReply", mock.Anything, "tenant-1", "msg-1").Return(nil)
	mockRepo.On("MarkCompleted", mock.Anything, "job-1", int32(1)).Return(nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockReplies.AssertExpectations(t)
}

func TestExecutor_RetryableFailureSchedulesBackoff(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	job := domain.NewJob("job-1", "tenant-1", domain.JobKindDocument, "doc-1", now)

	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{job}, nil)
	mockDocs.On("Process", mock.Anything, "tenant-1", "doc-1").
		Return(domain.NewProviderError("openai", true, errors.New("rate limited")))
	mockRepo.On("ScheduleRetry", mock.Anything, "job-1", int32(1), now.Add(60*time.Second), mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestExecutor_BackoffDoublesPerAttempt(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	job := domain.NewJob("job-1", "tenant-1", domain.JobKindDocument, "doc-1", now)
	job.Attempts = 1

	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{job}, nil)
	mockDocs.On("Process", mock.Anything, "tenant-1", "doc-1").
		Return(domain.NewProviderError("openai", true, errors.New("rate limited")))
	mockRepo.On("ScheduleRetry", mock.Anything, "job-1", int32(2), now.Add(120*time.Second), mock.Anything).Return(nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestExecutor_MaxAttemptsExceeded(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	job := domain.NewJob("job-1", "tenant-1", domain.JobKindDocument, "doc-1", now)
	job.Attempts = 2

	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{job}, nil)
	mockDocs.On("Process", mock.Anything, "tenant-1", "doc-1").
		Return(domain.NewProviderError("openai", true, errors.New("still failing")))
	mockRepo.On("MarkFailed", mock.Anything, "job-1", int32(3), mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_PermanentFailureFailsImmediately(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	job := domain.NewJob("job-1", "tenant-1", domain.JobKindDocument, "doc-1", now)

	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{job}, nil)
	mockDocs.On("Process", mock.Anything, "tenant-1", "doc-1").
		Return(domain.NewDomainError(domain.ErrCodeValidation, "document contains no extractable text"))
	mockRepo.On("MarkFailed", mock.Anything, "job-1", int32(1), mock.Anything).Return(nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "ScheduleRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_ConversationBusyKeepsAttemptCount(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	job := domain.NewJob("job-1", "tenant-1", domain.JobKindMessage, "msg-2", now)
	job.Attempts = 1

	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{job}, nil)
	mockReplies.On("GenerateReply", mock.Anything, "tenant-1", "msg-2").Return(domain.ErrConversationBusy)
	mockRepo.On("ScheduleRetry", mock.Anything, "job-1", int32(1), now.Add(15*time.Second), mock.Anything).Return(nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutor_ReclaimStaleFailureDoesNotBlockClaiming(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)
	mockDocs := new(MockDocumentProcessor)
	mockReplies := new(MockReplyGenerator)

	now := time.Now().UTC()
	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, errors.New("lock timeout"))
	mockRepo.On("ClaimDue", mock.Anything, 25).Return([]*domain.Job{}, nil)

	executor := newExecutorForTest(mockRepo, mockDocs, mockReplies, now)
	err := executor.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestExecutor_ClaimError(t *testing.T) {
	mockRepo := new(MockProcessingJobRepository)

	now := time.Now().UTC()
	mockRepo.On("ReclaimStale", mock.Anything, mock.Anything).Return(0, nil)
	mockRepo.On("ClaimDue", mock.Anything, 25).Return(nil, errors.New("database error"))

	executor := newExecutorForTest(mockRepo, new(MockDocumentProcessor), new(MockReplyGenerator), now)
	err := executor.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim due jobs")
}
