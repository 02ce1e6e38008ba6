package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/pagination"
)

// DefaultStaleWindow is how long a conversation may sit idle before the next
// inbound message starts a fresh one.
const DefaultStaleWindow = 24 * time.Hour

// ConversationRepositoryInterface defines the repository interface for conversation persistence
type ConversationRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Conversation, error)
	GetActive(ctx context.Context, tenantID, channelID, customerIdentifier string) (*domain.Conversation, error)
	Close(ctx context.Context, tenantID, id string) error
	RecordMessage(ctx context.Context, id string, at time.Time) error
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*ConversationPageResult, error)
}

// MessageRepositoryInterface defines the repository interface for message persistence
type MessageRepositoryInterface interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Message, error)
	ExistsExternal(ctx context.Context, tenantID, externalMessageID string) (bool, error)
	ListRecentByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]*domain.Message, error)
	UpdateStatus(ctx context.Context, id string, status domain.MessageStatus, errorDetail string) error
	CountEarlierUnhandled(ctx context.Context, conversationID, messageID string) (int, error)
}

type ConversationPageResult struct {
	Items      []*domain.Conversation
	NextCursor string
	HasMore    bool
}

// ConversationService manages conversation threads and their history.
type ConversationService struct {
	convRepo    ConversationRepositoryInterface
	msgRepo     MessageRepositoryInterface
	uuidGen     UUIDGenerator
	staleWindow time.Duration
}

func NewConversationService(convRepo ConversationRepositoryInterface, msgRepo MessageRepositoryInterface) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		uuidGen:     &DefaultUUIDGenerator{},
		staleWindow: DefaultStaleWindow,
	}
}

// NewConversationServiceWithOptions creates a ConversationService with a custom
// UUID generator and stale window (for testing)
func NewConversationServiceWithOptions(convRepo ConversationRepositoryInterface, msgRepo MessageRepositoryInterface, uuidGen UUIDGenerator, staleWindow time.Duration) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		uuidGen:     uuidGen,
		staleWindow: staleWindow,
	}
}

// ResolveForInbound returns the conversation an inbound message belongs to,
// closing a stale thread and opening a new one when needed. Runs against
// transaction-bound repositories so resolution and the message insert commit
// together.
func (s *ConversationService) ResolveForInbound(ctx context.Context, convRepo ConversationRepositoryInterface, tenantID, channelID, customerIdentifier string, now time.Time) (*domain.Conversation, error) {
	existing, err := convRepo.GetActive(ctx, tenantID, channelID, customerIdentifier)
	if err != nil && err != domain.ErrConversationNotFound {
		return nil, err
	}

	if existing != nil {
		if !existing.IsStale(now, s.staleWindow) {
			return existing, nil
		}
		if err := convRepo.Close(ctx, tenantID, existing.ID); err != nil {
			return nil, err
		}
	}

	conv := domain.NewConversation(s.uuidGen.NewString(), tenantID, channelID, customerIdentifier, now)
	if err := domain.ValidateConversation(conv); err != nil {
		return nil, err
	}
	if err := convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, tenantID, conversationID string) (*domain.Conversation, error) {
	return s.convRepo.GetByID(ctx, tenantID, conversationID)
}

type ListConversationsInput struct {
	TenantID string
	Cursor   string
	Limit    int
}

type ListConversationsOutput struct {
	Items   []*domain.Conversation
	Cursor  string
	HasMore bool
}

func (s *ConversationService) List(ctx context.Context, input ListConversationsInput) (*ListConversationsOutput, error) {
	if input.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	page, err := s.convRepo.ListByTenantWithCursor(ctx, input.TenantID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListConversationsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// History returns the conversation's most recent messages in chronological
// order, capped at limit.
func (s *ConversationService) History(ctx context.Context, tenantID, conversationID string, limit int) ([]*domain.Message, error) {
	if _, err := s.convRepo.GetByID(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}

	recent, err := s.msgRepo.ListRecentByConversation(ctx, tenantID, conversationID, limit)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}
