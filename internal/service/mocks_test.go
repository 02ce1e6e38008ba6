package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/converso/internal/ai"
	"github.com/cloo-solutions/converso/internal/channel"
	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/pagination"
	"github.com/cloo-solutions/converso/internal/vector"
	"github.com/stretchr/testify/mock"
)

// MockUUIDGenerator returns a fixed sequence of IDs
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, tenantID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, tenantID, id string, status domain.DocumentStatus, errorDetail string, chunkCount int) error {
	args := m.Called(ctx, tenantID, id, status, errorDetail, chunkCount)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) InsertBatch(ctx context.Context, chunks []*domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*domain.Chunk, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func (m *MockChunkRepository) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	args := m.Called(ctx, tenantID, documentID)
	return args.Error(0)
}

func (m *MockChunkRepository) CountByDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	args := m.Called(ctx, tenantID, documentID)
	return args.Int(0), args.Error(1)
}

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) GetActive(ctx context.Context, tenantID, channelID, customerIdentifier string) (*domain.Conversation, error) {
	args := m.Called(ctx, tenantID, channelID, customerIdentifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Close(ctx context.Context, tenantID, id string) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockConversationRepository) RecordMessage(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockConversationRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*ConversationPageResult, error) {
	args := m.Called(ctx, tenantID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConversationPageResult), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Message, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ExistsExternal(ctx context.Context, tenantID, externalMessageID string) (bool, error) {
	args := m.Called(ctx, tenantID, externalMessageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) ListRecentByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, tenantID, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus, errorDetail string) error {
	args := m.Called(ctx, id, status, errorDetail)
	return args.Error(0)
}

func (m *MockMessageRepository) CountEarlierUnhandled(ctx context.Context, conversationID, messageID string) (int, error) {
	args := m.Called(ctx, conversationID, messageID)
	return args.Int(0), args.Error(1)
}

type MockChannelRepository struct {
	mock.Mock
}

func (m *MockChannelRepository) Create(ctx context.Context, c *domain.Channel) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChannelRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Channel, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *MockChannelRepository) GetActiveByPlatformID(ctx context.Context, platform domain.ChannelPlatform, platformID string) (*domain.Channel, error) {
	args := m.Called(ctx, platform, platformID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *MockChannelRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Channel, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Channel), args.Error(1)
}

func (m *MockChannelRepository) Update(ctx context.Context, c *domain.Channel) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChannelRepository) TouchWebhook(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, key, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

func (m *MockObjectStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Upsert(ctx context.Context, tenantID string, records []vector.Record) error {
	args := m.Called(ctx, tenantID, records)
	return args.Error(0)
}

func (m *MockVectorStore) Query(ctx context.Context, tenantID string, embedding []float32, topK int) ([]vector.Match, error) {
	args := m.Called(ctx, tenantID, embedding, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vector.Match), args.Error(1)
}

func (m *MockVectorStore) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	args := m.Called(ctx, tenantID, documentID)
	return args.Error(0)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockAdapter struct {
	mock.Mock
	platform domain.ChannelPlatform
}

func NewMockAdapter(platform domain.ChannelPlatform) *MockAdapter {
	return &MockAdapter{platform: platform}
}

func (m *MockAdapter) Platform() domain.ChannelPlatform {
	return m.platform
}

func (m *MockAdapter) VerifySignature(body []byte, signatureHeader, secret string) bool {
	args := m.Called(body, signatureHeader, secret)
	return args.Bool(0)
}

func (m *MockAdapter) ParseEvents(body []byte) ([]channel.InboundEvent, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]channel.InboundEvent), args.Error(1)
}

func (m *MockAdapter) Send(ctx context.Context, cfg channel.SendConfig, recipient, text string) error {
	args := m.Called(ctx, cfg, recipient, text)
	return args.Error(0)
}

// fakeTxRunner executes the transaction body against the supplied mocks
// without a real database.
type fakeTxRunner struct {
	repos fakeTxRepos
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(r.repos)
}

type fakeTxRepos struct {
	conversations ConversationRepositoryInterface
	messages      MessageRepositoryInterface
	jobs          JobRepositoryInterface
	documents     DocumentRepositoryInterface
	chunks        ChunkRepositoryInterface
}

func (r fakeTxRepos) Conversations() ConversationRepositoryInterface { return r.conversations }
func (r fakeTxRepos) Messages() MessageRepositoryInterface           { return r.messages }
func (r fakeTxRepos) Jobs() JobRepositoryInterface                   { return r.jobs }
func (r fakeTxRepos) Documents() DocumentRepositoryInterface         { return r.documents }
func (r fakeTxRepos) Chunks() ChunkRepositoryInterface               { return r.chunks }
