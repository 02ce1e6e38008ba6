package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthService_CreateTenant(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("tenant-123")

	mockTenantRepo.On("Create", ctx, mock.MatchedBy(func(tenant *domain.Tenant) bool {
		return tenant.Name == "Acme Plumbing" && tenant.ID == "tenant-123"
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	tenant, err := service.CreateTenant(ctx, "Acme Plumbing")

	require.NoError(t, err)
	assert.Equal(t, "tenant-123", tenant.ID)
	assert.Equal(t, "Acme Plumbing", tenant.Name)
	mockTenantRepo.AssertExpectations(t)
}

func TestAuthService_CreateTenant_EmptyName(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	tenant, err := service.CreateTenant(ctx, "")

	require.Error(t, err)
	assert.Nil(t, tenant)
	mockTenantRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_CreateAPIKey(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	tenant := domain.NewTenant("tenant-1", "Acme", time.Now().UTC())
	mockTenantRepo.On("GetByID", ctx, "tenant-1").Return(tenant, nil)

	var storedHash string
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		storedHash = key.KeyHash
		return key.ID == "key-123" && key.TenantID == "tenant-1" && key.Name == "ci"
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "tenant-1", "ci")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "cvs_"))
	assert.True(t, IsValidAPIToken(token))
	assert.NotContains(t, storedHash, token, "plaintext token must never be persisted")
	assert.Len(t, storedHash, 64)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_TenantNotFound(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	mockTenantRepo.On("GetByID", ctx, "missing").Return(nil, domain.ErrTenantNotFound)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "missing", "ci")

	require.Error(t, err)
	assert.Equal(t, domain.ErrTenantNotFound, err)
	assert.Empty(t, token)
	mockAPIKeyRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	tenant := domain.NewTenant("tenant-1", "Acme", time.Now().UTC())
	mockTenantRepo.On("GetByID", ctx, "tenant-1").Return(tenant, nil)

	var createdKey *domain.APIKey
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		createdKey = key
		return true
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "tenant-1", "ci")
	require.NoError(t, err)

	mockAPIKeyRepo.On("GetByHash", ctx, createdKey.KeyHash).Return(createdKey, nil)

	tenantID, err := service.ValidateAPIKey(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tenantID)
}

func TestAuthService_ValidateAPIKey_MalformedToken(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockTenantRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	for _, token := range []string{"", "cvs_short", "nope_" + strings.Repeat("a", 64), "cvs_" + strings.Repeat("z", 64)} {
		_, err := service.ValidateAPIKey(ctx, token)
		assert.Equal(t, domain.ErrInvalidAPIKey, err, "token %q", token)
	}
}

func TestAuthService_ValidateAPIKey_UnknownToken(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(nil, domain.ErrAPIKeyNotFound)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "cvs_"+strings.Repeat("a", 64))

	assert.Equal(t, domain.ErrInvalidAPIKey, err)
}

func TestAuthService_ValidateAPIKey_Revoked(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	revokedAt := time.Now().UTC()
	key := domain.NewAPIKey("key-1", "tenant-1", "ci", strings.Repeat("a", 64), time.Now().UTC(), &revokedAt)
	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(key, nil)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "cvs_"+strings.Repeat("a", 64))

	assert.Equal(t, domain.ErrAPIKeyRevoked, err)
}

func TestAuthService_RevokeAPIKey(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockAPIKeyRepo.On("Revoke", ctx, "tenant-1", "key-1").Return(nil)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	err := service.RevokeAPIKey(ctx, "tenant-1", "key-1")

	require.NoError(t, err)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKeyWithToken(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-1")

	token := "cvs_" + strings.Repeat("ab", 32)
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.TenantID == "tenant-1" && key.KeyHash != token
	})).Return(nil)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, mockUUIDGen)
	err := service.CreateAPIKeyWithToken(ctx, "tenant-1", "bootstrap", token)

	require.NoError(t, err)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKeyWithToken_BadFormat(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockTenantRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	err := service.CreateAPIKeyWithToken(ctx, "tenant-1", "bootstrap", "not-a-token")
	require.Error(t, err)
}

func TestIsValidAPIToken(t *testing.T) {
	assert.True(t, IsValidAPIToken("cvs_"+strings.Repeat("0", 64)))
	assert.True(t, IsValidAPIToken("cvs_"+strings.Repeat("F", 64)))
	assert.False(t, IsValidAPIToken("cvs_"+strings.Repeat("0", 63)))
	assert.False(t, IsValidAPIToken(strings.Repeat("0", 68)))
	assert.False(t, IsValidAPIToken("cvs_"+strings.Repeat("g", 64)))
}
