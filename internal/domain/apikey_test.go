package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKey_IsRevoked(t *testing.T) {
	now := time.Now().UTC()

	active := NewAPIKey("key-1", "tenant-1", "ci", "hash", now, nil)
	assert.False(t, active.IsRevoked())

	revokedAt := now.Add(time.Hour)
	revoked := NewAPIKey("key-2", "tenant-1", "old", "hash", now, &revokedAt)
	assert.True(t, revoked.IsRevoked())
}

func TestValidateAPIKey(t *testing.T) {
	now := time.Now().UTC()
	valid := NewAPIKey("key-1", "tenant-1", "ci", "hash", now, nil)
	require.NoError(t, ValidateAPIKey(valid))

	tests := []struct {
		name   string
		mutate func(*APIKey)
	}{
		{"missing ID", func(k *APIKey) { k.ID = "" }},
		{"missing TenantID", func(k *APIKey) { k.TenantID = "" }},
		{"missing Name", func(k *APIKey) { k.Name = "" }},
		{"missing KeyHash", func(k *APIKey) { k.KeyHash = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewAPIKey("key-1", "tenant-1", "ci", "hash", now, nil)
			tt.mutate(key)
			assert.Error(t, ValidateAPIKey(key))
		})
	}

	assert.Error(t, ValidateAPIKey(nil))
}
