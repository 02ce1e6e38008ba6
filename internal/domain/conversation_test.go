package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	now := time.Now().UTC()
	conv := NewConversation("conv-1", "tenant-1", "channel-1", "447700900000", now)

	assert.Equal(t, ConversationStatusActive, conv.Status)
	assert.Equal(t, now, conv.StartedAt)
	assert.Equal(t, now, conv.LastMessageAt)
	assert.Zero(t, conv.MessageCount)
}

func TestConversation_IsStale(t *testing.T) {
	now := time.Now().UTC()
	window := 24 * time.Hour
	conv := NewConversation("conv-1", "tenant-1", "channel-1", "447700900000", now)

	tests := []struct {
		name          string
		lastMessageAt time.Time
		expected      bool
	}{
		{"just active", now.Add(-time.Minute), false},
		{"exactly at window", now.Add(-window), false},
		{"past window", now.Add(-window - time.Second), true},
		{"long dormant", now.Add(-72 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv.LastMessageAt = tt.lastMessageAt
			assert.Equal(t, tt.expected, conv.IsStale(now, window))
		})
	}
}

func TestValidateConversation(t *testing.T) {
	now := time.Now().UTC()
	valid := NewConversation("conv-1", "tenant-1", "channel-1", "447700900000", now)
	require.NoError(t, ValidateConversation(valid))

	tests := []struct {
		name   string
		mutate func(*Conversation)
	}{
		{"missing ID", func(c *Conversation) { c.ID = "" }},
		{"missing TenantID", func(c *Conversation) { c.TenantID = "" }},
		{"missing ChannelID", func(c *Conversation) { c.ChannelID = "" }},
		{"missing CustomerIdentifier", func(c *Conversation) { c.CustomerIdentifier = "" }},
		{"invalid Status", func(c *Conversation) { c.Status = "paused" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConversation("conv-1", "tenant-1", "channel-1", "447700900000", now)
			tt.mutate(conv)
			assert.Error(t, ValidateConversation(conv))
		})
	}

	assert.Error(t, ValidateConversation(nil))
}
