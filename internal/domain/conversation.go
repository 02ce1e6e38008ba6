package domain

import (
	"fmt"
	"time"
)

// ConversationStatus represents the status of a conversation
type ConversationStatus string

const (
	ConversationStatusActive ConversationStatus = "active"
	ConversationStatusClosed ConversationStatus = "closed"
)

// Conversation represents a message thread between one customer and one
// tenant over one channel. Created lazily on the first inbound message.
type Conversation struct {
	ID                 string
	TenantID           string
	ChannelID          string
	CustomerIdentifier string
	Status             ConversationStatus
	StartedAt          time.Time
	LastMessageAt      time.Time
	MessageCount       int
}

// NewConversation creates a new active Conversation instance
func NewConversation(id, tenantID, channelID, customerIdentifier string, startedAt time.Time) *Conversation {
	return &Conversation{
		ID:                 id,
		TenantID:           tenantID,
		ChannelID:          channelID,
		CustomerIdentifier: customerIdentifier,
		Status:             ConversationStatusActive,
		StartedAt:          startedAt,
		LastMessageAt:      startedAt,
	}
}

// IsStale reports whether the conversation has been inactive longer than
// the given window. Stale conversations are closed; a fresh one is started
// on the next inbound message. Closing never deletes history.
func (c *Conversation) IsStale(now time.Time, window time.Duration) bool {
	return now.Sub(c.LastMessageAt) > window
}

// ValidateConversation validates a Conversation instance
func ValidateConversation(c *Conversation) error {
	if c == nil {
		return fmt.Errorf("conversation cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("conversation ID is required")
	}

	if c.TenantID == "" {
		return fmt.Errorf("conversation TenantID is required")
	}

	if c.ChannelID == "" {
		return fmt.Errorf("conversation ChannelID is required")
	}

	if c.CustomerIdentifier == "" {
		return fmt.Errorf("conversation CustomerIdentifier is required")
	}

	if !isValidConversationStatus(c.Status) {
		return fmt.Errorf("conversation Status is invalid: %s", c.Status)
	}

	return nil
}

// isValidConversationStatus checks if a ConversationStatus is valid
func isValidConversationStatus(s ConversationStatus) bool {
	switch s {
	case ConversationStatusActive, ConversationStatusClosed:
		return true
	}
	return false
}
