package domain

import (
	"fmt"
	"time"
)

// MessageDirection represents the direction of a message
type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

// MessageStatus represents the delivery status of a message
type MessageStatus string

const (
	MessageStatusReceived   MessageStatus = "received"
	MessageStatusProcessing MessageStatus = "processing"
	MessageStatusSent       MessageStatus = "sent"
	MessageStatusFailed     MessageStatus = "failed"
)

// Message represents one inbound or outbound message in a conversation.
// ExternalMessageID plus TenantID form the deduplication key for webhook
// redeliveries.
type Message struct {
	ID                string
	ConversationID    string
	TenantID          string
	Direction         MessageDirection
	Content           string
	ExternalMessageID string
	Status            MessageStatus
	ErrorDetail       string
	CreatedAt         time.Time
}

// NewMessage creates a new Message instance
func NewMessage(id, conversationID, tenantID string, direction MessageDirection, content string, createdAt time.Time) *Message {
	status := MessageStatusReceived
	if direction == MessageDirectionOutbound {
		status = MessageStatusProcessing
	}
	return &Message{
		ID:             id,
		ConversationID: conversationID,
		TenantID:       tenantID,
		Direction:      direction,
		Content:        content,
		Status:         status,
		CreatedAt:      createdAt,
	}
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	if m.ConversationID == "" {
		return fmt.Errorf("message ConversationID is required")
	}

	if m.TenantID == "" {
		return fmt.Errorf("message TenantID is required")
	}

	if !isValidMessageDirection(m.Direction) {
		return fmt.Errorf("message Direction is invalid: %s", m.Direction)
	}

	if !isValidMessageStatus(m.Status) {
		return fmt.Errorf("message Status is invalid: %s", m.Status)
	}

	return nil
}

// isValidMessageDirection checks if a MessageDirection is valid
func isValidMessageDirection(d MessageDirection) bool {
	switch d {
	case MessageDirectionInbound, MessageDirectionOutbound:
		return true
	}
	return false
}

// isValidMessageStatus checks if a MessageStatus is valid
func isValidMessageStatus(s MessageStatus) bool {
	switch s {
	case MessageStatusReceived, MessageStatusProcessing, MessageStatusSent, MessageStatusFailed:
		return true
	}
	return false
}
