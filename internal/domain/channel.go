package domain

import (
	"fmt"
	"time"
)

// ChannelPlatform identifies the messaging platform a channel belongs to
type ChannelPlatform string

const (
	ChannelPlatformWhatsApp  ChannelPlatform = "whatsapp"
	ChannelPlatformInstagram ChannelPlatform = "instagram"
)

// ParseChannelPlatform converts a string to a ChannelPlatform
func ParseChannelPlatform(s string) (ChannelPlatform, error) {
	switch ChannelPlatform(s) {
	case ChannelPlatformWhatsApp:
		return ChannelPlatformWhatsApp, nil
	case ChannelPlatformInstagram:
		return ChannelPlatformInstagram, nil
	default:
		return "", fmt.Errorf("unknown platform: %s", s)
	}
}

// Channel represents a tenant's connection to a messaging platform.
// PlatformID is the platform-side identity (phone number ID for WhatsApp,
// page ID for Instagram) used to resolve the tenant on inbound webhooks.
type Channel struct {
	ID            string
	TenantID      string
	Platform      ChannelPlatform
	PlatformID    string
	WebhookSecret string
	AccessToken   string
	Active        bool
	CreatedAt     time.Time
	LastWebhookAt *time.Time
}

// NewChannel creates a new Channel instance
func NewChannel(id, tenantID string, platform ChannelPlatform, platformID string, createdAt time.Time) *Channel {
	return &Channel{
		ID:         id,
		TenantID:   tenantID,
		Platform:   platform,
		PlatformID: platformID,
		Active:     true,
		CreatedAt:  createdAt,
	}
}

// ValidateChannel validates a Channel instance
func ValidateChannel(c *Channel) error {
	if c == nil {
		return fmt.Errorf("channel cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("channel ID is required")
	}

	if c.TenantID == "" {
		return fmt.Errorf("channel TenantID is required")
	}

	if c.PlatformID == "" {
		return fmt.Errorf("channel PlatformID is required")
	}

	if !isValidChannelPlatform(c.Platform) {
		return fmt.Errorf("channel Platform is invalid: %s", c.Platform)
	}

	return nil
}

// isValidChannelPlatform checks if a ChannelPlatform is valid
func isValidChannelPlatform(p ChannelPlatform) bool {
	switch p {
	case ChannelPlatformWhatsApp, ChannelPlatformInstagram:
		return true
	}
	return false
}
