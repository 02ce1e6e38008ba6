package domain

import (
	"fmt"
	"time"
)

// Tenant represents an isolated customer organization. Every entity in the
// system carries the owning tenant's ID as a mandatory partition key.
type Tenant struct {
	ID            string
	Name          string
	BusinessName  string
	ResponseTone  string
	BusinessFacts []string
	BlockedTopics []string
	CreatedAt     time.Time
}

// NewTenant creates a new Tenant instance
func NewTenant(id, name string, createdAt time.Time) *Tenant {
	return &Tenant{
		ID:           id,
		Name:         name,
		BusinessName: name,
		ResponseTone: "professional",
		CreatedAt:    createdAt,
	}
}

// ValidateTenant validates a Tenant instance
func ValidateTenant(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	if t.Name == "" {
		return fmt.Errorf("tenant Name is required")
	}

	return nil
}
