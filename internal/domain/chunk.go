package domain

import "time"

// Chunk represents a bounded segment of a document's text, embedded and
// searched independently. Immutable once created; deleted with its document.
type Chunk struct {
	ID            string
	DocumentID    string
	TenantID      string
	OrdinalIndex  int
	Text          string
	TokenEstimate int
	VectorRef     string
	CreatedAt     time.Time
}
