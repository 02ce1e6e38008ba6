// Package vector provides tenant-namespaced vector persistence and
// nearest-neighbor search. Every operation is scoped by the caller's tenant
// ID inside the implementation itself; callers cannot widen the scope.
package vector

import "context"

// Record is one stored (embedding, text, metadata) entry. Ref is the stable
// identifier the owning chunk keeps as its vector reference.
type Record struct {
	Ref          string
	DocumentID   string
	OrdinalIndex int
	Text         string
	Embedding    []float32
}

// Match is one ranked search result.
type Match struct {
	Ref          string
	DocumentID   string
	OrdinalIndex int
	Text         string
	Score        float32
}

// Store persists vectors keyed by tenant namespace and supports filtered
// nearest-neighbor search. Implementations enforce tenant isolation
// physically (a bound column filter or separate namespace), never by
// trusting caller-supplied filters.
type Store interface {
	Upsert(ctx context.Context, tenantID string, records []Record) error
	Query(ctx context.Context, tenantID string, embedding []float32, topK int) ([]Match, error)
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error
}
