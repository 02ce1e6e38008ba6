package vector

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

type memoryRecord struct {
	Record
	createdAt time.Time
}

// MemoryStore is an in-process Store used for tests and offline development.
// Records live in per-tenant maps, so isolation holds by construction.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]map[string]memoryRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[string]map[string]memoryRecord)}
}

// Upsert inserts or replaces the given records under tenantID.
func (s *MemoryStore) Upsert(_ context.Context, tenantID string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.tenants[tenantID]
	if !ok {
		ns = make(map[string]memoryRecord)
		s.tenants[tenantID] = ns
	}

	now := time.Now().UTC()
	for _, rec := range records {
		stored := memoryRecord{Record: rec, createdAt: now}
		if prev, ok := ns[rec.Ref]; ok {
			stored.createdAt = prev.createdAt
		}
		ns[rec.Ref] = stored
	}
	return nil
}

// Query returns the topK most similar records within tenantID by cosine
// similarity. Ties break by most recent insertion, then ref for stability.
func (s *MemoryStore) Query(_ context.Context, tenantID string, embedding []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.tenants[tenantID]
	matches := make([]Match, 0, len(ns))
	times := make(map[string]time.Time, len(ns))
	for _, rec := range ns {
		matches = append(matches, Match{
			Ref:          rec.Ref,
			DocumentID:   rec.DocumentID,
			OrdinalIndex: rec.OrdinalIndex,
			Text:         rec.Text,
			Score:        cosineSimilarity(embedding, rec.Embedding),
		})
		times[rec.Ref] = rec.createdAt
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		ti, tj := times[matches[i].Ref], times[matches[j].Ref]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return matches[i].Ref < matches[j].Ref
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteByDocument removes all vectors owned by documentID within tenantID.
func (s *MemoryStore) DeleteByDocument(_ context.Context, tenantID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, rec := range s.tenants[tenantID] {
		if rec.DocumentID == documentID {
			delete(s.tenants[tenantID], ref)
		}
	}
	return nil
}

// Count returns the number of records stored for tenantID.
func (s *MemoryStore) Count(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenantID])
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
