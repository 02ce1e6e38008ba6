package vector

import (
	"context"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorStore stores vectors in a shared Postgres table with a mandatory
// tenant_id column. The tenant filter is bound inside every query here, so
// even a poisoned ref or caller bug cannot read across tenants.
type PgvectorStore struct {
	pool *pgxpool.Pool
}

// NewPgvectorStore creates a PgvectorStore backed by the given pool.
func NewPgvectorStore(pool *pgxpool.Pool) *PgvectorStore {
	return &PgvectorStore{pool: pool}
}

// Upsert inserts or replaces the given records under tenantID.
func (s *PgvectorStore) Upsert(ctx context.Context, tenantID string, records []Record) error {
	for _, rec := range records {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO vector_records (ref, tenant_id, document_id, ordinal_index, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (ref) DO UPDATE
			 SET document_id = EXCLUDED.document_id,
			     ordinal_index = EXCLUDED.ordinal_index,
			     content = EXCLUDED.content,
			     embedding = EXCLUDED.embedding
			 WHERE vector_records.tenant_id = EXCLUDED.tenant_id`,
			rec.Ref, tenantID, rec.DocumentID, rec.OrdinalIndex, rec.Text,
			pgvector.NewVector(rec.Embedding), time.Now().UTC(),
		)
		if err != nil {
			return domain.NewProviderError("pgvector", true, err)
		}
		// The conflict clause refuses to update a ref held by a different
		// tenant. Zero affected rows means the write was skipped.
		if tag.RowsAffected() == 0 {
			return domain.NewDomainError(domain.ErrCodeAlreadyExists, "vector ref is owned by another tenant")
		}
	}
	return nil
}

// Query returns the topK most similar records within tenantID, by cosine
// similarity, ties broken by most recent created_at.
func (s *PgvectorStore) Query(ctx context.Context, tenantID string, embedding []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT ref, document_id, ordinal_index, content, 1 - (embedding <=> $2) AS score
		 FROM vector_records
		 WHERE tenant_id = $1
		 ORDER BY embedding <=> $2 ASC, created_at DESC
		 LIMIT $3`,
		tenantID, pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, domain.NewProviderError("pgvector", true, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Ref, &m.DocumentID, &m.OrdinalIndex, &m.Text, &m.Score); err != nil {
			return nil, domain.NewProviderError("pgvector", false, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewProviderError("pgvector", true, err)
	}
	return matches, nil
}

// DeleteByDocument removes all vectors owned by documentID within tenantID.
func (s *PgvectorStore) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM vector_records WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID,
	)
	if err != nil {
		return domain.NewProviderError("pgvector", true, err)
	}
	return nil
}
