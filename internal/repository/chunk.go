package repository

import (
	"context"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) InsertBatch(ctx context.Context, chunks []*domain.Chunk) error {
	for _, c := range chunks {
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks (id, document_id, tenant_id, ordinal_index, content, token_estimate, vector_ref, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.DocumentID, c.TenantID, c.OrdinalIndex, c.Text, c.TokenEstimate, c.VectorRef, c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, tenantID, documentID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, tenant_id, ordinal_index, content, token_estimate, vector_ref, created_at
		 FROM chunks WHERE document_id = $1 AND tenant_id = $2 ORDER BY ordinal_index ASC`,
		documentID, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.TenantID, &c.OrdinalIndex, &c.Text, &c.TokenEstimate, &c.VectorRef, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, tenantID, documentID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1 AND tenant_id = $2`,
		documentID, tenantID,
	)
	return err
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = $1 AND tenant_id = $2`,
		documentID, tenantID,
	).Scan(&count)
	return count, err
}
