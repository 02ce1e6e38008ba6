package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/pagination"
	"github.com/cloo-solutions/converso/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, tenant_id, filename, type, byte_size, status, error_detail, chunk_count, storage_key, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.TenantID, d.Filename, d.Type, d.ByteSize, d.Status, nullableString(d.ErrorDetail), d.ChunkCount, nullableString(d.StorageKey), d.CreatedAt, d.ProcessedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, filename, type, byte_size, status, error_detail, chunk_count, storage_key, created_at, processed_at
		 FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	d, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, filename, type, byte_size, status, error_detail, chunk_count, storage_key, created_at, processed_at
			 FROM documents
			 WHERE tenant_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			tenantID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, filename, type, byte_size, status, error_detail, chunk_count, storage_key, created_at, processed_at
			 FROM documents
			 WHERE tenant_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			tenantID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Document
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateStatus transitions a document and records the outcome. Terminal
// states (ready, failed) also stamp processed_at.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, tenantID, id string, status domain.DocumentStatus, errorDetail string, chunkCount int) error {
	var processedAt *time.Time
	if status == domain.DocumentStatusReady || status == domain.DocumentStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, error_detail = $2, chunk_count = $3, processed_at = $4
		 WHERE id = $5 AND tenant_id = $6`,
		status, nullableString(errorDetail), chunkCount, processedAt, id, tenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocumentRow(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var errDetail, storageKey pgtype.Text
	if err := row.Scan(&d.ID, &d.TenantID, &d.Filename, &d.Type, &d.ByteSize, &d.Status, &errDetail, &d.ChunkCount, &storageKey, &d.CreatedAt, &d.ProcessedAt); err != nil {
		return nil, err
	}
	if errDetail.Valid {
		d.ErrorDetail = errDetail.String
	}
	if storageKey.Valid {
		d.StorageKey = storageKey.String
	}
	return &d, nil
}
