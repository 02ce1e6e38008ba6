package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/cloo-solutions/converso/internal/pagination"
	"github.com/cloo-solutions/converso/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, tenant_id, channel_id, customer_identifier, status, started_at, last_message_at, message_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TenantID, c.ChannelID, c.CustomerIdentifier, c.Status, c.StartedAt, c.LastMessageAt, c.MessageCount,
	)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, channel_id, customer_identifier, status, started_at, last_message_at, message_count
		 FROM conversations WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.ChannelID, &c.CustomerIdentifier, &c.Status, &c.StartedAt, &c.LastMessageAt, &c.MessageCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetActive returns the single active conversation for a customer on a
// channel, if one exists.
func (r *ConversationRepository) GetActive(ctx context.Context, tenantID, channelID, customerIdentifier string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, channel_id, customer_identifier, status, started_at, last_message_at, message_count
		 FROM conversations
		 WHERE tenant_id = $1 AND channel_id = $2 AND customer_identifier = $3 AND status = $4
		 ORDER BY started_at DESC
		 LIMIT 1`,
		tenantID, channelID, customerIdentifier, domain.ConversationStatusActive,
	).Scan(&c.ID, &c.TenantID, &c.ChannelID, &c.CustomerIdentifier, &c.Status, &c.StartedAt, &c.LastMessageAt, &c.MessageCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) Close(ctx context.Context, tenantID, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations SET status = $1 WHERE id = $2 AND tenant_id = $3`,
		domain.ConversationStatusClosed, id, tenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// RecordMessage bumps the activity timestamp and message counter. Runs in
// the same transaction as the message insert.
func (r *ConversationRepository) RecordMessage(ctx context.Context, id string, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE conversations SET last_message_at = $1, message_count = message_count + 1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.ConversationPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, channel_id, customer_identifier, status, started_at, last_message_at, message_count
			 FROM conversations
			 WHERE tenant_id = $1 AND (last_message_at, id) < ($2, $3)
			 ORDER BY last_message_at DESC, id DESC
			 LIMIT $4`,
			tenantID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, channel_id, customer_identifier, status, started_at, last_message_at, message_count
			 FROM conversations
			 WHERE tenant_id = $1
			 ORDER BY last_message_at DESC, id DESC
			 LIMIT $2`,
			tenantID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ChannelID, &c.CustomerIdentifier, &c.Status, &c.StartedAt, &c.LastMessageAt, &c.MessageCount); err != nil {
			return nil, err
		}
		items = append(items, &c)
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
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.LastMessageAt)
	}

	return &service.ConversationPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
