package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db dbtx
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

func NewMessageRepositoryWithTx(tx pgx.Tx) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, tenant_id, direction, content, external_message_id, status, error_detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ConversationID, m.TenantID, m.Direction, m.Content, nullableString(m.ExternalMessageID), m.Status, nullableString(m.ErrorDetail), m.CreatedAt,
	)
	return err
}

func (r *MessageRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, conversation_id, tenant_id, direction, content, external_message_id, status, error_detail, created_at
		 FROM messages WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	m, err := scanMessageRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

// ExistsExternal reports whether a platform message ID has already been
// recorded for the tenant. Webhook redeliveries hit this before any insert.
func (r *MessageRepository) ExistsExternal(ctx context.Context, tenantID, externalMessageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE tenant_id = $1 AND external_message_id = $2)`,
		tenantID, externalMessageID,
	).Scan(&exists)
	return exists, err
}

// ListRecentByConversation returns the newest messages first, capped at
// limit. Callers reverse the slice when chronological order matters.
func (r *MessageRepository) ListRecentByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, conversation_id, tenant_id, direction, content, external_message_id, status, error_detail, created_at
		 FROM messages
		 WHERE conversation_id = $1 AND tenant_id = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		conversationID, tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m, err := scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) UpdateStatus(ctx context.Context, id string, status domain.MessageStatus, errorDetail string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE messages SET status = $1, error_detail = $2 WHERE id = $3`,
		status, nullableString(errorDetail), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// CountEarlierUnhandled counts inbound messages in the conversation that
// arrived before the given message and have not reached a terminal status.
// A nonzero count means a reply for this message must wait its turn.
func (r *MessageRepository) CountEarlierUnhandled(ctx context.Context, conversationID, messageID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM messages m
		 WHERE m.conversation_id = $1
		   AND m.direction = $2
		   AND m.status IN ($3, $4)
		   AND (m.created_at, m.id) < (SELECT created_at, id FROM messages WHERE id = $5)`,
		conversationID, domain.MessageDirectionInbound,
		domain.MessageStatusReceived, domain.MessageStatusProcessing, messageID,
	).Scan(&count)
	return count, err
}

func scanMessageRow(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	var externalID, errDetail pgtype.Text
	if err := row.Scan(&m.ID, &m.ConversationID, &m.TenantID, &m.Direction, &m.Content, &externalID, &m.Status, &errDetail, &m.CreatedAt); err != nil {
		return nil, err
	}
	if externalID.Valid {
		m.ExternalMessageID = externalID.String
	}
	if errDetail.Valid {
		m.ErrorDetail = errDetail.String
	}
	return &m, nil
}
