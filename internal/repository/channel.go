package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChannelRepository struct {
	db dbtx
}

func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{db: pool}
}

func NewChannelRepositoryWithTx(tx pgx.Tx) *ChannelRepository {
	return &ChannelRepository{db: tx}
}

func (r *ChannelRepository) Create(ctx context.Context, c *domain.Channel) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO channels (id, tenant_id, platform, platform_id, webhook_secret, access_token, active, created_at, last_webhook_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.TenantID, c.Platform, c.PlatformID, nullableString(c.WebhookSecret), nullableString(c.AccessToken), c.Active, c.CreatedAt, c.LastWebhookAt,
	)
	return err
}

func (r *ChannelRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Channel, error) {
	return r.getOne(ctx,
		`SELECT id, tenant_id, platform, platform_id, webhook_secret, access_token, active, created_at, last_webhook_at
		 FROM channels WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
}

// GetActiveByPlatformID resolves the tenant owning an inbound webhook.
// Inactive channels are excluded so a disabled channel silently drops traffic.
func (r *ChannelRepository) GetActiveByPlatformID(ctx context.Context, platform domain.ChannelPlatform, platformID string) (*domain.Channel, error) {
	return r.getOne(ctx,
		`SELECT id, tenant_id, platform, platform_id, webhook_secret, access_token, active, created_at, last_webhook_at
		 FROM channels WHERE platform = $1 AND platform_id = $2 AND active = TRUE`,
		platform, platformID,
	)
}

func (r *ChannelRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Channel, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, platform, platform_id, webhook_secret, access_token, active, created_at, last_webhook_at
		 FROM channels WHERE tenant_id = $1 ORDER BY created_at ASC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*domain.Channel
	for rows.Next() {
		c, err := scanChannelRow(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (r *ChannelRepository) Update(ctx context.Context, c *domain.Channel) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE channels SET webhook_secret = $1, access_token = $2, active = $3
		 WHERE id = $4 AND tenant_id = $5`,
		nullableString(c.WebhookSecret), nullableString(c.AccessToken), c.Active, c.ID, c.TenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

func (r *ChannelRepository) TouchWebhook(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE channels SET last_webhook_at = $1 WHERE id = $2`,
		at, id,
	)
	return err
}

func (r *ChannelRepository) getOne(ctx context.Context, sql string, args ...any) (*domain.Channel, error) {
	row := r.db.QueryRow(ctx, sql, args...)
	c, err := scanChannelRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanChannelRow(row pgx.Row) (*domain.Channel, error) {
	var c domain.Channel
	var secret, token *string
	if err := row.Scan(&c.ID, &c.TenantID, &c.Platform, &c.PlatformID, &secret, &token, &c.Active, &c.CreatedAt, &c.LastWebhookAt); err != nil {
		return nil, err
	}
	if secret != nil {
		c.WebhookSecret = *secret
	}
	if token != nil {
		c.AccessToken = *token
	}
	return &c, nil
}
