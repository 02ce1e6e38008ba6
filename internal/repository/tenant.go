package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/converso/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TenantRepository struct {
	db dbtx
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: pool}
}

func NewTenantRepositoryWithTx(tx pgx.Tx) *TenantRepository {
	return &TenantRepository{db: tx}
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, name, business_name, response_tone, business_facts, blocked_topics, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.BusinessName, t.ResponseTone, t.BusinessFacts, t.BlockedTopics, t.CreatedAt,
	)
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, name, business_name, response_tone, business_facts, blocked_topics, created_at
		 FROM tenants WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.BusinessName, &t.ResponseTone, &t.BusinessFacts, &t.BlockedTopics, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, name, business_name, response_tone, business_facts, blocked_topics, created_at
		 FROM tenants WHERE name = $1`,
		name,
	).Scan(&t.ID, &t.Name, &t.BusinessName, &t.ResponseTone, &t.BusinessFacts, &t.BlockedTopics, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, business_name, response_tone, business_facts, blocked_topics, created_at
		 FROM tenants ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.BusinessName, &t.ResponseTone, &t.BusinessFacts, &t.BlockedTopics, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE tenants SET name = $1, business_name = $2, response_tone = $3, business_facts = $4, blocked_topics = $5
		 WHERE id = $6`,
		t.Name, t.BusinessName, t.ResponseTone, t.BusinessFacts, t.BlockedTopics, t.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}
