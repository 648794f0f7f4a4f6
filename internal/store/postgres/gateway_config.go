package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mentorpro/internal/domain"
)

// GatewayConfigRepo stores one gateway credential per mentor. The key column
// only ever holds vault ciphertext.
type GatewayConfigRepo struct {
	pool *pgxpool.Pool
}

func NewGatewayConfigRepo(pool *pgxpool.Pool) *GatewayConfigRepo {
	return &GatewayConfigRepo{pool: pool}
}

func (r *GatewayConfigRepo) Get(ctx context.Context, scope domain.Scope) (*domain.GatewayConfig, error) {
	var c domain.GatewayConfig

	err := r.pool.QueryRow(ctx,
		`SELECT mentor_id, tenant_id, api_key_encrypted, sandbox, updated_at
		 FROM gateway_configs WHERE tenant_id = $1 AND mentor_id = $2`,
		scope.TenantID, scope.UserID,
	).Scan(&c.MentorID, &c.TenantID, &c.APIKeyEncrypted, &c.Sandbox, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("gatewayConfigRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gatewayConfigRepo.Get: %w", err)
	}

	return &c, nil
}

func (r *GatewayConfigRepo) Upsert(ctx context.Context, c *domain.GatewayConfig) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO gateway_configs (mentor_id, tenant_id, api_key_encrypted, sandbox, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (mentor_id) DO UPDATE SET
		        api_key_encrypted = EXCLUDED.api_key_encrypted,
		        sandbox = EXCLUDED.sandbox,
		        updated_at = EXCLUDED.updated_at
		 WHERE gateway_configs.tenant_id = EXCLUDED.tenant_id`,
		c.MentorID, c.TenantID, c.APIKeyEncrypted, c.Sandbox, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("gatewayConfigRepo.Upsert: %w", err)
	}

	return nil
}
