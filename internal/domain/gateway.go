package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GatewayConfig holds a mentor's payment gateway credentials. The API key is
// stored encrypted; only the secrets vault can read it.
type GatewayConfig struct {
	MentorID        uuid.UUID
	TenantID        uuid.UUID
	APIKeyEncrypted string
	Sandbox         bool
	UpdatedAt       time.Time
}

type GatewayConfigRepository interface {
	Get(ctx context.Context, scope Scope) (*GatewayConfig, error)
	Upsert(ctx context.Context, cfg *GatewayConfig) error
}
