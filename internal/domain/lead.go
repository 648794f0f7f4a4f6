package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Lead struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	FunnelID    uuid.UUID `json:"funnel_id"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	CPF         string    `json:"cpf,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	State       string    `json:"state,omitempty"`
	City        string    `json:"city,omitempty"`
	DesiredPlan string    `json:"desired_plan,omitempty"`
	DesiredExam string    `json:"desired_exam,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LeadPatch carries optional content changes. String fields are trimmed by
// the caller before they reach the repository.
type LeadPatch struct {
	Title       *string
	CPF         *string
	Phone       *string
	Email       *string
	State       *string
	City        *string
	DesiredPlan *string
	DesiredExam *string
	Description *string
}

// LeadRepository mirrors ActivityRepository for CRM funnels. A lead always
// belongs to the owner of its funnel; staff moving it do not take ownership.
type LeadRepository interface {
	List(ctx context.Context, scope Scope, funnelID *uuid.UUID) ([]*Lead, error)
	GetByID(ctx context.Context, scope Scope, id uuid.UUID) (*Lead, error)
	Create(ctx context.Context, scope Scope, l *Lead, position *int) error
	Update(ctx context.Context, scope Scope, id uuid.UUID, patch LeadPatch, to Placement) (*Lead, error)
	Delete(ctx context.Context, scope Scope, id uuid.UUID) error
}
