package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityHigh   Priority = "Alta"
	PriorityMedium Priority = "Média"
	PriorityLow    Priority = "Baixa"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

type Activity struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	StageID     uuid.UUID  `json:"stage_id"`
	Position    int        `json:"position"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Assignee    string     `json:"assignee,omitempty"`
	DueOn       *time.Time `json:"due_on,omitempty"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ActivityPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Assignee    *string
	DueOn       *time.Time
	Tags        []string
}

// ActivityRepository keeps activities dense per stage: every mutating call
// leaves positions 0..n-1 in each stage it touched.
type ActivityRepository interface {
	List(ctx context.Context, scope Scope, stageID *uuid.UUID) ([]*Activity, error)
	GetByID(ctx context.Context, scope Scope, id uuid.UUID) (*Activity, error)
	Create(ctx context.Context, scope Scope, a *Activity, position *int) error
	Update(ctx context.Context, scope Scope, id uuid.UUID, patch ActivityPatch, to Placement) (*Activity, error)
	Delete(ctx context.Context, scope Scope, id uuid.UUID) error
}
