package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type BoardKind string

const (
	BoardActivities BoardKind = "activities"
	BoardCRM        BoardKind = "crm"
)

func (k BoardKind) Valid() bool {
	return k == BoardActivities || k == BoardCRM
}

// Stage is a named column of a board. Activity stages and CRM funnels share
// this shape.
type Stage struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	OrderHint *int      `json:"order_hint,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StagePatch struct {
	Name      *string
	Color     *string
	OrderHint *int
}

// StageSeed describes a stage created on first board access.
type StageSeed struct {
	Name      string `yaml:"name"`
	Color     string `yaml:"color"`
	OrderHint int    `yaml:"order_hint"`
}

// Placement says where an item should land. A nil StageID keeps the item in
// its current stage; a nil Position appends to the end of the target stage.
type Placement struct {
	StageID  *uuid.UUID
	Position *int
}

// Moves reports whether the placement asks for any change of position.
func (p Placement) Moves() bool {
	return p.StageID != nil || p.Position != nil
}

type StageRepository interface {
	List(ctx context.Context, scope Scope) ([]*Stage, error)
	GetByID(ctx context.Context, scope Scope, id uuid.UUID) (*Stage, error)
	Create(ctx context.Context, scope Scope, s *Stage) error
	Update(ctx context.Context, scope Scope, id uuid.UUID, patch StagePatch) (*Stage, error)
	Delete(ctx context.Context, scope Scope, id uuid.UUID) error
	// EnsureSeeded inserts seeds for the caller when it owns no stages yet and
	// returns the caller's stages either way.
	EnsureSeeded(ctx context.Context, scope Scope, seeds []StageSeed) ([]*Stage, error)
}
