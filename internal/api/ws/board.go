package ws

import (
	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/domain"
)

// Board event types.
const (
	EventItemCreated  = "item_created"
	EventItemUpdated  = "item_updated"
	EventItemMoved    = "item_moved"
	EventItemDeleted  = "item_deleted"
	EventStageCreated = "stage_created"
	EventStageUpdated = "stage_updated"
	EventStageDeleted = "stage_deleted"
)

// BoardEvent represents a real-time kanban board update.
type BoardEvent struct {
	Type     string           `json:"type"`
	Board    domain.BoardKind `json:"board"`
	TenantID uuid.UUID        `json:"-"`
	OwnerID  uuid.UUID        `json:"owner_id"`
	StageID  uuid.UUID        `json:"stage_id"`
	ItemID   *uuid.UUID       `json:"item_id,omitempty"`
	Data     any              `json:"data,omitempty"`
}
