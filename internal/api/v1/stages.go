package v1

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mentorpro/internal/api/ws"
	"github.com/gosuda/mentorpro/internal/board"
	"github.com/gosuda/mentorpro/internal/domain"
)

type StageBody struct {
	Name      string `json:"name" minLength:"1" maxLength:"80" doc:"Column name"`
	Color     string `json:"color,omitempty" maxLength:"64" doc:"CSS class used to tint the column"`
	OrderHint *int   `json:"order_hint,omitempty" minimum:"0" doc:"Column order; defaults to after the last column"`
}

type StagePatchBody struct {
	Name      *string `json:"name,omitempty" minLength:"1" maxLength:"80" doc:"Column name"`
	Color     *string `json:"color,omitempty" maxLength:"64" doc:"CSS class used to tint the column"`
	OrderHint *int    `json:"order_hint,omitempty" minimum:"0" doc:"Column order"`
}

type CreateStageInput struct {
	Body StageBody
}

type StageOutput struct {
	Body *domain.Stage
}

type ListStagesOutput struct {
	Body []*domain.Stage
}

// stageRoutes holds the stage handlers shared by the activity board and the
// CRM funnels.
type stageRoutes struct {
	kind   domain.BoardKind
	noun   string
	store  DataStore
	events Publisher
	seeds  []domain.StageSeed
}

func (sr stageRoutes) repo() domain.StageRepository {
	if sr.kind == domain.BoardCRM {
		return sr.store.CRMFunnels()
	}
	return sr.store.ActivityStages()
}

// list returns the caller's stages, seeding defaults on first access.
func (sr stageRoutes) list(ctx context.Context, scope domain.Scope) ([]*domain.Stage, error) {
	stages, err := sr.repo().EnsureSeeded(ctx, scope, sr.seeds)
	if err != nil {
		return nil, problem(err, sr.noun, "list "+sr.noun+"s")
	}
	board.SortStages(stages)
	return stages, nil
}

func (sr stageRoutes) create(ctx context.Context, body StageBody) (*StageOutput, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		return nil, huma.Error400BadRequest("name must not be blank")
	}

	s := &domain.Stage{
		ID:        uuid.New(),
		Name:      name,
		Color:     body.Color,
		OrderHint: body.OrderHint,
	}
	if err := sr.repo().Create(ctx, scope, s); err != nil {
		return nil, problem(err, sr.noun, "create "+sr.noun)
	}

	publish(ctx, sr.events, ws.BoardEvent{
		Type:     ws.EventStageCreated,
		Board:    sr.kind,
		TenantID: s.TenantID,
		OwnerID:  s.OwnerID,
		StageID:  s.ID,
		Data:     s,
	})
	return &StageOutput{Body: s}, nil
}

func (sr stageRoutes) update(ctx context.Context, id uuid.UUID, body StagePatchBody) (*StageOutput, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	patch := domain.StagePatch{Color: body.Color, OrderHint: body.OrderHint}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			return nil, huma.Error400BadRequest("name must not be blank")
		}
		patch.Name = &name
	}

	s, err := sr.repo().Update(ctx, scope, id, patch)
	if err != nil {
		return nil, problem(err, sr.noun, "update "+sr.noun)
	}

	publish(ctx, sr.events, ws.BoardEvent{
		Type:     ws.EventStageUpdated,
		Board:    sr.kind,
		TenantID: s.TenantID,
		OwnerID:  s.OwnerID,
		StageID:  s.ID,
		Data:     s,
	})
	return &StageOutput{Body: s}, nil
}

func (sr stageRoutes) delete(ctx context.Context, id uuid.UUID) (*struct{}, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	s, err := sr.repo().GetByID(ctx, scope, id)
	if err != nil {
		return nil, problem(err, sr.noun, "delete "+sr.noun)
	}
	if err := sr.repo().Delete(ctx, scope, id); err != nil {
		return nil, problem(err, sr.noun, "delete "+sr.noun)
	}

	publish(ctx, sr.events, ws.BoardEvent{
		Type:     ws.EventStageDeleted,
		Board:    sr.kind,
		TenantID: s.TenantID,
		OwnerID:  s.OwnerID,
		StageID:  s.ID,
	})
	return nil, nil
}

// publish forwards a board event to live clients. Delivery is best effort;
// the mutation has already been committed.
func publish(ctx context.Context, events Publisher, ev ws.BoardEvent) {
	if events == nil {
		return
	}
	if err := events.PublishBoard(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).
			Str("tenant_id", ev.TenantID.String()).
			Str("board", string(ev.Board)).
			Str("type", ev.Type).
			Msg("board event not published")
	}
}

// itemEvent picks the event type for an item update.
func itemEvent(to domain.Placement) string {
	if to.Moves() {
		return ws.EventItemMoved
	}
	return ws.EventItemUpdated
}
