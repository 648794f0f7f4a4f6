package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/api/ws"
	"github.com/gosuda/mentorpro/internal/board"
	"github.com/gosuda/mentorpro/internal/domain"
)

type UpdateActivityStageInput struct {
	StageID uuid.UUID `path:"stageID" doc:"Stage ID"`
	Body    StagePatchBody
}

type DeleteActivityStageInput struct {
	StageID uuid.UUID `path:"stageID" doc:"Stage ID"`
}

type ListActivitiesInput struct {
	StageID string `query:"stage_id" format:"uuid" doc:"Only activities of this stage"`
}

type ListActivitiesOutput struct {
	Body []*domain.Activity
}

type CreateActivityInput struct {
	Body struct {
		StageID     uuid.UUID       `json:"stage_id" doc:"Stage the activity starts in"`
		Title       string          `json:"title" minLength:"1" maxLength:"200" doc:"Activity title"`
		Description string          `json:"description,omitempty" doc:"Free text"`
		Priority    domain.Priority `json:"priority,omitempty" enum:"Alta,Média,Baixa" doc:"Defaults to Média"`
		Assignee    string          `json:"assignee,omitempty" maxLength:"120"`
		DueOn       string          `json:"due_on,omitempty" format:"date" doc:"YYYY-MM-DD"`
		Tags        []string        `json:"tags,omitempty"`
		Position    *int            `json:"position,omitempty" doc:"Slot in the stage, clamped to its bounds; appended when omitted"`
	}
}

type ActivityOutput struct {
	Body *domain.Activity
}

type UpdateActivityInput struct {
	ActivityID uuid.UUID `path:"activityID" doc:"Activity ID"`
	Body       struct {
		Title       *string          `json:"title,omitempty" minLength:"1" maxLength:"200"`
		Description *string          `json:"description,omitempty"`
		Priority    *domain.Priority `json:"priority,omitempty" enum:"Alta,Média,Baixa"`
		Assignee    *string          `json:"assignee,omitempty" maxLength:"120"`
		DueOn       *string          `json:"due_on,omitempty" format:"date" doc:"YYYY-MM-DD"`
		Tags        []string         `json:"tags,omitempty"`
		StageID     *uuid.UUID       `json:"stage_id,omitempty" doc:"Move to this stage"`
		Position    *int             `json:"position,omitempty" doc:"Move to this slot, clamped to the stage bounds"`
	}
}

type DeleteActivityInput struct {
	ActivityID uuid.UUID `path:"activityID" doc:"Activity ID"`
}

type ActivityBoard struct {
	Board domain.BoardKind               `json:"board"`
	Lanes []board.Lane[*domain.Activity] `json:"lanes"`
}

type ActivityBoardOutput struct {
	Body *ActivityBoard
}

func locateActivity(a *domain.Activity) (uuid.UUID, int) { return a.StageID, a.Position }

// RegisterActivityRoutes wires the personal activity board.
func RegisterActivityRoutes(api huma.API, store DataStore, events Publisher, seeds board.Seeds) {
	stages := stageRoutes{
		kind:   domain.BoardActivities,
		noun:   "stage",
		store:  store,
		events: events,
		seeds:  seeds[domain.BoardActivities],
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-activity-stages",
		Method:      http.MethodGet,
		Path:        "/activities/stages",
		Summary:     "List activity stages, seeding defaults on first access",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, _ *struct{}) (*ListStagesOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}
		list, err := stages.list(ctx, scope)
		if err != nil {
			return nil, err
		}
		return &ListStagesOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-activity-stage",
		Method:        http.MethodPost,
		Path:          "/activities/stages",
		Summary:       "Create an activity stage",
		Tags:          []string{"Activities"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateStageInput) (*StageOutput, error) {
		return stages.create(ctx, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-activity-stage",
		Method:      http.MethodPatch,
		Path:        "/activities/stages/{stageID}",
		Summary:     "Rename, recolor or reorder an activity stage",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, input *UpdateActivityStageInput) (*StageOutput, error) {
		return stages.update(ctx, input.StageID, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-activity-stage",
		Method:      http.MethodDelete,
		Path:        "/activities/stages/{stageID}",
		Summary:     "Delete an activity stage and its activities",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, input *DeleteActivityStageInput) (*struct{}, error) {
		return stages.delete(ctx, input.StageID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/activities",
		Summary:     "List activities in stage and position order",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, input *ListActivitiesInput) (*ListActivitiesOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}
		stageID, err := optionalUUID(input.StageID, "stage_id")
		if err != nil {
			return nil, err
		}

		list, err := store.Activities().List(ctx, scope, stageID)
		if err != nil {
			return nil, problem(err, "stage", "list activities")
		}
		return &ListActivitiesOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-activity",
		Method:        http.MethodPost,
		Path:          "/activities",
		Summary:       "Create an activity",
		Tags:          []string{"Activities"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateActivityInput) (*ActivityOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		title := strings.TrimSpace(input.Body.Title)
		if title == "" {
			return nil, huma.Error400BadRequest("title must not be blank")
		}
		dueOn, err := optionalDate(input.Body.DueOn, "due_on")
		if err != nil {
			return nil, err
		}
		priority := input.Body.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}

		a := &domain.Activity{
			ID:          uuid.New(),
			StageID:     input.Body.StageID,
			Title:       title,
			Description: input.Body.Description,
			Priority:    priority,
			Assignee:    strings.TrimSpace(input.Body.Assignee),
			DueOn:       dueOn,
			Tags:        input.Body.Tags,
		}
		if err := store.Activities().Create(ctx, scope, a, input.Body.Position); err != nil {
			return nil, problem(err, "stage", "create activity")
		}

		publish(ctx, events, ws.BoardEvent{
			Type:     ws.EventItemCreated,
			Board:    domain.BoardActivities,
			TenantID: a.TenantID,
			OwnerID:  a.OwnerID,
			StageID:  a.StageID,
			ItemID:   &a.ID,
			Data:     a,
		})
		return &ActivityOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-activity",
		Method:      http.MethodPatch,
		Path:        "/activities/{activityID}",
		Summary:     "Edit an activity and optionally move it",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, input *UpdateActivityInput) (*ActivityOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		body := input.Body
		patch := domain.ActivityPatch{
			Title:       trimmed(body.Title),
			Description: body.Description,
			Priority:    body.Priority,
			Assignee:    trimmed(body.Assignee),
			Tags:        body.Tags,
		}
		if patch.Title != nil && *patch.Title == "" {
			return nil, huma.Error400BadRequest("title must not be blank")
		}
		if body.DueOn != nil {
			if patch.DueOn, err = optionalDate(*body.DueOn, "due_on"); err != nil {
				return nil, err
			}
		}
		to := domain.Placement{StageID: body.StageID, Position: body.Position}

		a, err := store.Activities().Update(ctx, scope, input.ActivityID, patch, to)
		if err != nil {
			return nil, problem(err, "activity", "update activity")
		}

		publish(ctx, events, ws.BoardEvent{
			Type:     itemEvent(to),
			Board:    domain.BoardActivities,
			TenantID: a.TenantID,
			OwnerID:  a.OwnerID,
			StageID:  a.StageID,
			ItemID:   &a.ID,
			Data:     a,
		})
		return &ActivityOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-activity",
		Method:      http.MethodDelete,
		Path:        "/activities/{activityID}",
		Summary:     "Delete an activity and close the gap it leaves",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, input *DeleteActivityInput) (*struct{}, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		a, err := store.Activities().GetByID(ctx, scope, input.ActivityID)
		if err != nil {
			return nil, problem(err, "activity", "delete activity")
		}
		if err := store.Activities().Delete(ctx, scope, input.ActivityID); err != nil {
			return nil, problem(err, "activity", "delete activity")
		}

		publish(ctx, events, ws.BoardEvent{
			Type:     ws.EventItemDeleted,
			Board:    domain.BoardActivities,
			TenantID: a.TenantID,
			OwnerID:  a.OwnerID,
			StageID:  a.StageID,
			ItemID:   &a.ID,
		})
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-activity-board",
		Method:      http.MethodGet,
		Path:        "/activities/board",
		Summary:     "Get the activity board grouped by stage",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, _ *struct{}) (*ActivityBoardOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		list, err := stages.list(ctx, scope)
		if err != nil {
			return nil, err
		}
		items, err := store.Activities().List(ctx, scope, nil)
		if err != nil {
			return nil, problem(err, "activity", "list activities for board")
		}

		return &ActivityBoardOutput{Body: &ActivityBoard{
			Board: domain.BoardActivities,
			Lanes: board.Assemble(list, items, locateActivity),
		}}, nil
	})
}
