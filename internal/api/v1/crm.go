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

type UpdateFunnelInput struct {
	FunnelID uuid.UUID `path:"funnelID" doc:"Funnel ID"`
	Body     StagePatchBody
}

type DeleteFunnelInput struct {
	FunnelID uuid.UUID `path:"funnelID" doc:"Funnel ID"`
}

type ListLeadsInput struct {
	FunnelID string `query:"funnel_id" format:"uuid" doc:"Only leads of this funnel"`
}

type ListLeadsOutput struct {
	Body []*domain.Lead
}

// LeadFields is the editable content of a lead.
type LeadFields struct {
	CPF         string `json:"cpf,omitempty" maxLength:"18"`
	Phone       string `json:"phone,omitempty" maxLength:"32"`
	Email       string `json:"email,omitempty" maxLength:"254"`
	State       string `json:"state,omitempty" maxLength:"64"`
	City        string `json:"city,omitempty" maxLength:"120"`
	DesiredPlan string `json:"desired_plan,omitempty" maxLength:"120"`
	DesiredExam string `json:"desired_exam,omitempty" maxLength:"120"`
	Description string `json:"description,omitempty"`
}

type CreateLeadInput struct {
	Body struct {
		LeadFields
		FunnelID uuid.UUID `json:"funnel_id" doc:"Funnel the lead starts in"`
		Title    string    `json:"title" minLength:"1" maxLength:"200" doc:"Lead name"`
		Position *int      `json:"position,omitempty" doc:"Slot in the funnel, clamped to its bounds; appended when omitted"`
	}
}

type LeadOutput struct {
	Body *domain.Lead
}

type UpdateLeadInput struct {
	LeadID uuid.UUID `path:"leadID" doc:"Lead ID"`
	Body   struct {
		Title       *string    `json:"title,omitempty" minLength:"1" maxLength:"200"`
		CPF         *string    `json:"cpf,omitempty" maxLength:"18"`
		Phone       *string    `json:"phone,omitempty" maxLength:"32"`
		Email       *string    `json:"email,omitempty" maxLength:"254"`
		State       *string    `json:"state,omitempty" maxLength:"64"`
		City        *string    `json:"city,omitempty" maxLength:"120"`
		DesiredPlan *string    `json:"desired_plan,omitempty" maxLength:"120"`
		DesiredExam *string    `json:"desired_exam,omitempty" maxLength:"120"`
		Description *string    `json:"description,omitempty"`
		FunnelID    *uuid.UUID `json:"funnel_id,omitempty" doc:"Move to this funnel"`
		Position    *int       `json:"position,omitempty" doc:"Move to this slot, clamped to the funnel bounds"`
	}
}

type DeleteLeadInput struct {
	LeadID uuid.UUID `path:"leadID" doc:"Lead ID"`
}

type CRMBoard struct {
	Board domain.BoardKind           `json:"board"`
	Lanes []board.Lane[*domain.Lead] `json:"lanes"`
}

type CRMBoardOutput struct {
	Body *CRMBoard
}

func locateLead(l *domain.Lead) (uuid.UUID, int) { return l.FunnelID, l.Position }

// RegisterCRMRoutes wires the CRM funnels. Admin and staff act on every
// funnel of the tenant; mentors only see their own.
func RegisterCRMRoutes(api huma.API, store DataStore, events Publisher, seeds board.Seeds) {
	funnels := stageRoutes{
		kind:   domain.BoardCRM,
		noun:   "funnel",
		store:  store,
		events: events,
		seeds:  seeds[domain.BoardCRM],
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-crm-funnels",
		Method:      http.MethodGet,
		Path:        "/crm/funnels",
		Summary:     "List CRM funnels",
		Tags:        []string{"CRM"},
	}, func(ctx context.Context, _ *struct{}) (*ListStagesOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}
		list, err := funnels.list(ctx, scope)
		if err != nil {
			return nil, err
		}
		return &ListStagesOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-crm-funnel",
		Method:        http.MethodPost,
		Path:          "/crm/funnels",
		Summary:       "Create a CRM funnel",
		Tags:          []string{"CRM"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateStageInput) (*StageOutput, error) {
		return funnels.create(ctx, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-crm-funnel",
		Method:      http.MethodPatch,
		Path:        "/crm/funnels/{funnelID}",
		Summary:     "Rename, recolor or reorder a CRM funnel",
		Tags:        []string{"CRM"},
	}, func(ctx context.Context, input *UpdateFunnelInput) (*StageOutput, error) {
		return funnels.update(ctx, input.FunnelID, input.Body)
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-crm-funnel",
		Method:      http.MethodDelete,
		Path:        "/crm/funnels/{funnelID}",
		Summary:     "Delete a CRM funnel and its leads",
		Tags:        []string{"CRM"},
	}, func(ctx context.Context, input *DeleteFunnelInput) (*struct{}, error) {
		return funnels.delete(ctx, input.FunnelID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-crm-leads",
		Method:      http.MethodGet,
		Path:        "/crm/leads",
		Summary:     "List leads in funnel and position order",
		Tags:        []string{"CRM"},
	}, func(ctx context.Context, input *ListLeadsInput) (*ListLeadsOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}
		funnelID, err := optionalUUID(input.FunnelID, "funnel_id")
		if err != nil {
			return nil, err
		}

		list, err := store.Leads().List(ctx, scope, funnelID)
		if err != nil {
			return nil, problem(err, "funnel", "list leads")
		}
		return &ListLeadsOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-crm-lead",
		Method:        http.MethodPost,
		Path:          "/crm/leads",
		Summary:       "Create a lead",
		Tags:          []string{"CRM"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateLeadInput) (*LeadOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		body := input.Body
		title := strings.TrimSpace(body.Title)
		if title == "" {
			return nil, huma.Error400BadRequest("title must not be blank")
		}

		l := &domain.Lead{
			ID:          uuid.New(),
			FunnelID:    body.FunnelID,
			Title:       title,
			CPF:         strings.TrimSpace(body.CPF),
			Phone:       strings.TrimSpace(body.Phone),
			Email:       strings.TrimSpace(body.Email),
			State:       strings.TrimSpace(body.State),
			City:        strings.TrimSpace(body.City),
			DesiredPlan: strings.TrimSpace(body.DesiredPlan),
			DesiredExam: strings.TrimSpace(body.DesiredExam),
			Description: body.Description,
		}
		if err := store.Leads().Create(ctx, scope, l, body.Position); err != nil {
			return nil, problem(err, "funnel", "create lead")
		}

		publish(ctx, events, ws.BoardEvent{
			Type:     ws.EventItemCreated,
			Board:    domain.BoardCRM,
			TenantID: l.TenantID,
			OwnerID:  l.OwnerID,
			StageID:  l.FunnelID,
			ItemID:   &l.ID,
			Data:     l,
		})
		return &LeadOutput{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-crm-lead",
		Method:      http.MethodPatch,
		Path:        "/crm/leads/{leadID}",
		Summary:     "Edit a lead and optionally move it",
		Tags:        []string{"CRM"},
	}, func(ctx context.Context, input *UpdateLeadInput) (*LeadOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		body := input.Body
		patch := domain.LeadPatch{
			Title:       trimmed(body.Title),
			CPF:         trimmed(body.CPF),
			Phone:       trimmed(body.Phone),
			Email:       trimmed(body.Email),
			State:       trimmed(body.State),
			City:        trimmed(body.City),
			DesiredPlan: trimmed(body.DesiredPlan),
			DesiredExam: trimmed(body.DesiredExam),
			Description: body.Description,
		}
		if patch.Title != nil && *patch.Title == "" {
			return nil, huma.Error400BadRequest("title must not be blank")
		}
		to := domain.Placement{StageID: body.FunnelID, Position: body.Position}

		l, err := store.Leads().Update(ctx, scope, input.LeadID, patch, to)
		if err != nil {
			return nil, problem(err, "lead", "update lead")
		}

		publish(ctx, events, ws.BoardEvent{
			Type:     itemEvent(to),
			Board:    domain.BoardCRM,
			TenantID: l.TenantID,
			OwnerID:  l.OwnerID,
			StageID:  l.FunnelID,
			ItemID:   &l.ID,
			Data:     l,
		})
		return &LeadOutput{Body: l}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-crm-lead",
		Method:      http.MethodDelete,
		Path:        "/crm/leads/{leadID}",
		Summary:     "Delete a lead and close the gap it leaves",
		Tags:        []string{"CRM"},
	}, func(ctx context.Context, input *DeleteLeadInput) (*struct{}, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		l, err := store.Leads().GetByID(ctx, scope, input.LeadID)
		if err != nil {
			return nil, problem(err, "lead", "delete lead")
		}
		if err := store.Leads().Delete(ctx, scope, input.LeadID); err != nil {
			return nil, problem(err, "lead", "delete lead")
		}

		publish(ctx, events, ws.BoardEvent{
			Type:     ws.EventItemDeleted,
			Board:    domain.BoardCRM,
			TenantID: l.TenantID,
			OwnerID:  l.OwnerID,
			StageID:  l.FunnelID,
			ItemID:   &l.ID,
		})
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-crm-board",
		Method:      http.MethodGet,
		Path:        "/crm/board",
		Summary:     "Get the CRM board grouped by funnel",
		Tags:        []string{"CRM"},
	}, func(ctx context.Context, _ *struct{}) (*CRMBoardOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		list, err := funnels.list(ctx, scope)
		if err != nil {
			return nil, err
		}
		items, err := store.Leads().List(ctx, scope, nil)
		if err != nil {
			return nil, problem(err, "lead", "list leads for board")
		}

		return &CRMBoardOutput{Body: &CRMBoard{
			Board: domain.BoardCRM,
			Lanes: board.Assemble(list, items, locateLead),
		}}, nil
	})
}
