package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/billing"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
)

type GatewayConfigOutput struct {
	Body *asaas.Settings
}

type PutGatewayConfigInput struct {
	Body struct {
		APIKey  string `json:"api_key" minLength:"1" maxLength:"512" doc:"Asaas API key; stored encrypted"`
		Sandbox bool   `json:"sandbox,omitempty" doc:"Use the sandbox environment"`
	}
}

type GatewayHealthOutput struct {
	Body billing.HealthReport
}

type StudentGatewayInput struct {
	StudentID uuid.UUID `path:"studentID" doc:"Student ID"`
}

type StudentOutput struct {
	Body *domain.Student
}

type RefreshCustomerOutput struct {
	Body struct {
		Student *domain.Student `json:"student"`
		Synced  bool            `json:"synced" doc:"False when the gateway could not be reached; the stored student is returned"`
	}
}

// RegisterGatewayRoutes wires the mentor's gateway account and customer sync.
func RegisterGatewayRoutes(api huma.API, accounts GatewayAccounts, svc BillingService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-gateway-config",
		Method:      http.MethodGet,
		Path:        "/gateway/config",
		Summary:     "Show the caller's gateway credentials with the key masked",
		Tags:        []string{"Gateway"},
	}, func(ctx context.Context, _ *struct{}) (*GatewayConfigOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		settings, err := accounts.Settings(ctx, scope)
		if errors.Is(err, asaas.ErrNotConfigured) {
			return nil, huma.Error404NotFound("gateway credentials not configured")
		}
		if err != nil {
			return nil, problem(err, "gateway config", "load gateway config")
		}
		return &GatewayConfigOutput{Body: settings}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-gateway-config",
		Method:      http.MethodPut,
		Path:        "/gateway/config",
		Summary:     "Store the caller's gateway credentials",
		Tags:        []string{"Gateway"},
	}, func(ctx context.Context, input *PutGatewayConfigInput) (*GatewayConfigOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		settings, err := accounts.Save(ctx, scope, input.Body.APIKey, input.Body.Sandbox)
		if err != nil {
			return nil, problem(err, "gateway config", "save gateway config")
		}
		return &GatewayConfigOutput{Body: settings}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "gateway-health",
		Method:      http.MethodGet,
		Path:        "/gateway/health",
		Summary:     "Check that the stored credentials are accepted",
		Tags:        []string{"Gateway"},
	}, func(ctx context.Context, _ *struct{}) (*GatewayHealthOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}
		return &GatewayHealthOutput{Body: svc.Health(ctx, scope)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-student-customer",
		Method:      http.MethodPost,
		Path:        "/students/{studentID}/gateway/sync",
		Summary:     "Link a student to a gateway customer",
		Description: "Gateway failures are reported as 502 with the upstream body.",
		Tags:        []string{"Gateway"},
	}, func(ctx context.Context, input *StudentGatewayInput) (*StudentOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		st, err := svc.SyncCustomer(ctx, scope, input.StudentID)
		if err != nil {
			return nil, problem(err, "student", "sync gateway customer")
		}
		return &StudentOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-student-customer",
		Method:      http.MethodPost,
		Path:        "/students/{studentID}/gateway/refresh",
		Summary:     "Push the student's current data to the linked gateway customer",
		Description: "Gateway failures are logged and reported through synced=false.",
		Tags:        []string{"Gateway"},
	}, func(ctx context.Context, input *StudentGatewayInput) (*RefreshCustomerOutput, error) {
		scope, err := scopeFrom(ctx)
		if err != nil {
			return nil, err
		}

		st, synced, err := svc.RefreshCustomer(ctx, scope, input.StudentID)
		if err != nil {
			return nil, problem(err, "student", "refresh gateway customer")
		}

		out := &RefreshCustomerOutput{}
		out.Body.Student = st
		out.Body.Synced = synced
		return out, nil
	})
}
