package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/api/ws"
	"github.com/gosuda/mentorpro/internal/billing"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	ActivityStages() domain.StageRepository
	Activities() domain.ActivityRepository
	CRMFunnels() domain.StageRepository
	Leads() domain.LeadRepository
}

// BillingService abstracts the payment ledger for handler testing.
// *billing.Service satisfies this interface.
type BillingService interface {
	List(ctx context.Context, scope domain.Scope, q billing.ListQuery) (*billing.PaymentPage, error)
	GenerateCompetencies(ctx context.Context, scope domain.Scope, studentID uuid.UUID, opts billing.GenerateOptions) (*billing.GenerateResult, error)
	MarkPaid(ctx context.Context, scope domain.Scope, req billing.MarkPaidRequest) (*domain.Payment, error)
	Delete(ctx context.Context, scope domain.Scope, studentID uuid.UUID, competency string) error
	CreateCharge(ctx context.Context, scope domain.Scope, paymentID uuid.UUID, req billing.ChargeRequest) (*domain.Payment, error)
	Reconcile(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*billing.ReconcileResult, error)
	SyncCustomer(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, error)
	RefreshCustomer(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, bool, error)
	Health(ctx context.Context, scope domain.Scope) billing.HealthReport
}

// GatewayAccounts abstracts per-mentor gateway credentials.
// *asaas.Accounts satisfies this interface.
type GatewayAccounts interface {
	Settings(ctx context.Context, scope domain.Scope) (*asaas.Settings, error)
	Save(ctx context.Context, scope domain.Scope, apiKey string, sandbox bool) (*asaas.Settings, error)
}

// Publisher fans board changes out to live clients. *ws.Hub satisfies this
// interface.
type Publisher interface {
	PublishBoard(ctx context.Context, ev ws.BoardEvent) error
}
