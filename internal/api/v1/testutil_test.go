package v1_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/api/ws"
	"github.com/gosuda/mentorpro/internal/billing"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
	"github.com/gosuda/mentorpro/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the principal into context for DoCtx
// ---------------------------------------------------------------------------

func scopeCtx(scope domain.Scope) context.Context {
	return middleware.WithScope(context.Background(), scope)
}

func mentorScope(tenantID uuid.UUID) domain.Scope {
	return domain.Scope{TenantID: tenantID, UserID: uuid.New(), Role: domain.RoleMentor}
}

func staffScope(tenantID uuid.UUID) domain.Scope {
	return domain.Scope{TenantID: tenantID, UserID: uuid.New(), Role: domain.RoleStaff}
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	activityStages domain.StageRepository
	activities     domain.ActivityRepository
	crmFunnels     domain.StageRepository
	leads          domain.LeadRepository
}

func (m *mockDataStore) ActivityStages() domain.StageRepository { return m.activityStages }
func (m *mockDataStore) Activities() domain.ActivityRepository  { return m.activities }
func (m *mockDataStore) CRMFunnels() domain.StageRepository     { return m.crmFunnels }
func (m *mockDataStore) Leads() domain.LeadRepository           { return m.leads }

// ---------------------------------------------------------------------------
// Mock StageRepository
// ---------------------------------------------------------------------------

type mockStageRepo struct {
	listFunc         func(ctx context.Context, scope domain.Scope) ([]*domain.Stage, error)
	getByIDFunc      func(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Stage, error)
	createFunc       func(ctx context.Context, scope domain.Scope, s *domain.Stage) error
	updateFunc       func(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.StagePatch) (*domain.Stage, error)
	deleteFunc       func(ctx context.Context, scope domain.Scope, id uuid.UUID) error
	ensureSeededFunc func(ctx context.Context, scope domain.Scope, seeds []domain.StageSeed) ([]*domain.Stage, error)
}

func (m *mockStageRepo) List(ctx context.Context, scope domain.Scope) ([]*domain.Stage, error) {
	return m.listFunc(ctx, scope)
}

func (m *mockStageRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Stage, error) {
	return m.getByIDFunc(ctx, scope, id)
}

func (m *mockStageRepo) Create(ctx context.Context, scope domain.Scope, s *domain.Stage) error {
	return m.createFunc(ctx, scope, s)
}

func (m *mockStageRepo) Update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.StagePatch) (*domain.Stage, error) {
	return m.updateFunc(ctx, scope, id, patch)
}

func (m *mockStageRepo) Delete(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	return m.deleteFunc(ctx, scope, id)
}

func (m *mockStageRepo) EnsureSeeded(ctx context.Context, scope domain.Scope, seeds []domain.StageSeed) ([]*domain.Stage, error) {
	return m.ensureSeededFunc(ctx, scope, seeds)
}

// ---------------------------------------------------------------------------
// Mock ActivityRepository
// ---------------------------------------------------------------------------

type mockActivityRepo struct {
	listFunc    func(ctx context.Context, scope domain.Scope, stageID *uuid.UUID) ([]*domain.Activity, error)
	getByIDFunc func(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Activity, error)
	createFunc  func(ctx context.Context, scope domain.Scope, a *domain.Activity, position *int) error
	updateFunc  func(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.ActivityPatch, to domain.Placement) (*domain.Activity, error)
	deleteFunc  func(ctx context.Context, scope domain.Scope, id uuid.UUID) error
}

func (m *mockActivityRepo) List(ctx context.Context, scope domain.Scope, stageID *uuid.UUID) ([]*domain.Activity, error) {
	return m.listFunc(ctx, scope, stageID)
}

func (m *mockActivityRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Activity, error) {
	return m.getByIDFunc(ctx, scope, id)
}

func (m *mockActivityRepo) Create(ctx context.Context, scope domain.Scope, a *domain.Activity, position *int) error {
	return m.createFunc(ctx, scope, a, position)
}

func (m *mockActivityRepo) Update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.ActivityPatch, to domain.Placement) (*domain.Activity, error) {
	return m.updateFunc(ctx, scope, id, patch, to)
}

func (m *mockActivityRepo) Delete(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	return m.deleteFunc(ctx, scope, id)
}

// ---------------------------------------------------------------------------
// Mock LeadRepository
// ---------------------------------------------------------------------------

type mockLeadRepo struct {
	listFunc    func(ctx context.Context, scope domain.Scope, funnelID *uuid.UUID) ([]*domain.Lead, error)
	getByIDFunc func(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Lead, error)
	createFunc  func(ctx context.Context, scope domain.Scope, l *domain.Lead, position *int) error
	updateFunc  func(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.LeadPatch, to domain.Placement) (*domain.Lead, error)
	deleteFunc  func(ctx context.Context, scope domain.Scope, id uuid.UUID) error
}

func (m *mockLeadRepo) List(ctx context.Context, scope domain.Scope, funnelID *uuid.UUID) ([]*domain.Lead, error) {
	return m.listFunc(ctx, scope, funnelID)
}

func (m *mockLeadRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Lead, error) {
	return m.getByIDFunc(ctx, scope, id)
}

func (m *mockLeadRepo) Create(ctx context.Context, scope domain.Scope, l *domain.Lead, position *int) error {
	return m.createFunc(ctx, scope, l, position)
}

func (m *mockLeadRepo) Update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.LeadPatch, to domain.Placement) (*domain.Lead, error) {
	return m.updateFunc(ctx, scope, id, patch, to)
}

func (m *mockLeadRepo) Delete(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	return m.deleteFunc(ctx, scope, id)
}

// ---------------------------------------------------------------------------
// Mock BillingService
// ---------------------------------------------------------------------------

type mockBilling struct {
	listFunc            func(ctx context.Context, scope domain.Scope, q billing.ListQuery) (*billing.PaymentPage, error)
	generateFunc        func(ctx context.Context, scope domain.Scope, studentID uuid.UUID, opts billing.GenerateOptions) (*billing.GenerateResult, error)
	markPaidFunc        func(ctx context.Context, scope domain.Scope, req billing.MarkPaidRequest) (*domain.Payment, error)
	deleteFunc          func(ctx context.Context, scope domain.Scope, studentID uuid.UUID, competency string) error
	createChargeFunc    func(ctx context.Context, scope domain.Scope, paymentID uuid.UUID, req billing.ChargeRequest) (*domain.Payment, error)
	reconcileFunc       func(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*billing.ReconcileResult, error)
	syncCustomerFunc    func(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, error)
	refreshCustomerFunc func(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, bool, error)
	healthFunc          func(ctx context.Context, scope domain.Scope) billing.HealthReport
}

func (m *mockBilling) List(ctx context.Context, scope domain.Scope, q billing.ListQuery) (*billing.PaymentPage, error) {
	return m.listFunc(ctx, scope, q)
}

func (m *mockBilling) GenerateCompetencies(ctx context.Context, scope domain.Scope, studentID uuid.UUID, opts billing.GenerateOptions) (*billing.GenerateResult, error) {
	return m.generateFunc(ctx, scope, studentID, opts)
}

func (m *mockBilling) MarkPaid(ctx context.Context, scope domain.Scope, req billing.MarkPaidRequest) (*domain.Payment, error) {
	return m.markPaidFunc(ctx, scope, req)
}

func (m *mockBilling) Delete(ctx context.Context, scope domain.Scope, studentID uuid.UUID, competency string) error {
	return m.deleteFunc(ctx, scope, studentID, competency)
}

func (m *mockBilling) CreateCharge(ctx context.Context, scope domain.Scope, paymentID uuid.UUID, req billing.ChargeRequest) (*domain.Payment, error) {
	return m.createChargeFunc(ctx, scope, paymentID, req)
}

func (m *mockBilling) Reconcile(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*billing.ReconcileResult, error) {
	return m.reconcileFunc(ctx, scope, studentID)
}

func (m *mockBilling) SyncCustomer(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, error) {
	return m.syncCustomerFunc(ctx, scope, studentID)
}

func (m *mockBilling) RefreshCustomer(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, bool, error) {
	return m.refreshCustomerFunc(ctx, scope, studentID)
}

func (m *mockBilling) Health(ctx context.Context, scope domain.Scope) billing.HealthReport {
	return m.healthFunc(ctx, scope)
}

// ---------------------------------------------------------------------------
// Mock GatewayAccounts
// ---------------------------------------------------------------------------

type mockAccounts struct {
	settingsFunc func(ctx context.Context, scope domain.Scope) (*asaas.Settings, error)
	saveFunc     func(ctx context.Context, scope domain.Scope, apiKey string, sandbox bool) (*asaas.Settings, error)
}

func (m *mockAccounts) Settings(ctx context.Context, scope domain.Scope) (*asaas.Settings, error) {
	return m.settingsFunc(ctx, scope)
}

func (m *mockAccounts) Save(ctx context.Context, scope domain.Scope, apiKey string, sandbox bool) (*asaas.Settings, error) {
	return m.saveFunc(ctx, scope, apiKey, sandbox)
}

// ---------------------------------------------------------------------------
// recordingPublisher
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.BoardEvent
	err    error
}

func (p *recordingPublisher) PublishBoard(_ context.Context, ev ws.BoardEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) recorded() []ws.BoardEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ws.BoardEvent(nil), p.events...)
}
