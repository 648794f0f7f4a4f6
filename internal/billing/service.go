// Package billing owns the payment ledger: monthly competency generation,
// manual settlement, charge creation and reconciliation with the gateway.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/gateway/asaas"
	"github.com/gosuda/mentorpro/internal/metrics"
)

var (
	ErrNoCustomer     = errors.New("billing: student is not linked to a gateway customer")
	ErrNoAmount       = errors.New("billing: payment has no amount")
	ErrAlreadySettled = errors.New("billing: payment is already settled")
	ErrInvalidAmount  = errors.New("billing: amount must be positive")
	ErrInvalidStatus  = errors.New("billing: unknown payment status")
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Gateway is the subset of the payment gateway the ledger drives.
// *asaas.Client satisfies it.
type Gateway interface {
	Ping(ctx context.Context) error
	CreateCustomer(ctx context.Context, cust asaas.Customer) (*asaas.Customer, error)
	UpdateCustomer(ctx context.Context, id string, cust asaas.Customer) (*asaas.Customer, error)
	FindCustomer(ctx context.Context, document, email string) (*asaas.Customer, error)
	CreatePayment(ctx context.Context, req asaas.PaymentRequest) (*asaas.Payment, error)
	ListPayments(ctx context.Context, q asaas.PaymentQuery) ([]asaas.Payment, error)
	DeletePayment(ctx context.Context, id string) error
}

// Gateways hands out the gateway account of the mentor in scope.
type Gateways interface {
	For(ctx context.Context, scope domain.Scope) (Gateway, error)
}

// GatewaysFunc adapts a function to Gateways.
type GatewaysFunc func(ctx context.Context, scope domain.Scope) (Gateway, error)

func (f GatewaysFunc) For(ctx context.Context, scope domain.Scope) (Gateway, error) {
	return f(ctx, scope)
}

// AccountGateways resolves gateways through stored mentor credentials.
func AccountGateways(accounts *asaas.Accounts) Gateways {
	return GatewaysFunc(func(ctx context.Context, scope domain.Scope) (Gateway, error) {
		c, err := accounts.Client(ctx, scope)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Repositories groups the stores the ledger reads and writes.
type Repositories struct {
	Students domain.StudentRepository
	Products domain.ProductRepository
	Payments domain.PaymentRepository
	Audit    domain.AuditRepository
}

type Service struct {
	students domain.StudentRepository
	products domain.ProductRepository
	payments domain.PaymentRepository
	audit    domain.AuditRepository
	gateways Gateways
	loc      *time.Location
	now      func() time.Time
}

// NewService creates a Service. loc decides which calendar "today" belongs to
// when defaulting the target competency; nil means UTC.
func NewService(repos Repositories, gateways Gateways, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		students: repos.Students,
		products: repos.Products,
		payments: repos.Payments,
		audit:    repos.Audit,
		gateways: gateways,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

// ListQuery is the raw filter as received from a caller; competencies may be
// written "YYYY-MM" or "YYYY-MM-01".
type ListQuery struct {
	StudentID  *uuid.UUID
	Competency string
	Start      string
	End        string
	Status     string
	Limit      int
	Offset     int
}

type PaymentPage struct {
	Items []*domain.Payment `json:"items"`
	Total int               `json:"total"`
}

func (s *Service) List(ctx context.Context, scope domain.Scope, q ListQuery) (*PaymentPage, error) {
	f := domain.PaymentFilter{StudentID: q.StudentID, Limit: q.Limit, Offset: max(q.Offset, 0)}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)

	for _, field := range []struct {
		raw string
		dst *string
	}{{q.Competency, &f.Competency}, {q.Start, &f.Start}, {q.End, &f.End}} {
		if field.raw == "" {
			continue
		}
		c, err := ParseCompetency(field.raw)
		if err != nil {
			return nil, err
		}
		*field.dst = c.String()
	}

	if q.Status != "" {
		f.Status = domain.PaymentStatus(q.Status)
		if !f.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
		}
	}

	items, total, err := s.payments.List(ctx, scope, f)
	if err != nil {
		return nil, fmt.Errorf("billing.List: %w", err)
	}
	if items == nil {
		items = []*domain.Payment{}
	}
	return &PaymentPage{Items: items, Total: total}, nil
}

type GenerateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// GenerateCompetencies creates the missing pending months for a student.
// Months that already have a record, including ones inserted concurrently,
// count as skipped.
func (s *Service) GenerateCompetencies(ctx context.Context, scope domain.Scope, studentID uuid.UUID, opts GenerateOptions) (*GenerateResult, error) {
	st, err := s.students.GetByID(ctx, scope, studentID)
	if err != nil {
		return nil, fmt.Errorf("billing.GenerateCompetencies: %w", err)
	}

	until := opts.Until
	if until.IsZero() {
		until = PreviousCompetency(s.today())
	}

	amount := opts.AmountCents
	if amount == nil {
		amount = s.planPrice(ctx, scope, st)
	}

	existing, err := s.existingCompetencies(ctx, scope, studentID)
	if err != nil {
		return nil, err
	}

	planned, skipped, err := PlanCompetencies(st, until, existing, amount, opts.DueOn, s.now())
	if err != nil {
		return nil, err
	}

	created := 0
	if len(planned) > 0 {
		created, err = s.payments.CreatePending(ctx, planned)
		if err != nil {
			return nil, fmt.Errorf("billing.GenerateCompetencies: %w", err)
		}
		skipped += len(planned) - created
	}

	metrics.CompetenciesGenerated.WithLabelValues("created").Add(float64(created))
	metrics.CompetenciesGenerated.WithLabelValues("skipped").Add(float64(skipped))

	log.Info().
		Str("tenant_id", scope.TenantID.String()).
		Str("student_id", studentID.String()).
		Str("until", until.String()).
		Int("created", created).
		Int("skipped", skipped).
		Msg("billing: competencies generated")

	return &GenerateResult{Created: created, Skipped: skipped}, nil
}

func (s *Service) existingCompetencies(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (map[string]bool, error) {
	list, err := s.payments.ListByStudent(ctx, scope, studentID)
	if err != nil {
		return nil, fmt.Errorf("billing: list student payments: %w", err)
	}
	set := make(map[string]bool, len(list))
	for _, p := range list {
		set[p.Competency] = true
	}
	return set, nil
}

// planPrice resolves the monthly amount from the mentor's active product
// named after the student's plan.
func (s *Service) planPrice(ctx context.Context, scope domain.Scope, st *domain.Student) *int64 {
	plan := strings.TrimSpace(st.Plan)
	if plan == "" {
		return nil
	}
	prod, err := s.products.GetActiveByName(ctx, mentorScope(scope, st.MentorID), plan)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("plan", plan).Msg("billing: product lookup failed")
		}
		return nil
	}
	return prod.PriceCents
}

type MarkPaidRequest struct {
	StudentID   uuid.UUID
	Competency  string
	AmountCents int64
	PaidOn      time.Time // zero means today
	Method      string
	Reference   string
}

// MarkPaid settles a competency by hand, creating the record when the month
// was never generated.
func (s *Service) MarkPaid(ctx context.Context, scope domain.Scope, req MarkPaidRequest) (*domain.Payment, error) {
	c, err := ParseCompetency(req.Competency)
	if err != nil {
		return nil, err
	}
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	st, err := s.students.GetByID(ctx, scope, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("billing.MarkPaid: %w", err)
	}

	now := s.now()
	paidOn := req.PaidOn
	if paidOn.IsZero() {
		paidOn = truncateDay(s.today())
	}
	amount := req.AmountCents
	p := &domain.Payment{
		ID:                uuid.New(),
		TenantID:          scope.TenantID,
		MentorID:          st.MentorID,
		StudentID:         st.ID,
		Competency:        c.String(),
		DueOn:             DueFor(c, st),
		AmountCents:       &amount,
		Status:            domain.PaymentPaid,
		Source:            domain.SourceManual,
		ExternalReference: strings.TrimSpace(req.Reference),
		PaidOn:            &paidOn,
		Method:            strings.TrimSpace(req.Method),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	saved, err := s.payments.UpsertPaid(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("billing.MarkPaid: %w", err)
	}

	s.record(ctx, scope, "payment.mark_paid", saved.ID, map[string]any{
		"competency":   saved.Competency,
		"amount_cents": amount,
	})
	return saved, nil
}

// Delete removes a student's competency. A linked gateway charge is deleted
// on a best-effort basis; failures there never undo the local delete.
func (s *Service) Delete(ctx context.Context, scope domain.Scope, studentID uuid.UUID, competency string) error {
	c, err := ParseCompetency(competency)
	if err != nil {
		return err
	}

	p, err := s.payments.DeleteByCompetency(ctx, scope, studentID, c.String())
	if err != nil {
		return fmt.Errorf("billing.Delete: %w", err)
	}

	s.record(ctx, scope, "payment.delete", p.ID, map[string]any{"competency": p.Competency})

	if p.GatewayPaymentID != "" {
		s.deleteRemoteCharge(ctx, mentorScope(scope, p.MentorID), p.GatewayPaymentID)
	}
	return nil
}

func (s *Service) deleteRemoteCharge(ctx context.Context, scope domain.Scope, gatewayID string) {
	gw, err := s.gateways.For(ctx, scope)
	if err == nil {
		err = gw.DeletePayment(ctx, gatewayID)
	}
	if err != nil && !asaas.IsNotFound(err) {
		log.Warn().Err(err).
			Str("tenant_id", scope.TenantID.String()).
			Str("gateway_payment_id", gatewayID).
			Msg("billing: remote charge delete failed")
	}
}

// ---------------------------------------------------------------------------
// Gateway: charges and customers
// ---------------------------------------------------------------------------

type ChargeRequest struct {
	BillingType asaas.BillingType
	Description string
}

// CreateCharge issues a gateway charge for a ledger record. Gateway failures
// are returned as is so callers can surface the upstream body. A record that
// already carries a charge is returned unchanged.
func (s *Service) CreateCharge(ctx context.Context, scope domain.Scope, paymentID uuid.UUID, req ChargeRequest) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, scope, paymentID)
	if err != nil {
		return nil, fmt.Errorf("billing.CreateCharge: %w", err)
	}
	if p.GatewayPaymentID != "" {
		return p, nil
	}
	if p.Status == domain.PaymentPaid || p.Status == domain.PaymentCancelled {
		return nil, ErrAlreadySettled
	}
	if p.AmountCents == nil || *p.AmountCents <= 0 {
		return nil, ErrNoAmount
	}

	st, err := s.students.GetByID(ctx, scope, p.StudentID)
	if err != nil {
		return nil, fmt.Errorf("billing.CreateCharge: %w", err)
	}
	if st.GatewayCustomerID == "" {
		return nil, ErrNoCustomer
	}

	gw, err := s.gateways.For(ctx, mentorScope(scope, st.MentorID))
	if err != nil {
		return nil, err
	}

	due := s.today()
	if p.DueOn != nil && !p.DueOn.Before(truncateDay(due)) {
		due = *p.DueOn
	}
	c, err := ParseCompetency(p.Competency)
	if err != nil {
		return nil, err
	}
	billingType := req.BillingType
	if billingType == "" {
		billingType = asaas.BillingUndefined
	}
	description := req.Description
	if description == "" {
		description = "Mensalidade " + p.Competency
	}

	charge, err := gw.CreatePayment(ctx, asaas.PaymentRequest{
		Customer:          st.GatewayCustomerID,
		BillingType:       billingType,
		Value:             fromCents(*p.AmountCents),
		DueDate:           asaas.FormatDate(due),
		Description:       description,
		ExternalReference: ExternalReference(st.ID, c),
	})
	if err != nil {
		return nil, err
	}

	p.GatewayPaymentID = charge.ID
	p.Source = domain.SourceAsaas
	if p.ExternalReference == "" {
		p.ExternalReference = ExternalReference(st.ID, c)
	}
	p.UpdatedAt = s.now()
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("billing.CreateCharge: %w", err)
	}

	s.record(ctx, scope, "payment.charge", p.ID, map[string]any{"gateway_payment_id": charge.ID})
	return p, nil
}

// mentorScope narrows scope to the mentor owning a record, so that admin and
// staff callers act with that mentor's products and gateway account.
func mentorScope(scope domain.Scope, mentorID uuid.UUID) domain.Scope {
	if mentorID == uuid.Nil || mentorID == scope.UserID {
		return scope
	}
	return domain.Scope{TenantID: scope.TenantID, UserID: mentorID, Role: domain.RoleMentor}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SyncCustomer links a student to a gateway customer, reusing an existing
// customer with the same document or email before creating one. Gateway
// failures are returned to the caller.
func (s *Service) SyncCustomer(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, error) {
	st, err := s.students.GetByID(ctx, scope, studentID)
	if err != nil {
		return nil, fmt.Errorf("billing.SyncCustomer: %w", err)
	}
	if st.GatewayCustomerID != "" {
		return st, nil
	}

	gw, err := s.gateways.For(ctx, mentorScope(scope, st.MentorID))
	if err != nil {
		return nil, err
	}

	cust := asaas.NewCustomer(st.Name, st.CPF, st.Email, st.Phone)
	found, err := gw.FindCustomer(ctx, cust.CpfCnpj, cust.Email)
	switch {
	case err == nil:
	case errors.Is(err, asaas.ErrNotFound):
		found, err = gw.CreateCustomer(ctx, cust)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.students.SetGatewayCustomer(ctx, scope, st.ID, found.ID); err != nil {
		return nil, fmt.Errorf("billing.SyncCustomer: %w", err)
	}
	st.GatewayCustomerID = found.ID

	s.record(ctx, scope, "student.gateway_sync", st.ID, map[string]any{"customer_id": found.ID})
	return st, nil
}

// RefreshCustomer pushes the student's current contact data to the gateway.
// It never fails because of the gateway: errors are logged and reported as
// synced=false.
func (s *Service) RefreshCustomer(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*domain.Student, bool, error) {
	st, err := s.students.GetByID(ctx, scope, studentID)
	if err != nil {
		return nil, false, fmt.Errorf("billing.RefreshCustomer: %w", err)
	}
	if st.GatewayCustomerID == "" {
		return st, false, nil
	}

	gw, err := s.gateways.For(ctx, mentorScope(scope, st.MentorID))
	if err == nil {
		_, err = gw.UpdateCustomer(ctx, st.GatewayCustomerID, asaas.NewCustomer(st.Name, st.CPF, st.Email, st.Phone))
	}
	if err != nil {
		log.Warn().Err(err).
			Str("tenant_id", scope.TenantID.String()).
			Str("student_id", st.ID.String()).
			Msg("billing: gateway customer refresh failed")
		return st, false, nil
	}
	return st, true, nil
}

type HealthReport struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Health probes the mentor's gateway credentials.
func (s *Service) Health(ctx context.Context, scope domain.Scope) HealthReport {
	gw, err := s.gateways.For(ctx, scope)
	if errors.Is(err, asaas.ErrNotConfigured) {
		return HealthReport{OK: false, Message: "gateway credentials not configured"}
	}
	if err == nil {
		err = gw.Ping(ctx)
	}
	if err != nil {
		var apiErr *asaas.Error
		if errors.As(err, &apiErr) {
			body := string(apiErr.Body)
			if len(body) > 200 {
				body = body[:200]
			}
			return HealthReport{OK: false, Message: fmt.Sprintf("HTTP %d: %s", apiErr.StatusCode, body)}
		}
		return HealthReport{OK: false, Message: err.Error()}
	}
	return HealthReport{OK: true, Message: "gateway connection OK"}
}

// ---------------------------------------------------------------------------
// Reconciliation
// ---------------------------------------------------------------------------

type ReconcileResult struct {
	Updated   int `json:"updated"`
	Created   int `json:"created"`
	Unchanged int `json:"unchanged"`
}

// Reconcile pulls the student's gateway payments and folds them into the
// ledger. Matching is by external reference first and by due date inside the
// competency month second. Re-running it is a no-op.
func (s *Service) Reconcile(ctx context.Context, scope domain.Scope, studentID uuid.UUID) (*ReconcileResult, error) {
	st, err := s.students.GetByID(ctx, scope, studentID)
	if err != nil {
		return nil, fmt.Errorf("billing.Reconcile: %w", err)
	}
	if st.GatewayCustomerID == "" {
		return nil, ErrNoCustomer
	}

	gw, err := s.gateways.For(ctx, mentorScope(scope, st.MentorID))
	if err != nil {
		return nil, err
	}

	remote, err := gw.ListPayments(ctx, asaas.PaymentQuery{Customer: st.GatewayCustomerID})
	if err != nil {
		return nil, err
	}

	local, err := s.payments.ListByStudent(ctx, scope, studentID)
	if err != nil {
		return nil, fmt.Errorf("billing.Reconcile: %w", err)
	}

	updated, created, unchanged := planReconciliation(st, local, remote, s.now())

	if len(updated) > 0 || len(created) > 0 {
		if err := s.payments.ApplyReconciliation(ctx, updated, created); err != nil {
			return nil, fmt.Errorf("billing.Reconcile: %w", err)
		}
	}

	metrics.ReconcileOutcomes.WithLabelValues("updated").Add(float64(len(updated)))
	metrics.ReconcileOutcomes.WithLabelValues("created").Add(float64(len(created)))
	metrics.ReconcileOutcomes.WithLabelValues("unchanged").Add(float64(unchanged))

	res := &ReconcileResult{Updated: len(updated), Created: len(created), Unchanged: unchanged}
	if res.Updated > 0 || res.Created > 0 {
		s.record(ctx, scope, "student.reconcile", st.ID, map[string]any{
			"updated": res.Updated,
			"created": res.Created,
		})
	}
	return res, nil
}

// planReconciliation decides, without I/O, which local records change and
// which are created from the gateway listing.
func planReconciliation(st *domain.Student, local []*domain.Payment, remote []asaas.Payment, now time.Time) (updated, created []*domain.Payment, unchanged int) {
	byCompetency := make(map[string]*domain.Payment, len(local))
	linked := make(map[string]string, len(local))
	for _, p := range local {
		byCompetency[p.Competency] = p
		if p.GatewayPaymentID != "" {
			linked[p.GatewayPaymentID] = p.Competency
		}
	}
	touched := make(map[string]bool)

	for _, ext := range remote {
		c, byRef := matchCompetency(st, ext)
		if c.IsZero() {
			unchanged++
			continue
		}
		key := c.String()

		if owner, ok := linked[ext.ID]; ok && owner != key {
			unchanged++
			continue
		}

		if p, ok := byCompetency[key]; ok {
			if Merge(p, ext, now) {
				linked[ext.ID] = key
				if !touched[key] {
					touched[key] = true
					updated = append(updated, p)
				}
			} else {
				unchanged++
			}
			continue
		}

		if !byRef || Classify(ext.Status) != ClassPaid {
			unchanged++
			continue
		}

		p := &domain.Payment{
			ID:         uuid.New(),
			TenantID:   st.TenantID,
			MentorID:   st.MentorID,
			StudentID:  st.ID,
			Competency: key,
			DueOn:      DueFor(c, st),
			Status:     domain.PaymentPending,
			Source:     domain.SourceAsaas,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if due, ok := ext.Due(); ok {
			p.DueOn = &due
		}
		Merge(p, ext, now)
		byCompetency[key] = p
		linked[ext.ID] = key
		touched[key] = true
		created = append(created, p)
	}

	return updated, created, unchanged
}

// matchCompetency finds the month a gateway payment belongs to. byRef is true
// when the payment's external reference names this student explicitly.
func matchCompetency(st *domain.Student, ext asaas.Payment) (Competency, bool) {
	if id, c, ok := ParseExternalReference(ext.ExternalReference); ok {
		if id != st.ID {
			return Competency{}, false
		}
		return c, true
	}
	if due, ok := ext.Due(); ok {
		return CompetencyOf(due), false
	}
	return Competency{}, false
}

func (s *Service) record(ctx context.Context, scope domain.Scope, action string, resourceID uuid.UUID, details map[string]any) {
	if s.audit == nil {
		return
	}
	resource, _, _ := strings.Cut(action, ".")
	err := s.audit.Record(ctx, &domain.AuditEntry{
		ID:         uuid.New(),
		TenantID:   scope.TenantID,
		ActorID:    scope.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		CreatedAt:  s.now(),
	})
	if err != nil {
		log.Warn().Err(err).Str("action", action).Msg("billing: failed to record audit entry")
	}
}
