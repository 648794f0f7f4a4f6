package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pendente"
	PaymentPaid      PaymentStatus = "pago"
	PaymentOverdue   PaymentStatus = "atrasado"
	PaymentCancelled PaymentStatus = "cancelado"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	default:
		return false
	}
}

type PaymentSource string

const (
	SourceManual PaymentSource = "manual"
	SourceAsaas  PaymentSource = "asaas"
)

// Payment is the ledger entry for one student in one competency month.
// (MentorID, StudentID, Competency) is unique.
type Payment struct {
	ID                uuid.UUID     `json:"id"`
	TenantID          uuid.UUID     `json:"tenant_id"`
	MentorID          uuid.UUID     `json:"mentor_id"`
	StudentID         uuid.UUID     `json:"student_id"`
	Competency        string        `json:"competency"`
	DueOn             *time.Time    `json:"due_on,omitempty"`
	AmountCents       *int64        `json:"amount_cents,omitempty"`
	Status            PaymentStatus `json:"status"`
	Source            PaymentSource `json:"source"`
	ExternalReference string        `json:"external_reference,omitempty"`
	GatewayPaymentID  string        `json:"gateway_payment_id,omitempty"`
	PaidOn            *time.Time    `json:"paid_on,omitempty"`
	Method            string        `json:"method,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// PaymentFilter narrows a payment listing. Zero values mean "no filter".
// Start and End bound the competency inclusively.
type PaymentFilter struct {
	StudentID  *uuid.UUID
	Competency string
	Start      string
	End        string
	Status     PaymentStatus
	Limit      int
	Offset     int
}

type PaymentRepository interface {
	List(ctx context.Context, scope Scope, f PaymentFilter) ([]*Payment, int, error)
	GetByID(ctx context.Context, scope Scope, id uuid.UUID) (*Payment, error)
	ListByStudent(ctx context.Context, scope Scope, studentID uuid.UUID) ([]*Payment, error)
	// CreatePending inserts the given records in one transaction, skipping
	// any whose competency already exists. It returns how many were inserted.
	CreatePending(ctx context.Context, payments []*Payment) (int, error)
	// UpsertPaid marks the competency paid, creating the record when absent.
	UpsertPaid(ctx context.Context, p *Payment) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	// ApplyReconciliation writes reconciled updates and inserts atomically.
	ApplyReconciliation(ctx context.Context, updated, created []*Payment) error
	DeleteByCompetency(ctx context.Context, scope Scope, studentID uuid.UUID, competency string) (*Payment, error)
}
