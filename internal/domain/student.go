package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Student is a mentor's customer. This service only reads students; the
// gateway customer id is the one field it writes back.
type Student struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	MentorID          uuid.UUID  `json:"mentor_id"`
	Name              string     `json:"name"`
	Email             string     `json:"email,omitempty"`
	CPF               string     `json:"cpf,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Plan              string     `json:"plan,omitempty"`
	DueDay            *int       `json:"due_day,omitempty"`
	PurchasedOn       *time.Time `json:"purchased_on,omitempty"`
	EndsOn            *time.Time `json:"ends_on,omitempty"`
	Status            string     `json:"status,omitempty"`
	GatewayCustomerID string     `json:"gateway_customer_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type StudentRepository interface {
	GetByID(ctx context.Context, scope Scope, id uuid.UUID) (*Student, error)
	SetGatewayCustomer(ctx context.Context, scope Scope, id uuid.UUID, customerID string) error
}

// Product is a plan a mentor sells. Students reference it by name.
type Product struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	MentorID   uuid.UUID `json:"mentor_id"`
	Name       string    `json:"name"`
	PriceCents *int64    `json:"price_cents,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProductRepository interface {
	GetActiveByName(ctx context.Context, scope Scope, name string) (*Product, error)
}
