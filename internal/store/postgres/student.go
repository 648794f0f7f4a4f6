package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mentorpro/internal/domain"
)

// mentorFilter restricts rows to the mentor in scope. Admin and staff act for
// the whole tenant.
const mentorFilter = `tenant_id = $1 AND (mentor_id = $2 OR $3)`

type StudentRepo struct {
	pool *pgxpool.Pool
}

func NewStudentRepo(pool *pgxpool.Pool) *StudentRepo {
	return &StudentRepo{pool: pool}
}

func (r *StudentRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Student, error) {
	var s domain.Student
	var dueDay *int16

	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, mentor_id, name, email, cpf, phone, plan, due_day,
		        purchased_on, ends_on, status, gateway_customer_id, created_at, updated_at
		 FROM students WHERE `+mentorFilter+` AND id = $4`,
		scope.TenantID, scope.UserID, scope.TenantWide(), id,
	).Scan(
		&s.ID, &s.TenantID, &s.MentorID, &s.Name, &s.Email, &s.CPF, &s.Phone, &s.Plan, &dueDay,
		&s.PurchasedOn, &s.EndsOn, &s.Status, &s.GatewayCustomerID, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("studentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("studentRepo.GetByID: %w", err)
	}
	if dueDay != nil {
		d := int(*dueDay)
		s.DueDay = &d
	}

	return &s, nil
}

func (r *StudentRepo) SetGatewayCustomer(ctx context.Context, scope domain.Scope, id uuid.UUID, customerID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET gateway_customer_id = $4, updated_at = now()
		 WHERE `+mentorFilter+` AND id = $5`,
		scope.TenantID, scope.UserID, scope.TenantWide(), customerID, id,
	)
	if err != nil {
		return fmt.Errorf("studentRepo.SetGatewayCustomer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("studentRepo.SetGatewayCustomer: %w", domain.ErrNotFound)
	}

	return nil
}

type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// GetActiveByName finds the mentor's active product with the given name. When
// names repeat, the most recently created one wins.
func (r *ProductRepo) GetActiveByName(ctx context.Context, scope domain.Scope, name string) (*domain.Product, error) {
	var p domain.Product

	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, mentor_id, name, price_cents, active, created_at
		 FROM products
		 WHERE tenant_id = $1 AND mentor_id = $2 AND name = $3 AND active
		 ORDER BY created_at DESC
		 LIMIT 1`,
		scope.TenantID, scope.UserID, name,
	).Scan(&p.ID, &p.TenantID, &p.MentorID, &p.Name, &p.PriceCents, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("productRepo.GetActiveByName: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("productRepo.GetActiveByName: %w", err)
	}

	return &p, nil
}
