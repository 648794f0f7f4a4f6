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

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, tenant_id, mentor_id, student_id, competency, due_on, amount_cents, status, source,
		        external_reference, gateway_payment_id, paid_on, method, created_at, updated_at`

// List returns one page of payments matching f together with the total number
// of matches.
func (r *PaymentRepo) List(ctx context.Context, scope domain.Scope, f domain.PaymentFilter) ([]*domain.Payment, int, error) {
	where := mentorFilter + `
		   AND ($4::uuid IS NULL OR student_id = $4)
		   AND ($5::text = '' OR competency = $5)
		   AND ($6::text = '' OR competency >= $6)
		   AND ($7::text = '' OR competency <= $7)
		   AND ($8::text = '' OR status = $8)`
	args := []any{
		scope.TenantID, scope.UserID, scope.TenantWide(),
		f.StudentID, f.Competency, f.Start, f.End, string(f.Status),
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("paymentRepo.List: count: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+where+`
		 ORDER BY competency, created_at, id
		 LIMIT $9 OFFSET $10`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("paymentRepo.List: %w", err)
	}
	defer rows.Close()

	payments, err := scanPayments(rows, "paymentRepo.List")
	if err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+mentorFilter+` AND id = $4`,
		scope.TenantID, scope.UserID, scope.TenantWide(), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("paymentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.GetByID: %w", err)
	}

	return p, nil
}

func (r *PaymentRepo) ListByStudent(ctx context.Context, scope domain.Scope, studentID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE `+mentorFilter+` AND student_id = $4
		 ORDER BY competency`,
		scope.TenantID, scope.UserID, scope.TenantWide(), studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.ListByStudent: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows, "paymentRepo.ListByStudent")
}

const insertPayment = `INSERT INTO payments (id, tenant_id, mentor_id, student_id, competency, due_on, amount_cents, status,
		                      source, external_reference, gateway_payment_id, paid_on, method, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func paymentArgs(p *domain.Payment) []any {
	return []any{
		p.ID, p.TenantID, p.MentorID, p.StudentID, p.Competency, p.DueOn, p.AmountCents, p.Status,
		p.Source, p.ExternalReference, p.GatewayPaymentID, p.PaidOn, p.Method, p.CreatedAt, p.UpdatedAt,
	}
}

// CreatePending inserts the records in one transaction. Months that already
// exist, including ones inserted concurrently, are skipped silently.
func (r *PaymentRepo) CreatePending(ctx context.Context, payments []*domain.Payment) (int, error) {
	created := 0
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range payments {
			batch.Queue(insertPayment+` ON CONFLICT (mentor_id, student_id, competency) DO NOTHING`, paymentArgs(p)...)
		}

		br := tx.SendBatch(ctx, batch)
		for range payments {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return mapError(err)
			}
			created += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, fmt.Errorf("paymentRepo.CreatePending: %w", err)
	}

	return created, nil
}

// UpsertPaid settles the competency, creating it when absent. An existing
// record keeps its id, due date and source (filled in only when empty).
func (r *PaymentRepo) UpsertPaid(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	out, err := scanPayment(r.pool.QueryRow(ctx,
		insertPayment+`
		 ON CONFLICT (mentor_id, student_id, competency) DO UPDATE SET
		        status = 'pago',
		        amount_cents = EXCLUDED.amount_cents,
		        paid_on = EXCLUDED.paid_on,
		        method = COALESCE(NULLIF(EXCLUDED.method, ''), payments.method),
		        external_reference = COALESCE(NULLIF(EXCLUDED.external_reference, ''), payments.external_reference),
		        due_on = COALESCE(payments.due_on, EXCLUDED.due_on),
		        source = COALESCE(NULLIF(payments.source, ''), EXCLUDED.source),
		        updated_at = now()
		 RETURNING `+paymentColumns,
		paymentArgs(p)...,
	))
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.UpsertPaid: %w", mapError(err))
	}

	return out, nil
}

func (r *PaymentRepo) Update(ctx context.Context, p *domain.Payment) error {
	tag, err := r.pool.Exec(ctx, updatePayment, updateArgs(p)...)
	if err != nil {
		return fmt.Errorf("paymentRepo.Update: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("paymentRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

const updatePayment = `UPDATE payments SET due_on = $1, amount_cents = $2, status = $3, source = $4,
		        external_reference = $5, gateway_payment_id = $6, paid_on = $7, method = $8, updated_at = $9
		 WHERE tenant_id = $10 AND id = $11`

func updateArgs(p *domain.Payment) []any {
	return []any{
		p.DueOn, p.AmountCents, p.Status, p.Source,
		p.ExternalReference, p.GatewayPaymentID, p.PaidOn, p.Method, p.UpdatedAt,
		p.TenantID, p.ID,
	}
}

// ApplyReconciliation writes the outcome of one reconciliation run atomically.
func (r *PaymentRepo) ApplyReconciliation(ctx context.Context, updated, created []*domain.Payment) error {
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range updated {
			batch.Queue(updatePayment, updateArgs(p)...)
		}
		for _, p := range created {
			batch.Queue(insertPayment, paymentArgs(p)...)
		}

		br := tx.SendBatch(ctx, batch)
		for range batch.Len() {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return mapError(err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return fmt.Errorf("paymentRepo.ApplyReconciliation: %w", err)
	}

	return nil
}

// DeleteByCompetency removes a student's month and returns the deleted row.
func (r *PaymentRepo) DeleteByCompetency(ctx context.Context, scope domain.Scope, studentID uuid.UUID, competency string) (*domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`DELETE FROM payments WHERE `+mentorFilter+` AND student_id = $4 AND competency = $5
		 RETURNING `+paymentColumns,
		scope.TenantID, scope.UserID, scope.TenantWide(), studentID, competency,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("paymentRepo.DeleteByCompetency: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("paymentRepo.DeleteByCompetency: %w", err)
	}

	return p, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(
		&p.ID, &p.TenantID, &p.MentorID, &p.StudentID, &p.Competency, &p.DueOn, &p.AmountCents, &p.Status, &p.Source,
		&p.ExternalReference, &p.GatewayPaymentID, &p.PaidOn, &p.Method, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPayments(rows pgx.Rows, caller string) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return payments, nil
}
