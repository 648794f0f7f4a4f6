package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mentorpro/internal/board"
	"github.com/gosuda/mentorpro/internal/domain"
)

// LeadRepo stores CRM leads. Admin and staff see every lead of their tenant;
// everybody else only their own.
type LeadRepo struct {
	pool *pgxpool.Pool
}

func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

const leadColumns = `id, tenant_id, owner_id, funnel_id, position, title, cpf, phone, email,
		        state, city, desired_plan, desired_exam, description, created_at, updated_at`

func (r *LeadRepo) List(ctx context.Context, scope domain.Scope, funnelID *uuid.UUID) ([]*domain.Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+`
		 FROM crm_leads
		 WHERE tenant_id = $1 AND (owner_id = $2 OR $3) AND ($4::uuid IS NULL OR funnel_id = $4)
		 ORDER BY funnel_id, position, created_at, id
		 LIMIT 5000`,
		scope.TenantID, scope.UserID, crmBoard.wide(scope), funnelID,
	)
	if err != nil {
		return nil, fmt.Errorf("leadRepo.List: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows, "leadRepo.List")
}

func (r *LeadRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM crm_leads WHERE tenant_id = $1 AND (owner_id = $2 OR $3) AND id = $4`,
		scope.TenantID, scope.UserID, crmBoard.wide(scope), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("leadRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("leadRepo.GetByID: %w", err)
	}

	return l, nil
}

// Create inserts l into its funnel at position. The lead is owned by the
// funnel's owner, whoever creates it.
func (r *LeadRepo) Create(ctx context.Context, scope domain.Scope, l *domain.Lead, position *int) error {
	l.TenantID = scope.TenantID
	l.CreatedAt = stamp(l.CreatedAt)
	l.UpdatedAt = l.CreatedAt

	err := crmBoard.withStage(ctx, r.pool, scope, l.FunnelID, func(tx pgx.Tx, owner uuid.UUID) error {
		l.OwnerID = owner

		pos, err := crmBoard.insertSlot(ctx, tx, l.FunnelID, board.Card{ID: l.ID, CreatedAt: l.CreatedAt}, position)
		if err != nil {
			return err
		}
		l.Position = pos

		_, err = tx.Exec(ctx,
			`INSERT INTO crm_leads (id, tenant_id, owner_id, funnel_id, position, title, cpf, phone, email,
			                        state, city, desired_plan, desired_exam, description, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			l.ID, l.TenantID, l.OwnerID, l.FunnelID, l.Position, l.Title, l.CPF, l.Phone, l.Email,
			l.State, l.City, l.DesiredPlan, l.DesiredExam, l.Description, l.CreatedAt, l.UpdatedAt,
		)
		return mapError(err)
	})
	if err != nil {
		return fmt.Errorf("leadRepo.Create: %w", err)
	}

	crmBoard.mutated("create")
	return nil
}

// Update applies content changes and moves the lead when to asks for it. The
// target funnel must belong to the lead's owner.
func (r *LeadRepo) Update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.LeadPatch, to domain.Placement) (*domain.Lead, error) {
	var out *domain.Lead

	err := crmBoard.withItem(ctx, r.pool, scope, id, to.StageID, func(tx pgx.Tx, funnelID uuid.UUID) error {
		l, err := scanLead(tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM crm_leads WHERE id = $1`, id))
		if err != nil {
			return err
		}

		applyLeadPatch(l, patch)
		if to.Moves() {
			l.FunnelID, l.Position, err = crmBoard.relocate(ctx, tx, id, funnelID, to)
			if err != nil {
				return err
			}
		}

		err = tx.QueryRow(ctx,
			`UPDATE crm_leads SET funnel_id = $1, position = $2, title = $3, cpf = $4, phone = $5, email = $6,
			        state = $7, city = $8, desired_plan = $9, desired_exam = $10, description = $11, updated_at = now()
			 WHERE id = $12
			 RETURNING updated_at`,
			l.FunnelID, l.Position, l.Title, l.CPF, l.Phone, l.Email,
			l.State, l.City, l.DesiredPlan, l.DesiredExam, l.Description, l.ID,
		).Scan(&l.UpdatedAt)
		if err != nil {
			return mapError(err)
		}

		out = l
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("leadRepo.Update: %w", err)
	}

	if to.Moves() {
		crmBoard.mutated("move")
	} else {
		crmBoard.mutated("update")
	}
	return out, nil
}

func (r *LeadRepo) Delete(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	err := crmBoard.withItem(ctx, r.pool, scope, id, nil, func(tx pgx.Tx, funnelID uuid.UUID) error {
		if err := crmBoard.closeGap(ctx, tx, funnelID, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM crm_leads WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("leadRepo.Delete: %w", err)
	}

	crmBoard.mutated("delete")
	return nil
}

func applyLeadPatch(l *domain.Lead, p domain.LeadPatch) {
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{p.Title, &l.Title},
		{p.CPF, &l.CPF},
		{p.Phone, &l.Phone},
		{p.Email, &l.Email},
		{p.State, &l.State},
		{p.City, &l.City},
		{p.DesiredPlan, &l.DesiredPlan},
		{p.DesiredExam, &l.DesiredExam},
		{p.Description, &l.Description},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	if err := row.Scan(
		&l.ID, &l.TenantID, &l.OwnerID, &l.FunnelID, &l.Position, &l.Title, &l.CPF, &l.Phone, &l.Email,
		&l.State, &l.City, &l.DesiredPlan, &l.DesiredExam, &l.Description, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanLeads(rows pgx.Rows, caller string) ([]*domain.Lead, error) {
	leads := []*domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return leads, nil
}
