package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mentorpro/internal/domain"
)

// StageRepo stores the columns of one board. Activity stages and CRM funnels
// share the implementation and differ only in their lane.
type StageRepo struct {
	pool *pgxpool.Pool
	lane lane
}

func NewStageRepo(pool *pgxpool.Pool, l lane) *StageRepo {
	return &StageRepo{pool: pool, lane: l}
}

const stageColumns = `id, tenant_id, owner_id, name, color, order_hint, created_at, updated_at`

func (r *StageRepo) List(ctx context.Context, scope domain.Scope) ([]*domain.Stage, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE tenant_id = $1 AND (owner_id = $2 OR $3)
		 ORDER BY order_hint NULLS LAST, created_at, id
		 LIMIT 1000`, stageColumns, r.lane.stages),
		scope.TenantID, scope.UserID, r.lane.wide(scope),
	)
	if err != nil {
		return nil, fmt.Errorf("stageRepo.List: %w", err)
	}
	defer rows.Close()

	return scanStages(rows, "stageRepo.List")
}

func (r *StageRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Stage, error) {
	s, err := scanStage(r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 AND (owner_id = $2 OR $3) AND id = $4`,
			stageColumns, r.lane.stages),
		scope.TenantID, scope.UserID, r.lane.wide(scope), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("stageRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stageRepo.GetByID: %w", err)
	}

	return s, nil
}

// Create inserts a stage owned by the caller. A nil order hint becomes one
// past the caller's current maximum.
func (r *StageRepo) Create(ctx context.Context, scope domain.Scope, s *domain.Stage) error {
	s.TenantID = scope.TenantID
	s.OwnerID = scope.UserID
	s.CreatedAt = stamp(s.CreatedAt)
	s.UpdatedAt = s.CreatedAt

	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %[1]s (id, tenant_id, owner_id, name, color, order_hint, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5,
		         COALESCE($6, (SELECT COALESCE(MAX(order_hint), 0) + 1 FROM %[1]s WHERE tenant_id = $2 AND owner_id = $3)),
		         $7, $8)
		 RETURNING order_hint`, r.lane.stages),
		s.ID, s.TenantID, s.OwnerID, strings.TrimSpace(s.Name), s.Color, s.OrderHint, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.OrderHint)
	if err != nil {
		return fmt.Errorf("stageRepo.Create: %w", mapError(err))
	}

	r.lane.mutated("stage_create")
	return nil
}

func (r *StageRepo) Update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.StagePatch) (*domain.Stage, error) {
	s, err := scanStage(r.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET
		        name = COALESCE($1, name),
		        color = COALESCE($2, color),
		        order_hint = COALESCE($3, order_hint),
		        updated_at = now()
		 WHERE tenant_id = $4 AND (owner_id = $5 OR $6) AND id = $7
		 RETURNING %s`, r.lane.stages, stageColumns),
		patch.Name, patch.Color, patch.OrderHint,
		scope.TenantID, scope.UserID, r.lane.wide(scope), id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("stageRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stageRepo.Update: %w", mapError(err))
	}

	r.lane.mutated("stage_update")
	return s, nil
}

// Delete removes a stage and, through the foreign key, every item in it.
func (r *StageRepo) Delete(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1 AND (owner_id = $2 OR $3) AND id = $4`, r.lane.stages),
		scope.TenantID, scope.UserID, r.lane.wide(scope), id,
	)
	if err != nil {
		return fmt.Errorf("stageRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stageRepo.Delete: %w", domain.ErrNotFound)
	}

	r.lane.mutated("stage_delete")
	return nil
}

// EnsureSeeded creates the seed stages for the caller on first access. A
// transaction-scoped advisory lock keyed on the owner keeps concurrent first
// requests from seeding twice.
func (r *StageRepo) EnsureSeeded(ctx context.Context, scope domain.Scope, seeds []domain.StageSeed) ([]*domain.Stage, error) {
	if len(seeds) > 0 {
		err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx,
				`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
				r.lane.stages+":"+scope.UserID.String(),
			); err != nil {
				return err
			}

			var exists bool
			if err := tx.QueryRow(ctx,
				fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE tenant_id = $1 AND owner_id = $2)`, r.lane.stages),
				scope.TenantID, scope.UserID,
			).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return nil
			}

			batch := &pgx.Batch{}
			for _, seed := range seeds {
				hint := seed.OrderHint
				batch.Queue(
					fmt.Sprintf(`INSERT INTO %s (id, tenant_id, owner_id, name, color, order_hint) VALUES ($1, $2, $3, $4, $5, $6)`, r.lane.stages),
					uuid.New(), scope.TenantID, scope.UserID, seed.Name, seed.Color, &hint,
				)
			}
			return tx.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return nil, fmt.Errorf("stageRepo.EnsureSeeded: %w", err)
		}
	}

	return r.List(ctx, scope)
}

func scanStage(row pgx.Row) (*domain.Stage, error) {
	var s domain.Stage
	if err := row.Scan(
		&s.ID, &s.TenantID, &s.OwnerID, &s.Name, &s.Color, &s.OrderHint, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanStages(rows pgx.Rows, caller string) ([]*domain.Stage, error) {
	stages := []*domain.Stage{}
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return stages, nil
}
