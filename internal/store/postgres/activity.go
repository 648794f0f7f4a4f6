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

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

const activityColumns = `id, tenant_id, owner_id, stage_id, position, title, description, priority,
		        assignee, due_on, tags, created_at, updated_at`

func (r *ActivityRepo) List(ctx context.Context, scope domain.Scope, stageID *uuid.UUID) ([]*domain.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+activityColumns+`
		 FROM activities
		 WHERE tenant_id = $1 AND owner_id = $2 AND ($3::uuid IS NULL OR stage_id = $3)
		 ORDER BY stage_id, position, created_at, id
		 LIMIT 5000`,
		scope.TenantID, scope.UserID, stageID,
	)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.List: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows, "activityRepo.List")
}

func (r *ActivityRepo) GetByID(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Activity, error) {
	a, err := scanActivity(r.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE tenant_id = $1 AND owner_id = $2 AND id = $3`,
		scope.TenantID, scope.UserID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("activityRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("activityRepo.GetByID: %w", err)
	}

	return a, nil
}

// Create inserts a into its stage at position (clamped; nil appends),
// shifting later activities down.
func (r *ActivityRepo) Create(ctx context.Context, scope domain.Scope, a *domain.Activity, position *int) error {
	a.TenantID = scope.TenantID
	a.CreatedAt = stamp(a.CreatedAt)
	a.UpdatedAt = a.CreatedAt
	if a.Tags == nil {
		a.Tags = []string{}
	}

	err := activityBoard.withStage(ctx, r.pool, scope, a.StageID, func(tx pgx.Tx, owner uuid.UUID) error {
		a.OwnerID = owner

		pos, err := activityBoard.insertSlot(ctx, tx, a.StageID, board.Card{ID: a.ID, CreatedAt: a.CreatedAt}, position)
		if err != nil {
			return err
		}
		a.Position = pos

		_, err = tx.Exec(ctx,
			`INSERT INTO activities (id, tenant_id, owner_id, stage_id, position, title, description, priority,
			                         assignee, due_on, tags, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			a.ID, a.TenantID, a.OwnerID, a.StageID, a.Position, a.Title, a.Description, a.Priority,
			a.Assignee, a.DueOn, a.Tags, a.CreatedAt, a.UpdatedAt,
		)
		return mapError(err)
	})
	if err != nil {
		return fmt.Errorf("activityRepo.Create: %w", err)
	}

	activityBoard.mutated("create")
	return nil
}

// Update applies content changes and, when to asks for it, moves the
// activity inside its stage or into another stage of the same owner.
func (r *ActivityRepo) Update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.ActivityPatch, to domain.Placement) (*domain.Activity, error) {
	var out *domain.Activity

	err := activityBoard.withItem(ctx, r.pool, scope, id, to.StageID, func(tx pgx.Tx, stageID uuid.UUID) error {
		a, err := scanActivity(tx.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
		if err != nil {
			return err
		}

		applyActivityPatch(a, patch)
		if to.Moves() {
			a.StageID, a.Position, err = activityBoard.relocate(ctx, tx, id, stageID, to)
			if err != nil {
				return err
			}
		}

		err = tx.QueryRow(ctx,
			`UPDATE activities SET stage_id = $1, position = $2, title = $3, description = $4, priority = $5,
			        assignee = $6, due_on = $7, tags = $8, updated_at = now()
			 WHERE id = $9
			 RETURNING updated_at`,
			a.StageID, a.Position, a.Title, a.Description, a.Priority,
			a.Assignee, a.DueOn, a.Tags, a.ID,
		).Scan(&a.UpdatedAt)
		if err != nil {
			return mapError(err)
		}

		out = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("activityRepo.Update: %w", err)
	}

	if to.Moves() {
		activityBoard.mutated("move")
	} else {
		activityBoard.mutated("update")
	}
	return out, nil
}

// Delete removes the activity and closes the gap it leaves.
func (r *ActivityRepo) Delete(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	err := activityBoard.withItem(ctx, r.pool, scope, id, nil, func(tx pgx.Tx, stageID uuid.UUID) error {
		if err := activityBoard.closeGap(ctx, tx, stageID, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("activityRepo.Delete: %w", err)
	}

	activityBoard.mutated("delete")
	return nil
}

func applyActivityPatch(a *domain.Activity, p domain.ActivityPatch) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Priority != nil {
		a.Priority = *p.Priority
	}
	if p.Assignee != nil {
		a.Assignee = *p.Assignee
	}
	if p.DueOn != nil {
		a.DueOn = p.DueOn
	}
	if p.Tags != nil {
		a.Tags = p.Tags
	}
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.OwnerID, &a.StageID, &a.Position, &a.Title, &a.Description, &a.Priority,
		&a.Assignee, &a.DueOn, &a.Tags, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func scanActivities(rows pgx.Rows, caller string) ([]*domain.Activity, error) {
	activities := []*domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return activities, nil
}
