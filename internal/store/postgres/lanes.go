package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mentorpro/internal/board"
	"github.com/gosuda/mentorpro/internal/domain"
	"github.com/gosuda/mentorpro/internal/metrics"
)

// lane describes one board's storage: a stage table and the item table whose
// rows are kept dense per stage.
type lane struct {
	kind     domain.BoardKind
	stages   string
	items    string
	stageCol string
	// shared boards let admin and staff act on every owner in the tenant.
	shared bool
}

var (
	activityBoard = lane{kind: domain.BoardActivities, stages: "activity_stages", items: "activities", stageCol: "stage_id"}
	crmBoard      = lane{kind: domain.BoardCRM, stages: "crm_funnels", items: "crm_leads", stageCol: "funnel_id", shared: true}
)

// errItemMoved means the item left its stage between lookup and locking.
var errItemMoved = errors.New("item moved concurrently")

const relocateAttempts = 3

// wide reports whether scope sees every owner of its tenant on this board.
// Queries use it as "tenant_id = $1 AND (owner_id = $2 OR $3)".
func (l lane) wide(scope domain.Scope) bool {
	return l.shared && scope.TenantWide()
}

// lockStages takes row locks on the given stages in id order and returns
// their owners. A stage the scope cannot see yields ErrNotFound.
func (l lane) lockStages(ctx context.Context, tx pgx.Tx, scope domain.Scope, ids ...uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	ids = slices.Clone(ids)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	rows, err := tx.Query(ctx,
		fmt.Sprintf(`SELECT id, owner_id FROM %s
		 WHERE tenant_id = $1 AND (owner_id = $2 OR $3) AND id = ANY($4)
		 ORDER BY id
		 FOR UPDATE`, l.stages),
		scope.TenantID, scope.UserID, l.wide(scope), ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock stages: %w", err)
	}
	defer rows.Close()

	owners := make(map[uuid.UUID]uuid.UUID, len(ids))
	for rows.Next() {
		var id, owner uuid.UUID
		if err := rows.Scan(&id, &owner); err != nil {
			return nil, fmt.Errorf("lock stages: scan: %w", err)
		}
		owners[id] = owner
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock stages: rows: %w", err)
	}
	if len(owners) != len(ids) {
		return nil, domain.ErrNotFound
	}

	return owners, nil
}

// column reads a stage's cards in board order.
func (l lane) column(ctx context.Context, tx pgx.Tx, stageID uuid.UUID) (board.Column, error) {
	rows, err := tx.Query(ctx,
		fmt.Sprintf(`SELECT id, position, created_at FROM %s WHERE %s = $1`, l.items, l.stageCol),
		stageID,
	)
	if err != nil {
		return nil, fmt.Errorf("read column: %w", err)
	}
	defer rows.Close()

	var cards []board.Card
	for rows.Next() {
		var c board.Card
		if err := rows.Scan(&c.ID, &c.Position, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("read column: scan: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read column: rows: %w", err)
	}

	return board.Order(cards), nil
}

// writePositions persists position changes for every card except skip, whose
// row the caller writes together with its content.
func (l lane) writePositions(ctx context.Context, tx pgx.Tx, changes []board.Change, skip uuid.UUID) error {
	batch := &pgx.Batch{}
	for _, c := range positionWrites(changes, skip) {
		batch.Queue(fmt.Sprintf(`UPDATE %s SET position = $1 WHERE id = $2`, l.items), c.To, c.ID)
	}
	if batch.Len() == 0 {
		return nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	metrics.BoardPositionWrites.WithLabelValues(string(l.kind)).Add(float64(batch.Len()))

	return nil
}

// positionWrites keeps the changes that need their own UPDATE: everything but
// skip, and nothing whose position stays put.
func positionWrites(changes []board.Change, skip uuid.UUID) []board.Change {
	out := make([]board.Change, 0, len(changes))
	for _, c := range changes {
		if c.ID == skip || c.From == c.To {
			continue
		}
		out = append(out, c)
	}
	return out
}

// sameOwner rejects a move into a stage that belongs to someone else.
// owners comes from lockStages.
func sameOwner(owners map[uuid.UUID]uuid.UUID, from uuid.UUID, target *uuid.UUID) error {
	if target == nil {
		return nil
	}
	to, ok := owners[*target]
	if !ok || to != owners[from] {
		return domain.ErrNotFound
	}
	return nil
}

// positionOf returns id's index in col.
func positionOf(col board.Column, id uuid.UUID) int {
	return slices.IndexFunc(col, func(c board.Card) bool { return c.ID == id })
}

// insertSlot makes room for a new card in a locked stage and returns the
// position it should be written at.
func (l lane) insertSlot(ctx context.Context, tx pgx.Tx, stageID uuid.UUID, card board.Card, index *int) (int, error) {
	col, err := l.column(ctx, tx, stageID)
	if err != nil {
		return 0, err
	}
	out, changes := board.Insert(col, card, index)
	if err := l.writePositions(ctx, tx, changes, card.ID); err != nil {
		return 0, err
	}
	return positionOf(out, card.ID), nil
}

// closeGap removes a card from a locked stage's order, shifting later cards
// down. The card's own row is left to the caller.
func (l lane) closeGap(ctx context.Context, tx pgx.Tx, stageID, id uuid.UUID) error {
	col, err := l.column(ctx, tx, stageID)
	if err != nil {
		return err
	}
	_, changes, err := board.Remove(col, id)
	if err != nil {
		return fmt.Errorf("close gap: %w", err)
	}
	return l.writePositions(ctx, tx, changes, id)
}

// relocate applies a placement to a card currently in stage from. Both stages
// must already be locked. It returns the card's new stage and position.
func (l lane) relocate(ctx context.Context, tx pgx.Tx, id, from uuid.UUID, to domain.Placement) (uuid.UUID, int, error) {
	target := from
	if to.StageID != nil {
		target = *to.StageID
	}

	src, err := l.column(ctx, tx, from)
	if err != nil {
		return uuid.Nil, 0, err
	}

	if target == from {
		out, changes, err := board.Move(src, id, to.Position)
		if err != nil {
			return uuid.Nil, 0, fmt.Errorf("relocate: %w", err)
		}
		if err := l.writePositions(ctx, tx, changes, id); err != nil {
			return uuid.Nil, 0, err
		}
		return from, positionOf(out, id), nil
	}

	dst, err := l.column(ctx, tx, target)
	if err != nil {
		return uuid.Nil, 0, err
	}
	_, newDst, srcChanges, dstChanges, err := board.Transfer(src, dst, id, to.Position)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("relocate: %w", err)
	}
	if err := l.writePositions(ctx, tx, srcChanges, id); err != nil {
		return uuid.Nil, 0, err
	}
	if err := l.writePositions(ctx, tx, dstChanges, id); err != nil {
		return uuid.Nil, 0, err
	}
	return target, positionOf(newDst, id), nil
}

// locate returns the stage of a visible item without locking anything.
func (l lane) locate(ctx context.Context, pool *pgxpool.Pool, scope domain.Scope, id uuid.UUID) (uuid.UUID, error) {
	var stageID uuid.UUID
	err := pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 AND (owner_id = $2 OR $3) AND id = $4`, l.stageCol, l.items),
		scope.TenantID, scope.UserID, l.wide(scope), id,
	).Scan(&stageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return stageID, nil
}

// withItem runs fn in a transaction holding locks on the item's stage and,
// when target names a different stage, on that one too. Both stages must
// share an owner. Stages are locked before the item row so that concurrent
// inserts and moves in the same stage serialize without deadlocking.
func (l lane) withItem(ctx context.Context, pool *pgxpool.Pool, scope domain.Scope, id uuid.UUID, target *uuid.UUID, fn func(tx pgx.Tx, stageID uuid.UUID) error) error {
	for range relocateAttempts {
		stageID, err := l.locate(ctx, pool, scope, id)
		if err != nil {
			return err
		}

		err = withTx(ctx, pool, func(tx pgx.Tx) error {
			ids := []uuid.UUID{stageID}
			if target != nil {
				ids = append(ids, *target)
			}
			owners, err := l.lockStages(ctx, tx, scope, ids...)
			if err != nil {
				return err
			}
			if err := sameOwner(owners, stageID, target); err != nil {
				return err
			}

			var current uuid.UUID
			err = tx.QueryRow(ctx,
				fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, l.stageCol, l.items),
				id,
			).Scan(&current)
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			if err != nil {
				return err
			}
			if current != stageID {
				return errItemMoved
			}

			return fn(tx, stageID)
		})
		if errors.Is(err, errItemMoved) {
			continue
		}
		return err
	}

	return fmt.Errorf("%w: item kept moving", domain.ErrConflict)
}

// withStage runs fn in a transaction holding the lock on one stage and hands
// it the stage owner.
func (l lane) withStage(ctx context.Context, pool *pgxpool.Pool, scope domain.Scope, stageID uuid.UUID, fn func(tx pgx.Tx, owner uuid.UUID) error) error {
	return withTx(ctx, pool, func(tx pgx.Tx) error {
		owners, err := l.lockStages(ctx, tx, scope, stageID)
		if err != nil {
			return err
		}
		return fn(tx, owners[stageID])
	})
}

func (l lane) mutated(op string) {
	metrics.BoardMutations.WithLabelValues(string(l.kind), op).Inc()
}

// stamp returns the creation time used for a new row.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
