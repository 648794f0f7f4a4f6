// Package board keeps kanban columns dense. The functions here are pure: they
// take the current content of a stage and return its new order together with
// the position writes needed to reach it.
package board

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var ErrCardNotFound = errors.New("board: card not found")

// Card is the part of a board item the reindexer needs.
type Card struct {
	ID        uuid.UUID
	Position  int
	CreatedAt time.Time
}

// Column is the ordered content of one stage.
type Column []Card

// Change is a position write. From is -1 when the card did not previously
// sit in the column.
type Change struct {
	ID   uuid.UUID
	From int
	To   int
}

// Order sorts cards by stored position, breaking ties by creation time and
// then id. The input slice is not modified.
func Order(cards []Card) Column {
	col := slices.Clone(Column(cards))
	slices.SortStableFunc(col, func(a, b Card) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return col
}

// IDs returns the card ids in column order.
func (c Column) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c))
	for i, card := range c {
		ids[i] = card.ID
	}
	return ids
}

func (c Column) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(c, func(card Card) bool { return card.ID == id })
}

// Clamp bounds a requested index to [0, n]. A nil index means the end.
func Clamp(index *int, n int) int {
	if index == nil {
		return n
	}
	return max(0, min(*index, n))
}

// Compact renumbers c to 0..n-1 keeping its order.
func Compact(c Column) (Column, []Change) {
	out := make(Column, len(c))
	var changes []Change
	for i, card := range c {
		if card.Position != i {
			changes = append(changes, Change{ID: card.ID, From: card.Position, To: i})
		}
		card.Position = i
		out[i] = card
	}
	return out, changes
}

// Remove takes a card out of c and shifts every later card down by one.
func Remove(c Column, id uuid.UUID) (Column, []Change, error) {
	i := c.indexOf(id)
	if i < 0 {
		return nil, nil, ErrCardNotFound
	}
	rest := slices.Delete(slices.Clone(c), i, i+1)
	out, changes := Compact(rest)
	return out, changes, nil
}

// Insert places card at index (clamped to [0, len(c)], nil appends) and shifts
// the cards at or after it up by one. The inserted card always produces a
// change with From -1.
func Insert(c Column, card Card, index *int) (Column, []Change) {
	k := Clamp(index, len(c))
	card.Position = -1
	out, changes := Compact(slices.Insert(slices.Clone(c), k, card))
	return out, changes
}

// Move repositions a card inside its own column: delete, then insert at the
// clamped index, keeping the relative order of every other card. A nil index
// only compacts.
func Move(c Column, id uuid.UUID, index *int) (Column, []Change, error) {
	i := c.indexOf(id)
	if i < 0 {
		return nil, nil, ErrCardNotFound
	}
	if index == nil {
		out, changes := Compact(c)
		return out, changes, nil
	}

	card := c[i]
	rest := slices.Delete(slices.Clone(c), i, i+1)
	k := Clamp(index, len(rest))
	out, changes := Compact(slices.Insert(rest, k, card))
	return out, changes, nil
}

// Transfer moves a card from src into dst at index. Both columns come back
// dense. The moved card appears in dstChanges with From -1.
func Transfer(src, dst Column, id uuid.UUID, index *int) (newSrc, newDst Column, srcChanges, dstChanges []Change, err error) {
	i := src.indexOf(id)
	if i < 0 {
		return nil, nil, nil, nil, ErrCardNotFound
	}
	card := src[i]

	newSrc, srcChanges, err = Remove(src, id)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	newDst, dstChanges = Insert(dst, card, index)
	return newSrc, newDst, srcChanges, dstChanges, nil
}

// Dense reports whether c holds positions exactly 0..n-1 in order.
func Dense(c Column) bool {
	for i, card := range c {
		if card.Position != i {
			return false
		}
	}
	return true
}
