package board

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/gosuda/mentorpro/internal/domain"
)

// Lane is one stage of an assembled board with its items in position order.
type Lane[T any] struct {
	Stage *domain.Stage `json:"stage"`
	Items []T           `json:"items"`
}

// SortStages orders stages by order hint (unset hints last), then creation
// time, then id.
func SortStages(stages []*domain.Stage) {
	slices.SortStableFunc(stages, func(a, b *domain.Stage) int {
		switch {
		case a.OrderHint == nil && b.OrderHint != nil:
			return 1
		case a.OrderHint != nil && b.OrderHint == nil:
			return -1
		case a.OrderHint != nil && b.OrderHint != nil:
			if c := cmp.Compare(*a.OrderHint, *b.OrderHint); c != 0 {
				return c
			}
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
}

// Assemble groups items into lanes, one per stage. locate reports the stage
// and position of an item. Items whose stage is not among stages are dropped.
func Assemble[T any](stages []*domain.Stage, items []T, locate func(T) (uuid.UUID, int)) []Lane[T] {
	ordered := slices.Clone(stages)
	SortStages(ordered)

	lanes := make([]Lane[T], len(ordered))
	byStage := make(map[uuid.UUID]int, len(ordered))
	for i, s := range ordered {
		lanes[i] = Lane[T]{Stage: s, Items: make([]T, 0)}
		byStage[s.ID] = i
	}

	for _, item := range items {
		stageID, _ := locate(item)
		if i, ok := byStage[stageID]; ok {
			lanes[i].Items = append(lanes[i].Items, item)
		}
	}

	for i := range lanes {
		slices.SortStableFunc(lanes[i].Items, func(a, b T) int {
			_, pa := locate(a)
			_, pb := locate(b)
			return cmp.Compare(pa, pb)
		})
	}

	return lanes
}
