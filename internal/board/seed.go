package board

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gosuda/mentorpro/internal/domain"
)

//go:embed seeds.yaml
var seedsYAML []byte

// Seeds maps each board kind to the stages an owner starts with.
type Seeds map[domain.BoardKind][]domain.StageSeed

// ParseSeeds decodes a seed document and rejects seeds without a name.
func ParseSeeds(data []byte) (Seeds, error) {
	var seeds Seeds
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("board.ParseSeeds: %w", err)
	}
	for kind, list := range seeds {
		if !kind.Valid() {
			return nil, fmt.Errorf("board.ParseSeeds: unknown board kind %q", kind)
		}
		for i, s := range list {
			if s.Name == "" {
				return nil, fmt.Errorf("board.ParseSeeds: %s seed %d has no name", kind, i)
			}
		}
	}
	return seeds, nil
}

// DefaultSeeds returns the built-in seed set.
func DefaultSeeds() Seeds {
	seeds, err := ParseSeeds(seedsYAML)
	if err != nil {
		panic(err)
	}
	return seeds
}
