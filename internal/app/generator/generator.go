// Package generator provides random-preset generation strategies.
package generator

import (
	"github.com/quietfall/quietfall/internal/domain/preset"
	"github.com/quietfall/quietfall/internal/domain/sound"
)

// Catalog defines the sound-library operations needed by generators.
type Catalog interface {
	Keys(tag string) []string
	Get(key string) (sound.Sound, bool)
}

// Generator is the interface for random preset generators.
// Different implementations pick sounds through various strategies
// (uniform over the catalog, tag-weighted, etc.).
type Generator interface {
	// Generate builds a random preset with between minSounds and maxSounds
	// sounds. tag restricts the candidate pool; empty means no restriction.
	Generate(tag string, minSounds, maxSounds int) (preset.Preset, error)

	// Name returns the generator name (used in config).
	Name() string
}
