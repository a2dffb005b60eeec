package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/quietfall/quietfall/internal/domain/preset"
)

var ErrNotEnoughSounds = errors.New("not enough candidate sounds")

// UniformGenerator picks sounds uniformly from the catalog.
type UniformGenerator struct {
	catalog Catalog
	rng     *rand.Rand
}

// NewUniformGenerator creates a new UniformGenerator.
func NewUniformGenerator(catalog Catalog) *UniformGenerator {
	return &UniformGenerator{
		catalog: catalog,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate builds a preset of randomly chosen sounds at random settings.
func (g *UniformGenerator) Generate(tag string, minSounds, maxSounds int) (preset.Preset, error) {
	return generate(g.rng, g.catalog, tag, minSounds, maxSounds)
}

// Name returns the generator name.
func (g *UniformGenerator) Name() string {
	return "uniform"
}

// generate is the shared picking logic: choose a size in [minSounds,
// maxSounds], shuffle the candidate keys and take the first size of them,
// each with a random volume and time period.
func generate(rng *rand.Rand, catalog Catalog, tag string, minSounds, maxSounds int) (preset.Preset, error) {
	if minSounds < 1 || maxSounds < minSounds {
		return preset.Preset{}, errors.Newf("invalid sound count range: min=%d max=%d", minSounds, maxSounds)
	}

	keys := catalog.Keys(tag)
	if len(keys) < minSounds {
		return preset.Preset{}, errors.Wrapf(ErrNotEnoughSounds, "tag=%q candidates=%d min=%d", tag, len(keys), minSounds)
	}

	size := minSounds + rng.Intn(maxSounds-minSounds+1)
	if size > len(keys) {
		size = len(keys)
	}

	shuffled := make([]string, len(keys))
	copy(shuffled, keys)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	states := make([]preset.PlayerState, 0, size)
	for _, key := range shuffled[:size] {
		states = append(states, preset.PlayerState{
			SoundKey:   key,
			Volume:     1 + rng.Intn(preset.MaxVolume),
			TimePeriod: preset.MinTimePeriod + rng.Intn(preset.MaxTimePeriod-preset.MinTimePeriod+1),
		})
	}

	return preset.Preset{
		Name:   fmt.Sprintf("Random mix (%d sounds)", size),
		States: states,
	}, nil
}
