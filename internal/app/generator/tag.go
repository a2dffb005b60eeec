package generator

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/quietfall/quietfall/internal/domain/preset"
)

// TagGeneratorConfig holds the settings of a tag generator.
type TagGeneratorConfig struct {
	Tag string `yaml:"tag" mapstructure:"tag" validate:"required"`
}

// TagGenerator picks sounds restricted to a configured tag. A tag supplied
// by the caller takes precedence over the configured one.
type TagGenerator struct {
	catalog Catalog
	config  *TagGeneratorConfig
	rng     *rand.Rand
}

// NewTagGenerator creates a new TagGenerator from decoded settings.
func NewTagGenerator(catalog Catalog, settings map[string]any) (*TagGenerator, error) {
	var config TagGeneratorConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &TagGenerator{
		catalog: catalog,
		config:  &config,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Generate builds a preset restricted to the generator's tag.
func (g *TagGenerator) Generate(tag string, minSounds, maxSounds int) (preset.Preset, error) {
	if tag == "" {
		tag = g.config.Tag
	}
	return generate(g.rng, g.catalog, tag, minSounds, maxSounds)
}

// Name returns the generator name.
func (g *TagGenerator) Name() string {
	return "tag"
}
