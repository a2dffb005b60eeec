package generator

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/quietfall/quietfall/internal/domain/preset"
	"github.com/quietfall/quietfall/internal/infra/config"
)

// Chain tries multiple generators in order until one produces a preset.
type Chain struct {
	generators []Generator
}

// NewChain creates a new generator chain.
func NewChain(generators []Generator) *Chain {
	return &Chain{generators: generators}
}

// NewChainFromConfig creates a generator chain from configuration.
// With no configured generators, the chain holds a single uniform generator.
func NewChainFromConfig(cfgs []config.RandomConfig, catalog Catalog) (*Chain, error) {
	if len(cfgs) == 0 {
		return NewChain([]Generator{NewUniformGenerator(catalog)}), nil
	}

	var generators []Generator
	for i, gcfg := range cfgs {
		var gen Generator
		var err error
		switch gcfg.Type {
		case "uniform":
			gen = NewUniformGenerator(catalog)
		case "tag":
			gen, err = NewTagGenerator(catalog, gcfg.Settings)
		default:
			return nil, errors.Newf("unsupported generator type: %s (generator index %d)", gcfg.Type, i)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create generator (index %d, type %s)", i, gcfg.Type)
		}
		generators = append(generators, gen)
		zlog.Info().Msgf("registered preset generator: index=%d type=%s", i+1, gcfg.Type)
	}

	return NewChain(generators), nil
}

// Generate tries each generator in order and returns the first preset.
func (c *Chain) Generate(tag string, minSounds, maxSounds int) (preset.Preset, error) {
	var lastErr error
	for i, gen := range c.generators {
		p, err := gen.Generate(tag, minSounds, maxSounds)
		if err != nil {
			zlog.Warn().Msgf("generator failed, trying next: index=%d name=%s error=%v", i+1, gen.Name(), err)
			lastErr = err
			continue
		}
		return p, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no generators configured")
	}
	return preset.Preset{}, errors.Wrap(lastErr, "all generators failed")
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "chain"
}
