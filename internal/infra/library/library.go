// Package library provides the sound catalog, loaded once at startup.
package library

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/quietfall/quietfall/internal/domain/sound"
)

var ErrEmptyCatalog = errors.New("sound catalog is empty")

// catalogEntry is the YAML representation of a catalog sound.
type catalogEntry struct {
	Key          string   `yaml:"key"`
	Name         string   `yaml:"name"`
	Src          string   `yaml:"src"`
	IsContiguous bool     `yaml:"contiguous"`
	Tags         []string `yaml:"tags"`
}

// Library holds the immutable sound catalog.
type Library struct {
	root   string
	sounds map[string]sound.Sound
	order  []string // catalog file order, used for stable iteration
}

// Load reads the catalog from a YAML file. root is prepended to each
// sound's Src when resolving audio files.
func Load(path, root string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sound catalog")
	}

	var entries []catalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to parse sound catalog")
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	lib := &Library{
		root:   root,
		sounds: make(map[string]sound.Sound, len(entries)),
		order:  make([]string, 0, len(entries)),
	}
	for i, e := range entries {
		if e.Key == "" {
			return nil, errors.Newf("catalog entry %d has no key", i)
		}
		if _, dup := lib.sounds[e.Key]; dup {
			return nil, errors.Newf("duplicate catalog key: %s", e.Key)
		}
		lib.sounds[e.Key] = sound.Sound{
			Key:          e.Key,
			Name:         e.Name,
			Src:          e.Src,
			IsContiguous: e.IsContiguous,
			Tags:         e.Tags,
		}
		lib.order = append(lib.order, e.Key)
	}

	zlog.Info().Msgf("loaded sound catalog: path=%s sounds=%d", path, len(lib.sounds))
	return lib, nil
}

// Get retrieves a sound by key.
func (l *Library) Get(key string) (sound.Sound, bool) {
	s, ok := l.sounds[key]
	return s, ok
}

// All returns every sound in catalog order.
func (l *Library) All() []sound.Sound {
	result := make([]sound.Sound, 0, len(l.order))
	for _, key := range l.order {
		result = append(result, l.sounds[key])
	}
	return result
}

// Keys returns the keys of all sounds carrying the given tag, in catalog
// order. An empty tag matches every sound.
func (l *Library) Keys(tag string) []string {
	keys := make([]string, 0, len(l.order))
	for _, key := range l.order {
		s := l.sounds[key]
		if s.HasTag(tag) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Size returns the number of catalog sounds.
func (l *Library) Size() int {
	return len(l.sounds)
}

// ResolveSrc returns the absolute path of a sound's audio file.
func (l *Library) ResolveSrc(s sound.Sound) string {
	if l.root == "" {
		return s.Src
	}
	return filepath.Join(l.root, s.Src)
}
