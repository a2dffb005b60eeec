// Package presetstore provides YAML file persistence for presets.
package presetstore

import (
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/quietfall/quietfall/internal/domain/preset"
)

var ErrPresetNotFound = errors.New("preset not found")

// Store persists presets to a single YAML file. The in-memory list is the
// source of truth; every mutation rewrites the file.
type Store struct {
	mu      sync.RWMutex
	path    string
	presets []preset.Preset
}

// Open loads the preset file, creating an empty store if it does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zlog.Info().Msgf("preset store not found, starting empty: path=%s", path)
			return s, nil
		}
		return nil, errors.Wrap(err, "failed to read preset store")
	}

	if err := yaml.Unmarshal(data, &s.presets); err != nil {
		return nil, errors.Wrap(err, "failed to parse preset store")
	}
	zlog.Info().Msgf("loaded preset store: path=%s presets=%d", path, len(s.presets))
	return s, nil
}

// List returns all presets in stored order.
func (s *Store) List() []preset.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]preset.Preset, len(s.presets))
	copy(result, s.presets)
	return result
}

// Get retrieves a preset by id.
func (s *Store) Get(id string) (preset.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.presets {
		if p.ID == id {
			return p, nil
		}
	}
	return preset.Preset{}, ErrPresetNotFound
}

// Save appends a new preset (id assigned if empty) or replaces an existing
// one with the same id, then rewrites the file.
func (s *Store) Save(p preset.Preset) (preset.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	replaced := false
	for i := range s.presets {
		if s.presets[i].ID == p.ID {
			s.presets[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.presets = append(s.presets, p)
	}

	if err := s.flushLocked(); err != nil {
		return preset.Preset{}, err
	}
	return p, nil
}

// Delete removes a preset by id and rewrites the file.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.presets {
		if s.presets[i].ID == id {
			s.presets = append(s.presets[:i], s.presets[i+1:]...)
			return s.flushLocked()
		}
	}
	return ErrPresetNotFound
}

// FindEquivalent returns the index of the first stored preset equivalent to
// p, or -1 when the mix matches no saved preset.
func (s *Store) FindEquivalent(p *preset.Preset) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := p.Fingerprint()
	for i := range s.presets {
		if s.presets[i].Fingerprint() == want && preset.Equivalent(&s.presets[i], p) {
			return i
		}
	}
	return -1
}

// flushLocked rewrites the store file. Must be called with the lock held.
func (s *Store) flushLocked() error {
	data, err := yaml.Marshal(s.presets)
	if err != nil {
		return errors.Wrap(err, "failed to marshal presets")
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write preset store")
	}
	return nil
}
