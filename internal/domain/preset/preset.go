// Package preset provides the Preset domain entity.
package preset

import (
	"sort"

	"github.com/mitchellh/hashstructure/v2"
)

// Volume and time-period bounds shared by players and presets.
const (
	MaxVolume         = 20
	DefaultVolume     = 4
	MinTimePeriod     = 30   // seconds
	MaxTimePeriod     = 1200 // seconds
	DefaultTimePeriod = 300  // seconds
)

// PlayerState represents one sound's saved playback settings.
type PlayerState struct {
	SoundKey   string `yaml:"sound" json:"soundKey"`
	Volume     int    `yaml:"volume" json:"volume"`          // 0..MaxVolume
	TimePeriod int    `yaml:"time_period" json:"timePeriod"` // seconds, MinTimePeriod..MaxTimePeriod
}

// Preset represents a named, saved combination of sounds.
type Preset struct {
	ID     string        `yaml:"id" json:"id"`
	Name   string        `yaml:"name" json:"name"`
	States []PlayerState `yaml:"states" json:"states"`
}

// SortedStates returns the preset's states ordered by sound key.
// The stored order is presentation order; matching always uses key order.
func (p *Preset) SortedStates() []PlayerState {
	states := make([]PlayerState, len(p.States))
	copy(states, p.States)
	sort.Slice(states, func(i, j int) bool {
		return states[i].SoundKey < states[j].SoundKey
	})
	return states
}

// SoundKeys returns the set of sound keys in the preset.
func (p *Preset) SoundKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(p.States))
	for _, s := range p.States {
		keys[s.SoundKey] = struct{}{}
	}
	return keys
}

// Fingerprint returns a hash of the preset's key-sorted states.
// Name and ID do not contribute: two presets with the same sounds at the
// same settings have the same fingerprint.
func (p *Preset) Fingerprint() uint64 {
	h, err := hashstructure.Hash(p.SortedStates(), hashstructure.FormatV2, nil)
	if err != nil {
		// Hashing a slice of plain structs cannot fail; keep the zero
		// value as "no fingerprint" rather than propagating.
		return 0
	}
	return h
}

// Equivalent reports whether two presets describe the same mix: equal
// state sets compared element-by-sound-key, irrespective of name or id.
func Equivalent(a, b *Preset) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.States) != len(b.States) {
		return false
	}
	as, bs := a.SortedStates(), b.SortedStates()
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
