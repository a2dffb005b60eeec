// Package strategy provides interchangeable playback outputs.
//
// A Strategy is the only component that touches an actual audio output.
// Implementations exist for the local speaker and for a remote cast
// receiver; the active one is selected per sound by a Factory and can be
// swapped at runtime when the output route changes.
package strategy

import "github.com/quietfall/quietfall/internal/domain/sound"

// Strategy controls the output of exactly one sound.
type Strategy interface {
	// Play starts (or re-triggers) the sound. For contiguous sounds the
	// strategy loops by itself; for intermittent sounds each call plays
	// the clip once.
	Play()

	// Pause silences the sound but keeps the underlying resource alive.
	Pause()

	// Stop silences the sound and releases the underlying resource.
	Stop()

	// SetVolume sets the gain, level in [0,1].
	SetVolume(level float64)
}

// Factory builds a Strategy instance for a sound.
type Factory interface {
	New(s sound.Sound) (Strategy, error)
}
