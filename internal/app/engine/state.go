// Package engine provides the ambient-mix playback engine: per-sound
// players multiplexed onto one exclusive audio output, audio-focus
// arbitration, and preset recall/skip on top of the live state.
package engine

// State represents the manager playback state.
type State int

const (
	StateStopped State = iota // No active players
	StatePaused               // Players exist but are silenced
	StatePlaying              // Players are rendering audio
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// SkipDirection selects the neighbouring preset during skip navigation.
type SkipDirection int

const (
	SkipPrev SkipDirection = -1
	SkipNext SkipDirection = 1
)

// String returns the string representation of the direction.
func (d SkipDirection) String() string {
	switch d {
	case SkipPrev:
		return "prev"
	case SkipNext:
		return "next"
	default:
		return "unknown"
	}
}

// Usage declares what kind of output the mix occupies. It is forwarded to
// the focus arbiter on the next request.
type Usage int

const (
	UsageMedia Usage = iota // Ordinary ambient playback
	UsageAlarm              // Wake-up playback, higher arbitration priority
)

// String returns the string representation of the usage.
func (u Usage) String() string {
	switch u {
	case UsageMedia:
		return "media"
	case UsageAlarm:
		return "alarm"
	default:
		return "unknown"
	}
}

// PlayerSnapshot is the listener-facing view of one active player.
type PlayerSnapshot struct {
	SoundKey     string `json:"soundKey"`
	Name         string `json:"name"`
	Volume       int    `json:"volume"`
	TimePeriod   int    `json:"timePeriod"`
	IsPlaying    bool   `json:"isPlaying"`
	IsContiguous bool   `json:"isContiguous"`
}

// Listener receives one callback per logical manager operation.
type Listener func(state State, players []PlayerSnapshot)
