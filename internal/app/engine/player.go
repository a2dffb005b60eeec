package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/quietfall/quietfall/internal/app/strategy"
	"github.com/quietfall/quietfall/internal/domain/preset"
	"github.com/quietfall/quietfall/internal/domain/sound"
)

// Player owns one sound's playback lifecycle and exactly one strategy
// instance at a time. A player exists in the manager's collection iff its
// sound is playing, paused-but-resumable, or mid-stop.
type Player struct {
	mu sync.Mutex

	sound      sound.Sound
	volume     int // 0..preset.MaxVolume
	timePeriod int // seconds, meaningless for contiguous sounds
	isPlaying  bool

	strat           strategy.Strategy
	retriggerCancel func()

	// retriggerDelay samples the next re-trigger delay; replaced in tests.
	retriggerDelay func(timePeriod int) time.Duration
	rng            *rand.Rand
}

// newPlayer builds a player and its initial strategy instance.
func newPlayer(s sound.Sound, factory strategy.Factory) (*Player, error) {
	strat, err := factory.New(s)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build strategy: %s", s.Key)
	}

	p := &Player{
		sound:      s,
		volume:     preset.DefaultVolume,
		timePeriod: preset.DefaultTimePeriod,
		strat:      strat,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	p.retriggerDelay = p.sampleRetriggerDelay
	strat.SetVolume(volumeLevel(p.volume))
	return p, nil
}

// sampleRetriggerDelay draws uniformly from [MinTimePeriod, timePeriod].
func (p *Player) sampleRetriggerDelay(timePeriod int) time.Duration {
	span := timePeriod - preset.MinTimePeriod
	secs := preset.MinTimePeriod
	if span > 0 {
		secs += p.rng.Intn(span + 1)
	}
	return time.Duration(secs) * time.Second
}

// Play starts the sound. Contiguous sounds loop inside the strategy;
// intermittent sounds are re-triggered at randomized intervals.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.isPlaying = true
	p.strat.Play()
	if !p.sound.IsContiguous {
		p.scheduleRetriggerLocked()
	}
}

// scheduleRetriggerLocked replaces the pending re-trigger. At most one
// pending re-trigger exists per player. Must be called with the lock held.
func (p *Player) scheduleRetriggerLocked() {
	if p.retriggerCancel != nil {
		p.retriggerCancel()
	}

	delay := p.retriggerDelay(p.timePeriod)
	p.retriggerCancel = schedule(delay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		// Stale callback: the sound was paused or stopped after this
		// trigger was scheduled.
		if !p.isPlaying {
			return
		}

		p.strat.Play()
		p.scheduleRetriggerLocked()
	})
}

// Pause silences the sound but keeps the strategy's resource alive.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelRetriggerLocked()
	p.isPlaying = false
	p.strat.Pause()
}

// Stop silences the sound and releases the strategy's resource.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelRetriggerLocked()
	p.isPlaying = false
	p.strat.Stop()
}

func (p *Player) cancelRetriggerLocked() {
	if p.retriggerCancel != nil {
		p.retriggerCancel()
		p.retriggerCancel = nil
	}
}

// SetVolume stores the level (clamped to [0, MaxVolume]) and forwards the
// normalized gain to the current strategy.
func (p *Player) SetVolume(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if level < 0 {
		level = 0
	}
	if level > preset.MaxVolume {
		level = preset.MaxVolume
	}
	p.volume = level
	p.strat.SetVolume(volumeLevel(level))
}

// SetTimePeriod stores the re-trigger period, clamped to its bounds.
func (p *Player) SetTimePeriod(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seconds < preset.MinTimePeriod {
		seconds = preset.MinTimePeriod
	}
	if seconds > preset.MaxTimePeriod {
		seconds = preset.MaxTimePeriod
	}
	p.timePeriod = seconds
}

// UpdatePlaybackStrategy swaps the strategy without losing logical playback
// state, used when the output route changes. The old strategy is paused
// before it is stopped so it can run a fade-out if it has one.
func (p *Player) UpdatePlaybackStrategy(factory strategy.Factory) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.strat.Pause()
	p.strat.Stop()

	strat, err := factory.New(p.sound)
	if err != nil {
		return errors.Wrapf(err, "failed to rebuild strategy: %s", p.sound.Key)
	}
	p.strat = strat
	p.strat.SetVolume(volumeLevel(p.volume))

	// Intermittent sounds are not replayed here: they resume on their
	// already-scheduled re-trigger, avoiding a double-trigger race.
	if p.sound.IsContiguous && p.isPlaying {
		p.strat.Play()
	}

	zlog.Debug().Msgf("strategy swapped: sound=%s playing=%v", p.sound.Key, p.isPlaying)
	return nil
}

// IsPlaying reports whether the sound is logically playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isPlaying
}

// State returns the player's saved-preset representation.
func (p *Player) State() preset.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return preset.PlayerState{
		SoundKey:   p.sound.Key,
		Volume:     p.volume,
		TimePeriod: p.timePeriod,
	}
}

// Snapshot returns the listener-facing view of the player.
func (p *Player) Snapshot() PlayerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PlayerSnapshot{
		SoundKey:     p.sound.Key,
		Name:         p.sound.Name,
		Volume:       p.volume,
		TimePeriod:   p.timePeriod,
		IsPlaying:    p.isPlaying,
		IsContiguous: p.sound.IsContiguous,
	}
}

// volumeLevel maps the integer volume onto the strategy's [0,1] scale.
func volumeLevel(volume int) float64 {
	return float64(volume) / float64(preset.MaxVolume)
}
