package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/quietfall/quietfall/internal/app/strategy"
	"github.com/quietfall/quietfall/internal/domain/preset"
	"github.com/quietfall/quietfall/internal/domain/sound"
)

// Errors
var (
	ErrInvalidDirection = errors.New("invalid skip direction")
	ErrInvalidSizeRange = errors.New("invalid random preset size range")
	ErrEmptyPreset      = errors.New("preset has no sounds")
)

// DefaultGraceWindow is how long a paused mix keeps its resources before
// the delayed full stop fires.
const DefaultGraceWindow = 5 * time.Minute

// Catalog defines the sound-library operations needed by the manager.
type Catalog interface {
	Get(key string) (sound.Sound, bool)
}

// PresetSource defines the preset-catalog operations needed by the manager.
type PresetSource interface {
	List() []preset.Preset
	Get(id string) (preset.Preset, error)
}

// RandomSource generates random presets for skip fallback and explicit
// random playback.
type RandomSource interface {
	Generate(tag string, minSounds, maxSounds int) (preset.Preset, error)
}

// Config holds manager configuration.
type Config struct {
	GraceWindow time.Duration // 0 means DefaultGraceWindow
}

// Manager owns the collection of active players, the audio-focus
// negotiation, the playback state machine, and preset recall/skip.
type Manager struct {
	mu sync.Mutex

	catalog Catalog
	presets PresetSource
	random  RandomSource
	arbiter Arbiter
	factory strategy.Factory

	players map[string]*Player
	state   State
	usage   Usage

	// Focus flags. These gate whether commands translate into real
	// strategy calls; they are not states of individual sounds.
	hasFocus          bool
	playbackDelayed   bool
	resumeOnFocusGain bool
	focusRelease      ReleaseFunc

	graceWindow time.Duration
	graceCancel func()
	graceGen    uint64

	listeners map[string]*subscriber
}

// subscriber carries one listener's pending notifications. A single drain
// goroutine per listener keeps delivery in emission order.
type subscriber struct {
	ch chan notification
}

type notification struct {
	state   State
	players []PlayerSnapshot
}

// NewManager creates a new manager. The strategy factory is supplied
// separately (typically by the route provider via SetStrategyFactory).
func NewManager(cfg Config, catalog Catalog, presets PresetSource, random RandomSource, arbiter Arbiter, factory strategy.Factory) *Manager {
	grace := cfg.GraceWindow
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	return &Manager{
		catalog:     catalog,
		presets:     presets,
		random:      random,
		arbiter:     arbiter,
		factory:     factory,
		players:     make(map[string]*Player),
		state:       StateStopped,
		graceWindow: grace,
		listeners:   make(map[string]*subscriber),
	}
}

// Register adds a listener and returns its registration id. Listeners get
// exactly one callback per logical operation, in emission order.
func (m *Manager) Register(l Listener) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	sub := &subscriber{ch: make(chan notification, 16)}
	m.listeners[id] = sub
	go func() {
		for n := range sub.ch {
			l(n.state, n.players)
		}
	}()
	return id
}

// Unregister removes a listener and stops its drain goroutine.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.listeners[id]; ok {
		close(sub.ch)
		delete(m.listeners, id)
	}
}

// Play starts one sound, lazily creating its player. Unknown keys are a
// no-op: they are routine races, not errors.
func (m *Manager) Play(soundKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.playLocked(soundKey); err != nil {
		return err
	}
	m.notifyLocked()
	return nil
}

func (m *Manager) playLocked(soundKey string) error {
	s, ok := m.catalog.Get(soundKey)
	if !ok {
		zlog.Warn().Msgf("ignoring unknown sound: key=%s", soundKey)
		return nil
	}

	p, exists := m.players[soundKey]
	if !exists {
		var err error
		p, err = newPlayer(s, m.factory)
		if err != nil {
			return err
		}
		m.players[soundKey] = p
	}

	// A prior focus request is still pending: the sound starts once the
	// grant arrives.
	if m.playbackDelayed {
		m.state = StatePaused
		return nil
	}

	if !m.hasFocus {
		m.requestFocusLocked()
		return nil
	}

	m.state = StatePlaying
	p.Play()
	return nil
}

// StopSound stops and removes one sound. Unknown keys are a no-op.
func (m *Manager) StopSound(soundKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[soundKey]
	if !ok {
		return
	}
	p.Stop()
	delete(m.players, soundKey)

	if len(m.players) == 0 {
		m.becomeStoppedLocked()
	}
	m.notifyLocked()
}

// Stop stops and removes every player and abandons focus.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopAllLocked()
	m.notifyLocked()
}

func (m *Manager) stopAllLocked() {
	for key, p := range m.players {
		p.Stop()
		delete(m.players, key)
	}
	m.becomeStoppedLocked()
}

// becomeStoppedLocked finishes the transition to StateStopped once the
// player collection is empty. Focus is abandoned exactly here: it is never
// abandoned while any sound remains logically active.
func (m *Manager) becomeStoppedLocked() {
	m.cancelGraceLocked()
	m.releaseFocusLocked()
	m.hasFocus = false
	m.playbackDelayed = false
	m.resumeOnFocusGain = false
	m.state = StateStopped
}

// releaseFocusLocked abandons the manager's own focus claim, if one exists.
func (m *Manager) releaseFocusLocked() {
	if m.focusRelease != nil {
		m.focusRelease()
		m.focusRelease = nil
	}
}

// Pause pauses every player and schedules the delayed full stop. Releasing
// resources on every transient pause would force expensive reinitialization
// on quick resume; the grace window amortizes that cost.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pauseLocked()
	m.notifyLocked()
}

func (m *Manager) pauseLocked() {
	if len(m.players) == 0 {
		return
	}
	m.pauseIndefinitelyLocked()

	// The generation token outlives the cancel func: a callback whose
	// timer fired before a later pause replaced it still sees a stale
	// generation and backs off.
	m.cancelGraceLocked()
	gen := m.graceGen
	m.graceCancel = schedule(m.graceWindow, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if gen != m.graceGen {
			return
		}
		m.graceCancel = nil
		if m.state != StatePaused {
			return
		}
		zlog.Info().Msgf("grace window elapsed, stopping: window=%v", m.graceWindow)
		m.stopAllLocked()
		m.notifyLocked()
	})
}

// pauseIndefinitelyLocked pauses every player without scheduling any
// further teardown.
func (m *Manager) pauseIndefinitelyLocked() {
	if len(m.players) == 0 {
		return
	}
	for _, p := range m.players {
		p.Pause()
	}
	m.state = StatePaused
}

// Resume restarts every player, acquiring focus first if necessary.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resumeLocked()
	m.notifyLocked()
}

func (m *Manager) resumeLocked() {
	if len(m.players) == 0 {
		return
	}

	if m.hasFocus {
		m.cancelGraceLocked()
		m.state = StatePlaying
		for _, p := range m.players {
			p.Play()
		}
		return
	}

	if !m.playbackDelayed {
		m.requestFocusLocked()
	}
}

// requestFocusLocked asks the arbiter for focus and handles the immediate
// result. Focus denial is state, not an error. Any earlier claim is
// released first so the manager never holds two registrations.
func (m *Manager) requestFocusLocked() {
	m.releaseFocusLocked()
	result, release := m.arbiter.Request(m.usage, m.onFocusChange)
	m.focusRelease = release
	zlog.Debug().Msgf("focus requested: usage=%s result=%s", m.usage, result)

	switch result {
	case FocusGranted:
		m.hasFocus = true
		m.resumeLocked()
	case FocusDelayed:
		m.playbackDelayed = true
		m.pauseIndefinitelyLocked()
	case FocusFailed:
		m.pauseLocked()
	}
}

// onFocusChange handles asynchronous focus events from the arbiter.
func (m *Manager) onFocusChange(change FocusChange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	zlog.Debug().Msgf("focus change: change=%s state=%s", change, m.state)

	switch change {
	case FocusGain:
		// The player set may have changed while the grant was in
		// flight; an emptied manager gives the focus straight back.
		if len(m.players) == 0 {
			m.releaseFocusLocked()
			m.hasFocus = false
			m.playbackDelayed = false
			m.resumeOnFocusGain = false
			return
		}
		m.hasFocus = true
		if m.playbackDelayed || m.resumeOnFocusGain {
			m.playbackDelayed = false
			m.resumeOnFocusGain = false
			m.resumeLocked()
		}
	case FocusLoss:
		m.hasFocus = false
		m.resumeOnFocusGain = true
		m.pauseLocked()
	case FocusLossTransient:
		// Expected to be brief: pause without the grace-window teardown.
		m.hasFocus = false
		m.resumeOnFocusGain = true
		m.pauseIndefinitelyLocked()
	}
	m.notifyLocked()
}

// PlayPreset swaps the live mix to the preset: players for sounds missing
// from the preset are stopped and removed, players shared with the preset
// are reused with updated settings, and the rest are created. Listeners
// receive exactly one notification for the whole swap.
func (m *Manager) PlayPreset(p *preset.Preset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.playPresetLocked(p); err != nil {
		return err
	}
	m.notifyLocked()
	return nil
}

func (m *Manager) playPresetLocked(p *preset.Preset) error {
	if p == nil || len(p.States) == 0 {
		return ErrEmptyPreset
	}

	keep := p.SoundKeys()
	for key, player := range m.players {
		if _, ok := keep[key]; !ok {
			player.Stop()
			delete(m.players, key)
		}
	}

	for _, st := range p.States {
		if player, ok := m.players[st.SoundKey]; ok {
			player.SetVolume(st.Volume)
			player.SetTimePeriod(st.TimePeriod)
			continue
		}

		s, ok := m.catalog.Get(st.SoundKey)
		if !ok {
			zlog.Warn().Msgf("preset references unknown sound, skipping: key=%s", st.SoundKey)
			continue
		}
		player, err := newPlayer(s, m.factory)
		if err != nil {
			zlog.Error().Msgf("failed to create player for preset sound: key=%s error=%v", st.SoundKey, err)
			continue
		}
		player.SetVolume(st.Volume)
		player.SetTimePeriod(st.TimePeriod)
		m.players[st.SoundKey] = player
	}

	if len(m.players) == 0 {
		m.becomeStoppedLocked()
		return nil
	}

	m.resumeLocked()
	return nil
}

// PlayPresetByID recalls a saved preset. A stale id is a no-op.
func (m *Manager) PlayPresetByID(id string) error {
	p, err := m.presets.Get(id)
	if err != nil {
		zlog.Warn().Msgf("ignoring unknown preset: id=%s", id)
		return nil
	}
	return m.PlayPreset(&p)
}

// PlayRandomPreset generates and plays a random preset. minSounds and
// maxSounds bound its size; tag restricts the candidate sounds.
func (m *Manager) PlayRandomPreset(tag string, minSounds, maxSounds int) error {
	if minSounds < 1 || maxSounds < minSounds {
		return errors.Wrapf(ErrInvalidSizeRange, "min=%d max=%d", minSounds, maxSounds)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.playRandomLocked(tag, minSounds, maxSounds); err != nil {
		return err
	}
	m.notifyLocked()
	return nil
}

func (m *Manager) playRandomLocked(tag string, minSounds, maxSounds int) error {
	p, err := m.random.Generate(tag, minSounds, maxSounds)
	if err != nil {
		return errors.Wrap(err, "failed to generate random preset")
	}
	return m.playPresetLocked(&p)
}

// SkipPreset moves to the neighbouring preset in the catalog order,
// wrapping around both ends. When the current mix matches no saved preset,
// it falls back to a random one.
func (m *Manager) SkipPreset(direction SkipDirection) error {
	if direction != SkipPrev && direction != SkipNext {
		return errors.Wrapf(ErrInvalidDirection, "direction=%d", direction)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.presets.List()
	current := m.currentPresetLocked()

	index := -1
	want := current.Fingerprint()
	for i := range list {
		if list[i].Fingerprint() == want && preset.Equivalent(&list[i], &current) {
			index = i
			break
		}
	}

	var err error
	if index == -1 || len(list) == 0 {
		zlog.Debug().Msg("current mix matches no saved preset, playing random")
		err = m.playRandomLocked("", 2, 6)
	} else {
		index += int(direction)
		if index < 0 {
			index = len(list) - 1
		}
		if index >= len(list) {
			index = 0
		}
		next := list[index]
		zlog.Debug().Msgf("skipping preset: direction=%s target=%s", direction, next.Name)
		err = m.playPresetLocked(&next)
	}
	if err != nil {
		return err
	}
	m.notifyLocked()
	return nil
}

// CurrentPreset builds the virtual preset describing the live mix.
func (m *Manager) CurrentPreset() preset.Preset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPresetLocked()
}

func (m *Manager) currentPresetLocked() preset.Preset {
	states := make([]preset.PlayerState, 0, len(m.players))
	for _, p := range m.players {
		states = append(states, p.State())
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].SoundKey < states[j].SoundKey
	})
	return preset.Preset{States: states}
}

// SetOutputUsage declares the output usage for subsequent focus requests.
func (m *Manager) SetOutputUsage(usage Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = usage
}

// SetStrategyFactory re-targets every active player onto the new output
// route. Implements the route provider's sink.
func (m *Manager) SetStrategyFactory(f strategy.Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.factory = f
	for key, p := range m.players {
		if err := p.UpdatePlaybackStrategy(f); err != nil {
			zlog.Error().Msgf("failed to re-target player: sound=%s error=%v", key, err)
		}
	}
	if len(m.players) > 0 {
		m.notifyLocked()
	}
}

// State returns the manager state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Players returns snapshots of the active players, ordered by sound key.
func (m *Manager) Players() []PlayerSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []PlayerSnapshot {
	snaps := make([]PlayerSnapshot, 0, len(m.players))
	for _, p := range m.players {
		snaps = append(snaps, p.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].SoundKey < snaps[j].SoundKey
	})
	return snaps
}

func (m *Manager) cancelGraceLocked() {
	m.graceGen++
	if m.graceCancel != nil {
		m.graceCancel()
		m.graceCancel = nil
	}
}

// notifyLocked enqueues the current state snapshot for every listener.
// Delivery happens on the per-listener drain goroutine, so a listener may
// call back into the manager and two quick operations arrive in order.
func (m *Manager) notifyLocked() {
	if len(m.listeners) == 0 {
		return
	}
	n := notification{state: m.state, players: m.snapshotLocked()}
	for _, sub := range m.listeners {
		select {
		case sub.ch <- n:
		default:
			// Backlogged listener: drop its oldest pending state so
			// the newest one still lands.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- n:
			default:
			}
		}
	}
}
