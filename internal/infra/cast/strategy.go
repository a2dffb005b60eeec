package cast

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/quietfall/quietfall/internal/app/strategy"
	"github.com/quietfall/quietfall/internal/domain/sound"
)

// Factory builds receiver-backed strategies.
type Factory struct {
	client  *Client
	resolve func(sound.Sound) string
}

// NewFactory creates a cast strategy factory. resolve maps a catalog sound
// to the source path/URL the receiver should fetch.
func NewFactory(client *Client, resolve func(sound.Sound) string) *Factory {
	return &Factory{client: client, resolve: resolve}
}

// New loads the sound on the receiver and returns its strategy.
func (f *Factory) New(s sound.Sound) (strategy.Strategy, error) {
	handle, err := f.client.Load(f.resolve(s), s.IsContiguous)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load sound on receiver: %s", s.Key)
	}
	return &castStrategy{client: f.client, soundKey: s.Key, handle: handle}, nil
}

// castStrategy forwards playback commands to the receiver. Command
// failures are logged, not propagated: a dropped receiver command is a
// transient routing glitch, not a playback-state change.
type castStrategy struct {
	client   *Client
	soundKey string
	handle   string
}

func (s *castStrategy) Play() {
	if err := s.client.Play(s.handle); err != nil {
		zlog.Warn().Msgf("cast play failed: sound=%s error=%v", s.soundKey, err)
	}
}

func (s *castStrategy) Pause() {
	if err := s.client.Pause(s.handle); err != nil {
		zlog.Warn().Msgf("cast pause failed: sound=%s error=%v", s.soundKey, err)
	}
}

func (s *castStrategy) Stop() {
	if err := s.client.Stop(s.handle); err != nil {
		zlog.Warn().Msgf("cast stop failed: sound=%s error=%v", s.soundKey, err)
	}
}

func (s *castStrategy) SetVolume(level float64) {
	if err := s.client.SetVolume(s.handle, level); err != nil {
		zlog.Warn().Msgf("cast volume failed: sound=%s error=%v", s.soundKey, err)
	}
}
