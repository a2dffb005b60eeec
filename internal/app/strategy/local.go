package strategy

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	zlog "github.com/rs/zerolog/log"

	"github.com/quietfall/quietfall/internal/domain/sound"
)

// LocalFactory builds speaker-backed strategies. Clips are fully decoded
// into memory so loop restarts and re-triggers never touch the disk.
type LocalFactory struct {
	sampleRate beep.SampleRate
	resolve    func(sound.Sound) string
}

// NewLocalFactory initializes the speaker and returns a local factory.
// resolve maps a catalog sound to its audio file path.
func NewLocalFactory(sampleRate int, resolve func(sound.Sound) string) (*LocalFactory, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/4)); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}
	return &LocalFactory{sampleRate: sr, resolve: resolve}, nil
}

// New decodes the sound's clip into a buffer and returns its strategy.
func (f *LocalFactory) New(s sound.Sound) (Strategy, error) {
	path := f.resolve(s)
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open clip: %s", path)
	}
	defer file.Close()

	var streamer beep.StreamCloser
	var format beep.Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(file)
	case ".wav":
		streamer, format, err = wav.Decode(file)
	case ".flac":
		streamer, format, err = flac.Decode(file)
	default:
		return nil, errors.Newf("unsupported clip format: %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode clip: %s", path)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(beep.Format{
		SampleRate:  f.sampleRate,
		NumChannels: 2,
		Precision:   2,
	})
	if format.SampleRate == f.sampleRate {
		buf.Append(streamer)
	} else {
		buf.Append(beep.Resample(4, format.SampleRate, f.sampleRate, streamer))
	}

	zlog.Debug().Msgf("buffered clip: sound=%s samples=%d contiguous=%v", s.Key, buf.Len(), s.IsContiguous)
	return &localStrategy{sound: s, buf: buf}, nil
}

// localStrategy renders one sound through the shared speaker mixer.
type localStrategy struct {
	sound sound.Sound
	buf   *beep.Buffer
	ctrl  *beep.Ctrl
	vol   *effects.Volume
	level float64
}

func (s *localStrategy) Play() {
	speaker.Lock()

	// A paused contiguous loop resumes in place instead of restarting.
	if s.sound.IsContiguous && s.ctrl != nil {
		s.ctrl.Paused = false
		speaker.Unlock()
		return
	}

	// Detach any previous shot before starting a fresh one.
	if s.ctrl != nil {
		s.ctrl.Streamer = nil
	}

	vol := &effects.Volume{Base: 2}
	if s.sound.IsContiguous {
		vol.Streamer = beep.Loop(-1, s.buf.Streamer(0, s.buf.Len()))
	} else {
		vol.Streamer = s.buf.Streamer(0, s.buf.Len())
	}
	applyGain(vol, s.level)

	ctrl := &beep.Ctrl{Streamer: vol}
	s.ctrl, s.vol = ctrl, vol
	speaker.Unlock()

	speaker.Play(ctrl)
}

func (s *localStrategy) Pause() {
	speaker.Lock()
	defer speaker.Unlock()

	if s.ctrl != nil {
		s.ctrl.Paused = true
	}
}

func (s *localStrategy) Stop() {
	speaker.Lock()
	defer speaker.Unlock()

	if s.ctrl != nil {
		s.ctrl.Streamer = nil
		s.ctrl = nil
		s.vol = nil
	}
}

func (s *localStrategy) SetVolume(level float64) {
	speaker.Lock()
	defer speaker.Unlock()

	s.level = level
	if s.vol != nil {
		applyGain(s.vol, level)
	}
}

// applyGain maps a linear level in [0,1] onto the exponential volume scale.
func applyGain(vol *effects.Volume, level float64) {
	if level <= 0 {
		vol.Silent = true
		return
	}
	if level > 1 {
		level = 1
	}
	vol.Silent = false
	vol.Volume = level*2 - 1
}
