package cast

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/quietfall/quietfall/internal/app/strategy"
	"github.com/quietfall/quietfall/internal/domain/sound"
)

var ErrNoReceiver = errors.New("no cast receiver configured")

// Sink receives the strategy factory for the current output route.
type Sink interface {
	SetStrategyFactory(f strategy.Factory)
}

// RouteProvider switches the attached sink between the local output and a
// cast receiver. OnRouteBegin/OnRouteEnd mirror the receiver session
// lifecycle.
type RouteProvider struct {
	mu sync.Mutex

	local       strategy.Factory
	receiverURL string
	timeout     time.Duration
	resolve     func(sound.Sound) string

	sink   Sink
	active bool
}

// NewRouteProvider creates a route provider. receiverURL may be empty, in
// which case OnRouteBegin fails with ErrNoReceiver.
func NewRouteProvider(local strategy.Factory, receiverURL string, timeout time.Duration, resolve func(sound.Sound) string) *RouteProvider {
	return &RouteProvider{
		local:       local,
		receiverURL: receiverURL,
		timeout:     timeout,
		resolve:     resolve,
	}
}

// Attach registers the sink and hands it the local factory.
func (r *RouteProvider) Attach(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sink = sink
	sink.SetStrategyFactory(r.local)
}

// OnRouteBegin switches the sink to the cast receiver.
func (r *RouteProvider) OnRouteBegin() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.receiverURL == "" {
		return ErrNoReceiver
	}
	if r.sink == nil {
		return errors.New("no sink attached")
	}
	if r.active {
		return nil
	}

	client := NewClient(r.receiverURL, r.timeout)
	r.sink.SetStrategyFactory(NewFactory(client, r.resolve))
	r.active = true
	zlog.Info().Msgf("output route switched to receiver: url=%s", r.receiverURL)
	return nil
}

// OnRouteEnd switches the sink back to the local output.
func (r *RouteProvider) OnRouteEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active || r.sink == nil {
		return
	}
	r.sink.SetStrategyFactory(r.local)
	r.active = false
	zlog.Info().Msg("output route switched to local speaker")
}

// Active reports whether the receiver route is in use.
func (r *RouteProvider) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
