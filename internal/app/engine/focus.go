package engine

import (
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// FocusResult is the synchronous outcome of a focus request.
type FocusResult int

const (
	FocusGranted FocusResult = iota // Focus held, start playback now
	FocusDelayed                    // Focus will arrive via an async Gain
	FocusFailed                     // Focus denied
)

// String returns the string representation of the result.
func (r FocusResult) String() string {
	switch r {
	case FocusGranted:
		return "granted"
	case FocusDelayed:
		return "delayed"
	case FocusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FocusChange is an asynchronous focus event delivered to the holder.
type FocusChange int

const (
	FocusGain          FocusChange = iota // Focus (re)acquired
	FocusLoss                             // Focus lost permanently
	FocusLossTransient                    // Focus lost briefly, expect a Gain
)

// String returns the string representation of the change.
func (c FocusChange) String() string {
	switch c {
	case FocusGain:
		return "gain"
	case FocusLoss:
		return "loss"
	case FocusLossTransient:
		return "loss_transient"
	default:
		return "unknown"
	}
}

// ChangeHandler receives asynchronous focus changes.
type ChangeHandler func(FocusChange)

// ReleaseFunc abandons the claim created by the Request that returned it.
// Releasing an already-released claim is a no-op.
type ReleaseFunc func()

// Arbiter mediates access to the shared audio output. Request returns the
// immediate outcome plus the release handle for this claim; later changes
// arrive through the handler. Handlers are invoked asynchronously, never
// inside Request or a release.
type Arbiter interface {
	Request(usage Usage, h ChangeHandler) (FocusResult, ReleaseFunc)
}

// holder is one registered focus holder of the local arbiter.
type holder struct {
	usage   Usage
	handler ChangeHandler
}

// LocalArbiter grants exclusive focus among in-process holders. The newest
// requester displaces the current holder; when it abandons, the displaced
// holder gets focus back through an async Gain. Alarm usage displaces with
// a transient loss since alarms are expected to be brief.
type LocalArbiter struct {
	mu        sync.Mutex
	current   *holder
	displaced []*holder
}

// NewLocalArbiter creates a new local arbiter.
func NewLocalArbiter() *LocalArbiter {
	return &LocalArbiter{}
}

// Request grants focus to the caller, displacing the current holder. The
// returned release handle abandons exactly this claim, whether it is the
// live holder or sitting on the displaced stack by then.
func (a *LocalArbiter) Request(usage Usage, h ChangeHandler) (FocusResult, ReleaseFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev := a.current; prev != nil {
		change := FocusLoss
		if usage == UsageAlarm {
			change = FocusLossTransient
		}
		a.displaced = append(a.displaced, prev)
		go prev.handler(change)
		zlog.Debug().Msgf("focus displaced: change=%s new_usage=%s", change, usage)
	}

	hold := &holder{usage: usage, handler: h}
	a.current = hold
	return FocusGranted, func() { a.release(hold) }
}

// release abandons one claim. Releasing the live holder restores the most
// recently displaced one with a Gain; releasing a displaced holder only
// drops it from the stack and never touches the live holder.
func (a *LocalArbiter) release(hold *holder) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == hold {
		a.current = nil
		if n := len(a.displaced); n > 0 {
			restored := a.displaced[n-1]
			a.displaced = a.displaced[:n-1]
			a.current = restored
			go restored.handler(FocusGain)
			zlog.Debug().Msg("focus restored to displaced holder")
		}
		return
	}

	for i, d := range a.displaced {
		if d == hold {
			a.displaced = append(a.displaced[:i], a.displaced[i+1:]...)
			return
		}
	}
}
