package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// changeRecorder collects the focus changes delivered to one holder.
type changeRecorder struct {
	mu      sync.Mutex
	changes []FocusChange
}

func (r *changeRecorder) handle(c FocusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) has(want FocusChange) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c == want {
			return true
		}
	}
	return false
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestLocalArbiter_DisplacedReleaseLeavesHolderUntouched(t *testing.T) {
	arb := NewLocalArbiter()
	a, b, c := &changeRecorder{}, &changeRecorder{}, &changeRecorder{}

	resA, releaseA := arb.Request(UsageMedia, a.handle)
	require.Equal(t, FocusGranted, resA)
	resB, _ := arb.Request(UsageMedia, b.handle)
	require.Equal(t, FocusGranted, resB)
	waitFor(t, func() bool { return a.has(FocusLoss) })

	// A was displaced by B; A going away must not disturb B's focus.
	releaseA()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, b.count(), "live holder hears nothing when a displaced holder releases")

	// The next requester displaces B: B always receives its Loss.
	resC, _ := arb.Request(UsageMedia, c.handle)
	require.Equal(t, FocusGranted, resC)
	waitFor(t, func() bool { return b.has(FocusLoss) })

	// A left the stack on release, so it never gets a stale Gain back.
	assert.False(t, a.has(FocusGain))
}

func TestLocalArbiter_ReleaseRestoresDisplacedHolder(t *testing.T) {
	arb := NewLocalArbiter()
	a, b := &changeRecorder{}, &changeRecorder{}

	_, _ = arb.Request(UsageMedia, a.handle)
	_, releaseB := arb.Request(UsageMedia, b.handle)
	waitFor(t, func() bool { return a.has(FocusLoss) })

	releaseB()
	waitFor(t, func() bool { return a.has(FocusGain) })

	// Releasing an already-released claim is a no-op.
	releaseB()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, a.count(), "exactly one Loss and one Gain")
}

func TestLocalArbiter_AlarmDisplacesTransiently(t *testing.T) {
	arb := NewLocalArbiter()
	a, alarm := &changeRecorder{}, &changeRecorder{}

	_, _ = arb.Request(UsageMedia, a.handle)
	_, releaseAlarm := arb.Request(UsageAlarm, alarm.handle)
	waitFor(t, func() bool { return a.has(FocusLossTransient) })

	releaseAlarm()
	waitFor(t, func() bool { return a.has(FocusGain) })
}

// Three managers sharing one arbiter: after a displaced manager stops, the
// live holder keeps exclusive playback and still hears about losing it.
func TestManager_SharedArbiterExclusivePlayback(t *testing.T) {
	arb := NewLocalArbiter()
	newShared := func() (*Manager, *fakeFactory) {
		factory := newFakeFactory()
		m := NewManager(Config{}, newFakeCatalog(contiguous("rain")),
			&fakePresets{}, &fakeRandom{}, arb, factory)
		return m, factory
	}
	mgrA, _ := newShared()
	mgrB, factB := newShared()
	mgrC, factC := newShared()

	require.NoError(t, mgrA.Play("rain"))
	require.NoError(t, mgrB.Play("rain"))
	waitFor(t, func() bool { return mgrA.State() == StatePaused })
	require.Equal(t, StatePlaying, mgrB.State())

	mgrA.Stop()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatePlaying, mgrB.State(), "a displaced manager stopping leaves the holder playing")

	require.NoError(t, mgrC.Play("rain"))
	waitFor(t, func() bool { return mgrB.State() == StatePaused })
	assert.Equal(t, StatePlaying, mgrC.State())

	// Only one manager ever rendered at a time.
	assert.Equal(t, 1, factB.last("rain").playCount())
	assert.Equal(t, 1, factC.last("rain").playCount())
}
