package engine

import (
	"context"
	"time"
)

// schedule runs fn after d unless the returned cancel function is called
// first. Cancellation after fn has started is a no-op.
func schedule(d time.Duration, fn func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		t := time.NewTimer(d)
		defer t.Stop()

		select {
		case <-ctx.Done():
		case <-t.C:
			fn()
		}
	}()

	return cancel
}
