package focus

import (
	"sync"
	"time"
)

// DefaultSettleDelay is how long a tap-focused window is kept before focus
// returns to continuous mode
const DefaultSettleDelay = 3000 * time.Millisecond

// SettleTimer is a one-shot timer where scheduling replaces any pending run.
type SettleTimer struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// Schedule cancels any pending callback and runs fn after delay
func (t *SettleTimer) Schedule(delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
	generation := t.generation

	t.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.generation != generation {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.mu.Unlock()

		fn()
	})
}

// Cancel drops the pending callback, reporting whether one was pending
func (t *SettleTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.timer != nil
	t.stopLocked()
	t.generation++
	return pending
}

// Pending reports whether a callback is scheduled and has not started yet
func (t *SettleTimer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *SettleTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
