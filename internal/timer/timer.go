// Package timer coalesces bursts of change notifications into one call.
package timer

import (
	"sync"
	"time"
)

// Timer calls fn once activity has been quiet for min, but never later than
// max after the first Schedule of a burst. It is safe for concurrent use.
type Timer struct {
	min, max time.Duration
	fn       func()

	mu    sync.Mutex
	timer *time.Timer
	first time.Time
	gen   uint64
	now   func() time.Time
}

// New returns a Timer. max below min is raised to min.
func New(min, max time.Duration, fn func()) *Timer {
	if max < min {
		max = min
	}
	return &Timer{min: min, max: max, fn: fn, now: time.Now}
}

// Schedule (re)arms the timer.
func (t *Timer) Schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.timer == nil {
		t.first = now
	} else {
		t.timer.Stop()
	}
	delay := t.min
	if deadline := t.first.Add(t.max); now.Add(delay).After(deadline) {
		delay = deadline.Sub(now)
		if delay < 0 {
			delay = 0
		}
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(delay, func() { t.fire(gen) })
}

// fire runs fn unless a later Schedule or Cancel superseded gen.
func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.timer == nil {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()
	t.fn()
}

// Pending reports whether a call is scheduled.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Cancel drops any pending call.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

// Flush runs a pending call immediately, on the caller's goroutine. It
// reports whether anything was pending.
func (t *Timer) Flush() bool {
	t.mu.Lock()
	if t.timer == nil {
		t.mu.Unlock()
		return false
	}
	t.timer.Stop()
	t.timer = nil
	t.gen++
	t.mu.Unlock()
	t.fn()
	return true
}
