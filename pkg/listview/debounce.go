package listview

import (
	"sync"
	"time"
)

// Timer is a cancellable handle for a delayed call.
type Timer interface {
	// Stop prevents the call from running. It reports false if the call
	// already ran or was already stopped.
	Stop() bool
}

// Clock schedules delayed calls.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by time.AfterFunc.
func RealClock() Clock { return realClock{} }

// Debouncer runs only the last of a burst of triggered calls, once delay has
// passed without another trigger. It owns at most one pending timer.
type Debouncer struct {
	mu     sync.Mutex
	clock  Clock
	delay  time.Duration
	timer  Timer
	gen    uint64
	closed bool
}

func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger schedules fn and discards any call still pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopLocked()

	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		if d.closed || d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel discards the pending call. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Close cancels the pending call. Later triggers are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.closed = true
}

// stopLocked discards the pending call. A timer that already fired but has not
// yet taken d.mu sees the bumped generation and skips fn, so it counts as
// discarded even when Stop reports false.
func (d *Debouncer) stopLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}
