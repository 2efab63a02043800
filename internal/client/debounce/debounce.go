// Package debounce coalesces bursts of values into the latest one.
//
// A Debouncer is a two-state machine: idle, or pending with exactly one slot
// holding the most recent value and a deadline. Push replaces the slot and
// restarts the deadline; when the deadline passes with no further Push, the
// slot is emitted and the machine returns to idle. Flush and Cancel end the
// pending state early. Time comes from an injected clock.Clock.
package debounce

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/clock"
)

// DefaultWindow is the quiet period used when none is configured.
const DefaultWindow = time.Second

// Debouncer emits only the last value of every burst.
type Debouncer[T any] struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration
	emit   func(T)

	pending T
	has     bool
	timer   clock.Timer
	// gen invalidates timers that fired after being superseded but before
	// Stop could remove them.
	gen    uint64
	closed bool

	// emitting counts emissions started by the timer and not yet returned.
	emitting int
	idle     *sync.Cond
}

// New creates a Debouncer calling emit after window of quiet. A non-positive
// window falls back to DefaultWindow. emit runs on the timer's goroutine, or
// on the caller's goroutine for Flush.
func New[T any](c clock.Clock, window time.Duration, emit func(T)) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	d := &Debouncer[T]{clock: c, window: window, emit: emit}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Push stores v as the pending value, discarding any earlier pending value,
// and restarts the quiet window.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.pending, d.has = v, true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(gen) })
}

// Flush emits the pending value immediately. It reports whether there was one.
// With nothing pending, Flush first waits for a timer emission that is
// already running, so on return the last pushed value has been applied.
// It must not be called from emit.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.has || d.closed {
		for d.emitting > 0 {
			d.idle.Wait()
		}
		d.mu.Unlock()
		return false
	}
	v := d.take()
	d.mu.Unlock()

	d.emit(v)
	return true
}

// Cancel drops the pending value without emitting it.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.has {
		return false
	}
	d.take()
	return true
}

// Pending returns the value waiting to be emitted, if any.
func (d *Debouncer[T]) Pending() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.has
}

// Close drops any pending value; later Push calls are ignored.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.take()
	d.closed = true
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.has || d.closed {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.emitting++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.emitting--
		d.idle.Broadcast()
		d.mu.Unlock()
	}()
	d.emit(v)
}

// take clears the slot and stops the timer. Callers hold d.mu.
func (d *Debouncer[T]) take() T {
	v := d.pending
	var zero T
	d.pending, d.has = zero, false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	return v
}
