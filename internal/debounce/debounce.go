// Package debounce coalesces bursts of calls into a single delayed call.
//
// A Debouncer wraps a function so that repeated calls within the delay
// collapse into one invocation, executed delay after the last call with the
// argument of that last call. Intermediate arguments are discarded, never
// queued.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delays and coalesces calls to fn.
type Debouncer[T any] struct {
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	arg     T
	gen     uint64
	pending bool
	stopped bool
	mutex   sync.Mutex
}

// New returns a Debouncer that invokes fn delay after the last Call.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if fn == nil {
		panic("debounce: nil function")
	}
	return &Debouncer[T]{
		delay: delay,
		fn:    fn,
	}
}

// Call schedules fn(arg), replacing any pending call and restarting the timer.
func (d *Debouncer[T]) Call(arg T) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}

	d.arg = arg
	d.pending = true
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush runs a pending call immediately on the caller's goroutine.
// It reports whether a call was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mutex.Lock()
	if !d.pending || d.stopped {
		d.mutex.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	arg := d.take()
	d.mutex.Unlock()

	d.fn(arg)
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.pending
}

// Stop drops any pending call. Calls made after Stop are ignored.
func (d *Debouncer[T]) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.arg = zero
}

// fire ignores timers superseded by a later Call whose Stop raced the expiry.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mutex.Lock()
	if !d.pending || d.stopped || gen != d.gen {
		d.mutex.Unlock()
		return
	}
	arg := d.take()
	d.mutex.Unlock()

	d.fn(arg)
}

// take must be called with the mutex held.
func (d *Debouncer[T]) take() T {
	arg := d.arg
	var zero T
	d.arg = zero
	d.pending = false
	d.timer = nil
	return arg
}

// Trigger is the zero-argument form of Debouncer.
type Trigger struct {
	d *Debouncer[struct{}]
}

// Func returns a Trigger that invokes fn delay after the last Fire.
func Func(delay time.Duration, fn func()) *Trigger {
	if fn == nil {
		panic("debounce: nil function")
	}
	return &Trigger{d: New(delay, func(struct{}) { fn() })}
}

// Fire schedules fn, restarting the timer.
func (t *Trigger) Fire() { t.d.Call(struct{}{}) }

// Flush runs a pending call immediately.
func (t *Trigger) Flush() bool { return t.d.Flush() }

// Pending reports whether a call is scheduled.
func (t *Trigger) Pending() bool { return t.d.Pending() }

// Stop drops any pending call.
func (t *Trigger) Stop() { t.d.Stop() }
