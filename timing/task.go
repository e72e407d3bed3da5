/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package timing provides deferred, cancellable callbacks: a single-slot scheduled Task
// and the Debouncer and Throttler built on top of it.
package timing

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Option configures a Task, Debouncer or Throttler.
type Option func(*options)

type options struct {
	clock clockz.Clock
}

// WithClock sets the clock used for scheduling. clockz.RealClock is used by default.
func WithClock(clock clockz.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func makeOptions(opts []Option) options {
	o := options{clock: clockz.RealClock}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Task is a handle of a deferred callback invocation.
// At most one invocation is pending at any time: scheduling a new one cancels the previous.
type Task[T any] struct {
	fn    func(T)
	clock clockz.Clock

	mu      sync.Mutex
	timer   clockz.Timer // non-nil while an invocation is pending
	seq     uint64       // identifies the latest scheduled invocation
	payload T
	closed  bool
}

// NewTask creates a new Task that calls fn when a scheduled invocation fires.
func NewTask[T any](fn func(T), opts ...Option) *Task[T] {
	o := makeOptions(opts)
	return &Task[T]{fn: fn, clock: o.clock}
}

// Schedule cancels the pending invocation (if any) and arms a new one that calls fn(payload) after delay.
// Negative delay is treated as zero. Schedule does nothing after Close.
func (t *Task[T]) Schedule(payload T, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.cancelLocked()

	t.seq++
	seq := t.seq
	t.payload = payload
	// The clock may run timer callbacks under its own lock, so fn is called from a separate goroutine.
	t.timer = t.clock.AfterFunc(delay, func() { go t.fire(seq) })
}

func (t *Task[T]) fire(seq uint64) {
	t.mu.Lock()
	if t.timer == nil || t.seq != seq {
		// Cancelled or rescheduled while the timer was firing.
		t.mu.Unlock()
		return
	}
	payload := t.takeLocked()
	t.mu.Unlock()

	t.fn(payload)
}

// Cancel disarms the pending invocation. It reports whether there was one.
func (t *Task[T]) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelLocked()
}

// Flush runs the pending invocation immediately in the calling goroutine.
// It reports whether there was one.
func (t *Task[T]) Flush() bool {
	t.mu.Lock()
	if t.timer == nil {
		t.mu.Unlock()
		return false
	}
	t.timer.Stop()
	payload := t.takeLocked()
	t.mu.Unlock()

	t.fn(payload)
	return true
}

// Pending reports whether an invocation is scheduled and has not fired yet.
func (t *Task[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Close cancels the pending invocation and makes further Schedule calls no-ops.
// Once Close returns, fn is never called for an invocation that had not started yet.
func (t *Task[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.closed = true
}

func (t *Task[T]) cancelLocked() bool {
	if t.timer == nil {
		return false
	}
	t.timer.Stop()
	t.takeLocked()
	return true
}

func (t *Task[T]) takeLocked() T {
	var zero T
	payload := t.payload
	t.payload = zero
	t.timer = nil
	return payload
}
