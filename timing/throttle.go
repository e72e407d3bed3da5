/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package timing

import (
	"sync"
	"time"
)

// Throttler coalesces a burst of triggers into a single delivery of the most recent payload.
//
// Payloads are kept in a single slot that every Trigger overwrites; they are never queued.
// Each Trigger also re-arms the delivery timer, so the callback fires delay after
// the last trigger of a burst (trailing edge).
type Throttler[T any] struct {
	callback func(T)
	delay    time.Duration
	task     *Task[struct{}]

	mu   sync.Mutex
	slot *T
}

// NewThrottler creates a new Throttler.
func NewThrottler[T any](callback func(T), delay time.Duration, opts ...Option) *Throttler[T] {
	if delay < 0 {
		delay = 0
	}
	th := &Throttler[T]{callback: callback, delay: delay}
	th.task = NewTask(th.deliver, opts...)
	return th
}

// Trigger stores payload in the pending slot and re-arms delivery.
func (th *Throttler[T]) Trigger(payload T) {
	th.mu.Lock()
	th.slot = &payload
	th.mu.Unlock()
	th.task.Schedule(struct{}{}, th.delay)
}

// Pending reports whether a payload is waiting for delivery.
func (th *Throttler[T]) Pending() bool {
	return th.task.Pending()
}

// Flush delivers the pending payload immediately and reports whether there was one.
func (th *Throttler[T]) Flush() bool {
	return th.task.Flush()
}

// Close cancels the pending delivery and drops the stored payload.
func (th *Throttler[T]) Close() {
	th.task.Close()
	th.mu.Lock()
	th.slot = nil
	th.mu.Unlock()
}

func (th *Throttler[T]) deliver(struct{}) {
	th.mu.Lock()
	slot := th.slot
	th.slot = nil
	th.mu.Unlock()
	if slot != nil {
		th.callback(*slot)
	}
}
