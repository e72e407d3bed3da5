/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package timing

import "time"

// Debouncer delays the callback until delay has passed without new triggers.
type Debouncer[T any] struct {
	task  *Task[T]
	delay time.Duration
}

// NewDebouncer creates a Debouncer that calls callback with the latest payload
// once delay has elapsed since the last Trigger.
func NewDebouncer[T any](callback func(T), delay time.Duration, opts ...Option) *Debouncer[T] {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer[T]{task: NewTask(callback, opts...), delay: delay}
}

// Trigger cancels the pending call and schedules a new one with payload.
func (d *Debouncer[T]) Trigger(payload T) {
	d.task.Schedule(payload, d.delay)
}

// Pending reports whether a call is waiting for the quiet period.
func (d *Debouncer[T]) Pending() bool {
	return d.task.Pending()
}

// Flush calls the callback right away if a call is pending.
func (d *Debouncer[T]) Flush() bool {
	return d.task.Flush()
}

// Close cancels the pending call. The callback never fires after Close returns.
func (d *Debouncer[T]) Close() {
	d.task.Close()
}
