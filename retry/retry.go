/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations with backoff. It is used for writes to the settings storage.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/charai-gateway/log"
)

// IsRetryable tells if the error is transient and the operation may be repeated.
type IsRetryable func(error) bool

// RetryableFunc does some work that may be retried.
type RetryableFunc func(ctx context.Context) error

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// DoWithRetry executes fn according to policy p until it succeeds, ctx is done or attempts are over.
// isRetryable may be nil, then every error is retried.
// notify (may be nil) is called before every retry with the error and the backoff delay.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, bctx, notify)
}

// LogNotify returns a backoff.Notify that logs every retry attempt as a warning.
func LogNotify(logger log.FieldLogger, msg string) backoff.Notify {
	return func(err error, delay time.Duration) {
		logger.Warn(msg, log.Error(err), log.Duration("retry_in", delay))
	}
}

// PolicyFunc is an adapter to allow the use of ordinary functions as Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// ExponentialBackoffPolicy repeats up to maxAttempts times with exponentially growing delays.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxAttempts     int
}

// NewExponentialBackoffPolicy returns an exponential policy. Zero maxRetryAttempts means no limit.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetryAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval: initialInterval, maxAttempts: maxRetryAttempts}
}

// WithMaxInterval returns a copy of the policy with the delay capped by maxInterval.
func (p ExponentialBackoffPolicy) WithMaxInterval(maxInterval time.Duration) ExponentialBackoffPolicy {
	p.maxInterval = maxInterval
	return p
}

// NewBackOff implements Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	if p.maxInterval > 0 {
		eb.MaxInterval = p.maxInterval
	}
	return withMaxRetries(eb, p.maxAttempts)
}

// ConstantBackoffPolicy repeats up to maxAttempts times with a constant delay.
type ConstantBackoffPolicy struct {
	interval    time.Duration
	maxAttempts int
}

// NewConstantBackoffPolicy returns a constant policy. Zero maxRetryAttempts means no limit.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval, maxRetryAttempts}
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return withMaxRetries(backoff.NewConstantBackOff(p.interval), p.maxAttempts)
}

func withMaxRetries(b backoff.BackOff, maxAttempts int) backoff.BackOff {
	if maxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxAttempts))
	}
	b.Reset()
	return b
}
