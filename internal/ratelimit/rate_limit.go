/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/acronis/charai-gateway/lrucache"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Alg is a rate-limiting algorithm.
type Alg string

// Supported algorithms.
const (
	AlgLeakyBucket   Alg = "leakyBucket"
	AlgSlidingWindow Alg = "slidingWindow"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// LimiterFunc is an adapter to use a function as a Limiter.
type LimiterFunc func(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)

// Allow calls f(ctx, key).
func (f LimiterFunc) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	return f(ctx, key)
}

// Opts configures NewLimiter.
type Opts struct {
	Alg      Alg
	MaxBurst int
	// MaxKeys bounds the number of tracked keys. Zero means a single global limiter.
	MaxKeys int
	// KeysMetrics collects statistics of the keys cache used by the sliding window limiter.
	KeysMetrics lrucache.MetricsCollector
	// Clock drives the leaky bucket. clockz.RealClock is used when nil.
	Clock clockz.Clock
}

// NewLimiter creates a limiter for the selected algorithm.
func NewLimiter(maxRate Rate, opts Opts) (Limiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %d per %s", maxRate.Count, maxRate.Duration)
	}
	switch opts.Alg {
	case AlgLeakyBucket, "":
		clock := opts.Clock
		if clock == nil {
			clock = clockz.RealClock
		}
		return newLeakyBucket(maxRate, opts.MaxBurst, opts.MaxKeys, clock)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(maxRate, opts.MaxKeys, opts.KeysMetrics)
	}
	return nil, fmt.Errorf("unknown rate limit alg %q", opts.Alg)
}
