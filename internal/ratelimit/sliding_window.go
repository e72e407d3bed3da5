/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/acronis/charai-gateway/lrucache"
)

// SlidingWindowLimiter implements the sliding window algorithm with one window per key.
type SlidingWindowLimiter struct {
	maxRate    Rate
	getLimiter func(key string) *slidingwindow.Limiter
}

// NewSlidingWindowLimiter creates a sliding window limiter.
// Per-key windows are kept in an LRU cache of maxKeys entries; maxKeys == 0 means one global window.
func NewSlidingWindowLimiter(
	maxRate Rate, maxKeys int, keysMetrics lrucache.MetricsCollector,
) (*SlidingWindowLimiter, error) {
	newWindowLimiter := func() *slidingwindow.Limiter {
		lim, _ := slidingwindow.NewLimiter(maxRate.Duration, int64(maxRate.Count),
			func() (slidingwindow.Window, slidingwindow.StopFunc) {
				return slidingwindow.NewLocalWindow()
			})
		return lim
	}

	if maxKeys == 0 {
		global := newWindowLimiter()
		return &SlidingWindowLimiter{
			maxRate:    maxRate,
			getLimiter: func(string) *slidingwindow.Limiter { return global },
		}, nil
	}

	keys, err := lrucache.New[string, *slidingwindow.Limiter](maxKeys, keysMetrics)
	if err != nil {
		return nil, fmt.Errorf("new LRU cache for rate limiting keys: %w", err)
	}
	return &SlidingWindowLimiter{
		maxRate: maxRate,
		getLimiter: func(key string) *slidingwindow.Limiter {
			lim, _ := keys.GetOrAdd(key, newWindowLimiter)
			return lim
		},
	}, nil
}

// Allow implements Limiter.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	if l.getLimiter(key).Allow() {
		return true, 0, nil
	}
	now := time.Now()
	return false, now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now), nil
}
