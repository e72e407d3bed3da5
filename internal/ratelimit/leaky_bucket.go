/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
	"github.com/zoobzio/clockz"
)

// globalKey replaces request keys when the limiter does not track clients separately.
const globalKey = "*"

// newLeakyBucket builds a GCRA (Generic Cell Rate Algorithm) limiter, a leaky bucket variant,
// on throttled's in-memory store. The store remembers at most maxKeys clients, least recently seen are evicted.
// With maxKeys == 0 all requests share one bucket.
func newLeakyBucket(maxRate Rate, maxBurst, maxKeys int, clock clockz.Clock) (LimiterFunc, error) {
	storeSize := maxKeys
	if maxKeys == 0 {
		storeSize = 1
	}
	store, err := memstore.New(storeSize)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	store.SetTimeNow(clock.Now)

	gcra, err := throttled.NewGCRARateLimiterCtx(throttled.WrapStoreWithContext(store), throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRate.Count, maxRate.Duration),
		MaxBurst: maxBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}

	return func(ctx context.Context, key string) (bool, time.Duration, error) {
		if maxKeys == 0 {
			key = globalKey
		}
		limited, res, err := gcra.RateLimitCtx(ctx, key, 1)
		if err != nil {
			return false, 0, fmt.Errorf("leaky bucket for key %q: %w", key, err)
		}
		return !limited, res.RetryAfter, nil
	}, nil
}
