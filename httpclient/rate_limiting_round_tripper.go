/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default values of the client-side rate limiting config.
const (
	DefaultRateLimitingBurst       = 1
	DefaultRateLimitingWaitTimeout = 15 * time.Second
)

var errNoFreeSlot = errors.New("no free slot")

// rateLimitingRoundTripper keeps outgoing requests of one type under a requests-per-second budget,
// so the gateway doesn't get banned by the upstream for bursts of its own clients.
type rateLimitingRoundTripper struct {
	delegate    http.RoundTripper
	reqType     string
	limiter     *rate.Limiter
	waitTimeout time.Duration
}

func newRateLimitingRoundTripper(delegate http.RoundTripper, reqType string, cfg RateLimitConfig) (http.RoundTripper, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", cfg.Limit)
	}
	if cfg.WaitTimeout < 0 {
		return nil, fmt.Errorf("wait timeout must not be negative, got %s", cfg.WaitTimeout)
	}
	return &rateLimitingRoundTripper{
		delegate:    delegate,
		reqType:     reqType,
		limiter:     rate.NewLimiter(rate.Limit(cfg.Limit), max(cfg.Burst, 1)),
		waitTimeout: cfg.WaitTimeout,
	}, nil
}

// RoundTrip waits for a free slot at most waitTimeout and then passes the request on.
func (rt *rateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := rt.wait(r.Context()); err != nil {
		if r.Body != nil {
			_ = r.Body.Close() // Per RoundTripper contract.
		}
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &RateLimitingWaitError{RequestType: rt.reqType, WaitTimeout: rt.waitTimeout, Inner: err}
	}
	return rt.delegate.RoundTrip(r)
}

func (rt *rateLimitingRoundTripper) wait(ctx context.Context) error {
	if rt.waitTimeout == 0 {
		if !rt.limiter.Allow() {
			return errNoFreeSlot
		}
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, rt.waitTimeout)
	defer cancel()
	return rt.limiter.Wait(waitCtx)
}

// RateLimitingWaitError is returned when an outgoing request could not get a slot in time.
type RateLimitingWaitError struct {
	RequestType string
	WaitTimeout time.Duration
	Inner       error
}

func (e *RateLimitingWaitError) Error() string {
	return fmt.Sprintf("%s request is rate limited on the client side (waited at most %s): %v",
		e.RequestType, e.WaitTimeout, e.Inner)
}

// Unwrap returns the next error in the error chain.
func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}
