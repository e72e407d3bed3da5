/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/vasayxtx/go-glob"

	"github.com/acronis/charai-gateway/internal/ratelimit"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/lrucache"
	"github.com/acronis/charai-gateway/restapi"
)

// DefaultRateLimitMaxKeys is the default number of tracked client keys.
const DefaultRateLimitMaxKeys = 10000

// RateLimitLogFieldKey is the log field holding the rate-limiting key.
const RateLimitLogFieldKey = "rate_limit_key"

// Rate describes the frequency of requests.
type Rate = ratelimit.Rate

// RateLimitGetKeyFunc returns the key requests are limited by. bypass == true skips limiting.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool, err error)

// RateLimitOpts represents options for the RateLimit middleware.
type RateLimitOpts struct {
	Alg      ratelimit.Alg
	MaxBurst int
	// GetKey selects per-client limiting; nil means one global limit.
	GetKey RateLimitGetKeyFunc
	// ExcludedKeys are glob patterns ("10.0.*", "127.0.0.1") of keys that are never limited. Requires GetKey.
	ExcludedKeys []string
	MaxKeys      int
	// ResponseStatusCode is used for rejected requests, 503 by default.
	ResponseStatusCode int
	DryRun             bool
	// KeysMetrics collects statistics of the per-key cache (sliding window only).
	KeysMetrics lrucache.MetricsCollector
}

// RateLimit is a middleware that limits the rate of HTTP requests.
func RateLimit(maxRate Rate, errDomain string, opts RateLimitOpts) (func(next http.Handler) http.Handler, error) {
	if len(opts.ExcludedKeys) != 0 {
		if opts.GetKey == nil {
			return nil, fmt.Errorf("excluded keys cannot be used without a key getter")
		}
		opts.GetKey = RateLimitKeyExcluding(opts.GetKey, opts.ExcludedKeys)
	}
	limiterOpts := ratelimit.Opts{Alg: opts.Alg, MaxBurst: opts.MaxBurst, KeysMetrics: opts.KeysMetrics}
	if opts.GetKey != nil {
		limiterOpts.MaxKeys = opts.MaxKeys
		if limiterOpts.MaxKeys == 0 {
			limiterOpts.MaxKeys = DefaultRateLimitMaxKeys
		}
	}
	limiter, err := ratelimit.NewLimiter(maxRate, limiterOpts)
	if err != nil {
		return nil, fmt.Errorf("new rate limiter: %w", err)
	}
	respStatusCode := opts.ResponseStatusCode
	if respStatusCode == 0 {
		respStatusCode = http.StatusServiceUnavailable
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			logger := GetLoggerFromContext(r.Context())

			var key string
			if opts.GetKey != nil {
				var bypass bool
				var keyErr error
				if key, bypass, keyErr = opts.GetKey(r); keyErr != nil {
					if logger != nil {
						logger.Error("get rate limiting key", log.Error(keyErr))
					}
					restapi.RespondInternalError(rw, errDomain, logger)
					return
				}
				if bypass {
					next.ServeHTTP(rw, r)
					return
				}
			}

			allow, retryAfter, allowErr := limiter.Allow(r.Context(), key)
			if allowErr != nil {
				if logger != nil {
					logger.Error("rate limiting failed", log.Error(allowErr), log.String(RateLimitLogFieldKey, key))
				}
				restapi.RespondInternalError(rw, errDomain, logger)
				return
			}
			if allow {
				next.ServeHTTP(rw, r)
				return
			}

			if logger != nil {
				logger = logger.With(log.String(RateLimitLogFieldKey, key), log.String(userAgentLogFieldKey, r.UserAgent()))
			}
			if opts.DryRun {
				if logger != nil {
					logger.Warn("too many requests, serving will be continued because of dry run mode")
				}
				next.ServeHTTP(rw, r)
				return
			}
			rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			apiErr := restapi.NewError(errDomain, restapi.ErrCodeTooManyRequests, "")
			restapi.RespondError(rw, respStatusCode, apiErr, logger)
		})
	}, nil
}

// RateLimitKeyByClientIP limits requests per client address. Proxy headers take precedence over the peer address.
func RateLimitKeyByClientIP(r *http.Request) (key string, bypass bool, err error) {
	if origin := getOriginAddr(r); origin != "" {
		return origin, false, nil
	}
	host, _, splitErr := net.SplitHostPort(r.RemoteAddr)
	if splitErr != nil {
		return r.RemoteAddr, false, nil
	}
	return host, false, nil
}

// RateLimitKeyExcluding wraps getKey so that keys matching any of the glob patterns bypass limiting.
func RateLimitKeyExcluding(getKey RateLimitGetKeyFunc, patterns []string) RateLimitGetKeyFunc {
	matchers := make([]func(s string) bool, 0, len(patterns))
	for _, pattern := range patterns {
		matchers = append(matchers, glob.Compile(pattern))
	}
	return func(r *http.Request) (string, bool, error) {
		key, bypass, err := getKey(r)
		if err != nil || bypass {
			return key, bypass, err
		}
		for _, match := range matchers {
			if match(key) {
				return key, true, nil
			}
		}
		return key, false, nil
	}
}
