/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/charai-gateway/restapi"
)

// InFlightLimitErrCode is the error code of responses rejected by the InFlightLimit middleware.
const InFlightLimitErrCode = "tooManyInFlightRequests"

// InFlightLimitOpts represents options for the InFlightLimit middleware.
type InFlightLimitOpts struct {
	// RetryAfter is sent in the Retry-After header of rejected requests when positive.
	RetryAfter time.Duration
	// DryRun logs would-be rejections but serves the request.
	DryRun bool
}

// InFlightLimit is a middleware that limits the number of requests being served at once.
// Requests above the limit are rejected with 503.
func InFlightLimit(limit int, errDomain string, opts InFlightLimitOpts) (func(next http.Handler) http.Handler, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("in-flight limit should be positive, got %d", limit)
	}
	return func(next http.Handler) http.Handler {
		inFlight := atomic.NewInt64(0)
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer inFlight.Dec()
			if inFlight.Inc() <= int64(limit) {
				next.ServeHTTP(rw, r)
				return
			}

			logger := GetLoggerFromContext(r.Context())
			if opts.DryRun {
				if logger != nil {
					logger.Warn("too many in-flight requests, serving will be continued because of dry run mode")
				}
				next.ServeHTTP(rw, r)
				return
			}
			if opts.RetryAfter > 0 {
				rw.Header().Set("Retry-After", strconv.Itoa(int(opts.RetryAfter.Seconds())))
			}
			apiErr := restapi.NewError(errDomain, InFlightLimitErrCode, "Too many in-flight requests.")
			restapi.RespondError(rw, http.StatusServiceUnavailable, apiErr, logger)
		})
	}, nil
}
