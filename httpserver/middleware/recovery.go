/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/restapi"
)

// RecoveryDefaultStackSize is the default size of the logged stack part.
const RecoveryDefaultStackSize = 8192

// RecoveryOpts represents options for the Recovery middleware.
type RecoveryOpts struct {
	StackSize int
}

// Recovery is a middleware that recovers from panics, logs the panic value with a stack trace
// and responds with 500 and an internal error in the JSON body.
func Recovery(errDomain string) func(next http.Handler) http.Handler {
	return RecoveryWithOpts(errDomain, RecoveryOpts{StackSize: RecoveryDefaultStackSize})
}

// RecoveryWithOpts is a more configurable version of Recovery middleware.
func RecoveryWithOpts(errDomain string, opts RecoveryOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				logger := GetLoggerFromContext(r.Context())
				// http.ErrAbortHandler is a sentinel used to abort a response, http.Server handles it silently.
				if p == http.ErrAbortHandler {
					if logger != nil {
						logger.Warn("request has been aborted", log.Error(http.ErrAbortHandler))
					}
					panic(p)
				}
				if logger != nil {
					var fields []log.Field
					if opts.StackSize > 0 {
						stack := make([]byte, opts.StackSize)
						stack = stack[:runtime.Stack(stack, false)]
						fields = append(fields, log.Bytes("stack", stack))
					}
					logger.Error(fmt.Sprintf("Panic: %+v", p), fields...)
				}
				restapi.RespondError(rw, http.StatusInternalServerError, restapi.NewInternalError(errDomain), logger)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
