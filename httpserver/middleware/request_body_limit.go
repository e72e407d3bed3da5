/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/acronis/charai-gateway/restapi"
)

// RequestBodyLimit is a middleware that limits the size of request bodies.
// Requests that declare a larger Content-Length are rejected with 413 at once;
// bodies without a declared length fail on read once maxSizeBytes is exceeded.
func RequestBodyLimit(maxSizeBytes uint64, errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.ContentLength > int64(maxSizeBytes) { //nolint:gosec // configured value is small
				restapi.RespondMalformedRequestError(rw, errDomain,
					restapi.NewTooLargeMalformedRequestError(maxSizeBytes), GetLoggerFromContext(r.Context()))
				return
			}
			r.Body = http.MaxBytesReader(rw, r.Body, int64(maxSizeBytes)) //nolint:gosec // configured value is small
			next.ServeHTTP(rw, r)
		})
	}
}
