/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/rs/xid"
)

// Request id headers.
const (
	HeaderRequestID         = "X-Request-ID"
	HeaderInternalRequestID = "X-Int-Request-ID"
)

// RequestIDOpts represents options for the RequestID middleware.
type RequestIDOpts struct {
	GenerateID         func() string
	GenerateInternalID func() string
}

func newXID() string {
	return xid.New().String()
}

// RequestID is a middleware that takes the X-Request-ID header (or generates one when it is empty)
// and additionally generates an internal request id.
// Both ids are stored in the request context and echoed in X-Request-ID and X-Int-Request-ID response headers.
func RequestID() func(next http.Handler) http.Handler {
	return RequestIDWithOpts(RequestIDOpts{})
}

// RequestIDWithOpts is a more configurable version of RequestID middleware.
func RequestIDWithOpts(opts RequestIDOpts) func(next http.Handler) http.Handler {
	if opts.GenerateID == nil {
		opts.GenerateID = newXID
	}
	if opts.GenerateInternalID == nil {
		opts.GenerateInternalID = newXID
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = opts.GenerateID()
			}
			internalRequestID := opts.GenerateInternalID()

			rw.Header().Set(HeaderRequestID, requestID)
			rw.Header().Set(HeaderInternalRequestID, internalRequestID)

			ctx := NewContextWithInternalRequestID(NewContextWithRequestID(r.Context(), requestID), internalRequestID)
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}
