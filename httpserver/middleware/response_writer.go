/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// WrapResponseWriter is a proxy around http.ResponseWriter that remembers the status code and the number of written bytes.
type WrapResponseWriter = chimw.WrapResponseWriter

// WrapResponseWriterIfNeeded wraps rw unless it is already wrapped by an outer middleware.
func WrapResponseWriterIfNeeded(rw http.ResponseWriter, protoMajor int) WrapResponseWriter {
	if wrw, ok := rw.(WrapResponseWriter); ok {
		return wrw
	}
	return chimw.NewWrapResponseWriter(rw, protoMajor)
}

// responseStatus returns the status written so far. chi reports 0 when the handler wrote nothing.
func responseStatus(wrw WrapResponseWriter) int {
	if status := wrw.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}

// RoutePatternGetterFunc returns the route pattern of the request, e.g. "/api/v1/settings/{key}".
type RoutePatternGetterFunc func(r *http.Request) string
