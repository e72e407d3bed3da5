/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"

	"github.com/acronis/charai-gateway/httpserver/middleware"
)

// RequestIDRoundTripper propagates the id of the incoming request (see middleware.RequestID)
// in the X-Request-ID header of outgoing requests.
type RequestIDRoundTripper struct {
	Delegate http.RoundTripper
}

// NewRequestIDRoundTripper creates a new RequestIDRoundTripper.
func NewRequestIDRoundTripper(delegate http.RoundTripper) http.RoundTripper {
	return &RequestIDRoundTripper{Delegate: delegate}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *RequestIDRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	requestID := middleware.GetRequestIDFromContext(r.Context())
	if requestID == "" || r.Header.Get(middleware.HeaderRequestID) != "" {
		return rt.Delegate.RoundTrip(r)
	}
	r = cloneRequest(r)
	r.Header.Set(middleware.HeaderRequestID, requestID)
	return rt.Delegate.RoundTrip(r)
}
