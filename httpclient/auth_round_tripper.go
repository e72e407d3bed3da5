/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
)

// AuthProvider returns the value of the Authorization header, e.g. "Token abc".
// An empty value means the request goes without authorization.
type AuthProvider interface {
	GetAuthorization(ctx context.Context) (string, error)
}

// AuthProviderFunc is an adapter to use ordinary functions as AuthProvider.
type AuthProviderFunc func(ctx context.Context) (string, error)

// GetAuthorization calls f(ctx).
func (f AuthProviderFunc) GetAuthorization(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticAuth returns an AuthProvider that always uses "<scheme> <credentials>".
// Empty credentials disable the header.
func StaticAuth(scheme, credentials string) AuthProvider {
	return AuthProviderFunc(func(context.Context) (string, error) {
		if credentials == "" {
			return "", nil
		}
		return scheme + " " + credentials, nil
	})
}

// AuthRoundTripperError is returned when the authorization value cannot be obtained.
type AuthRoundTripperError struct {
	Inner error
}

func (e *AuthRoundTripperError) Error() string {
	return fmt.Sprintf("get authorization for request: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *AuthRoundTripperError) Unwrap() error {
	return e.Inner
}

// AuthRoundTripper sets the Authorization header in requests that have none.
type AuthRoundTripper struct {
	Delegate     http.RoundTripper
	AuthProvider AuthProvider
}

// NewAuthRoundTripper creates a new AuthRoundTripper.
func NewAuthRoundTripper(delegate http.RoundTripper, authProvider AuthProvider) *AuthRoundTripper {
	return &AuthRoundTripper{Delegate: delegate, AuthProvider: authProvider}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *AuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return rt.Delegate.RoundTrip(req)
	}
	auth, err := rt.AuthProvider.GetAuthorization(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close() // Per RoundTripper contract.
		}
		return nil, &AuthRoundTripperError{Inner: err}
	}
	if auth == "" {
		return rt.Delegate.RoundTrip(req)
	}
	req = cloneRequest(req) // Per RoundTripper contract.
	req.Header.Set("Authorization", auth)
	return rt.Delegate.RoundTrip(req)
}
