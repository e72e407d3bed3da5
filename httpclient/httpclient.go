/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds *http.Client instances for calls to third-party services.
// The transport is a chain of round trippers (logging, metrics, client-side rate limiting,
// User-Agent, request id propagation, authorization) configured by Config.
package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/acronis/charai-gateway/log"
)

// DefaultRequestType is used in logs and metrics when Opts.RequestType is empty.
const DefaultRequestType = "external"

// Opts provides options for NewWithOpts.
type Opts struct {
	// UserAgent is set in outgoing requests that have no User-Agent yet.
	UserAgent string

	// RequestType names the kind of call in logs and metrics, e.g. "charai-character-info".
	RequestType string

	// Delegate is the innermost RoundTripper. A clone of http.DefaultTransport is used when nil.
	Delegate http.RoundTripper

	// LoggerProvider returns a context-specific logger. middleware.GetLoggerFromContext is used when nil.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Collector receives request durations when metrics are enabled.
	Collector MetricsCollector

	// AuthProvider supplies the Authorization header value. No header is added when nil.
	AuthProvider AuthProvider
}

// New creates a client with default options.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts wraps the delegate transport with the round trippers enabled in cfg and opts.
// The outermost one sets authorization, so logging and metrics see the request as it is sent.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}
	reqType := opts.RequestType
	if reqType == "" {
		reqType = DefaultRequestType
	}

	if cfg.Logger.Enabled {
		logOpts := cfg.Logger.LoggingOpts()
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, reqType, logOpts)
	}

	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, reqType, opts.Collector)
	}

	if cfg.RateLimits.Enabled {
		var err error
		if delegate, err = newRateLimitingRoundTripper(delegate, reqType, cfg.RateLimits); err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}

	delegate = NewRequestIDRoundTripper(delegate)

	if opts.AuthProvider != nil {
		delegate = NewAuthRoundTripper(delegate, opts.AuthProvider)
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts is a version of NewWithOpts that panics on error.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}

// cloneRequest creates a shallow copy of the request with a deep copy of headers.
func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r
}
