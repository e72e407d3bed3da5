/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/acronis/charai-gateway/httpserver/middleware"
	"github.com/acronis/charai-gateway/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

var availableLoggingModes = []string{string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed)}

// LoggingRoundTripperOpts represents options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// LoggerProvider returns a context-specific logger. middleware.GetLoggerFromContext is used when nil.
	LoggerProvider func(ctx context.Context) log.FieldLogger
	// Mode of logging: none, all, failed. "failed" logs transport errors and 4xx/5xx responses.
	Mode LoggingMode
	// SlowRequestThreshold suppresses entries for requests faster than it.
	SlowRequestThreshold time.Duration
}

// LoggingRoundTripper logs outgoing requests.
// The duration is also added to the "time_slots" of the incoming request (see middleware.LoggingParams).
type LoggingRoundTripper struct {
	Delegate http.RoundTripper
	ReqType  string
	Opts     LoggingRoundTripperOpts
}

// NewLoggingRoundTripperWithOpts creates a new LoggingRoundTripper.
func NewLoggingRoundTripperWithOpts(
	delegate http.RoundTripper, reqType string, opts LoggingRoundTripperOpts,
) http.RoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	return &LoggingRoundTripper{Delegate: delegate, ReqType: reqType, Opts: opts}
}

func (rt *LoggingRoundTripper) getLogger(ctx context.Context) log.FieldLogger {
	if rt.Opts.LoggerProvider != nil {
		return rt.Opts.LoggerProvider(ctx)
	}
	return middleware.GetLoggerFromContext(ctx)
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(r)
	}

	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	elapsed := time.Since(start)

	ctx := r.Context()
	if lp := middleware.GetLoggingParamsFromContext(ctx); lp != nil {
		lp.AddTimeSlotDurationInMs("external_request_"+rt.ReqType+"_ms", elapsed)
	}

	logger := rt.getLogger(ctx)
	if logger == nil || elapsed < rt.Opts.SlowRequestThreshold {
		return resp, err
	}
	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	if rt.Opts.Mode == LoggingModeFailed && !failed {
		return resp, err
	}

	fields := []log.Field{
		log.String("method", r.Method),
		log.String("url", r.URL.Redacted()),
		log.String("request_type", rt.ReqType),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if resp != nil {
		fields = append(fields, log.Int("status", resp.StatusCode))
	}
	if err != nil {
		logger.Error("client http request failed", append(fields, log.Error(err))...)
		return resp, err
	}
	logger.Info("client http request completed", fields...)
	return resp, err
}
