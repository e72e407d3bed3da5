/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/acronis/charai-gateway/log"
)

const (
	// LoggingSecretQueryPlaceholder replaces values of secret query parameters in logged URIs.
	LoggingSecretQueryPlaceholder = "_HIDDEN_"

	// DefaultSlowRequestThreshold is the duration after which the "time_slots" group is logged.
	DefaultSlowRequestThreshold = time.Second

	userAgentLogFieldKey = "user_agent"

	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// LoggingOpts represents options for the Logging middleware.
type LoggingOpts struct {
	// RequestStart enables the "request started" entry.
	RequestStart bool
	// ExcludedEndpoints are paths whose successful requests are not logged (e.g. /healthz).
	ExcludedEndpoints []string
	// SecretQueryParams are query parameters whose values are hidden in the logged URI.
	SecretQueryParams []string
	// SlowRequestThreshold controls when the "time_slots" group is added to the final entry.
	SlowRequestThreshold time.Duration
}

type loggingHandler struct {
	next   http.Handler
	logger log.FieldLogger
	opts   LoggingOpts
}

// Logging is a middleware that logs every request and its response.
// It also puts a logger with request ids into the request context.
func Logging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return LoggingWithOpts(logger, LoggingOpts{})
}

// LoggingWithOpts is a more configurable version of Logging middleware.
func LoggingWithOpts(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	if opts.SlowRequestThreshold == 0 {
		opts.SlowRequestThreshold = DefaultSlowRequestThreshold
	}
	return func(next http.Handler) http.Handler {
		return &loggingHandler{next: next, logger: logger, opts: opts}
	}
}

func (h *loggingHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	startTime := GetRequestStartTimeFromContext(ctx)
	if startTime.IsZero() {
		startTime = time.Now()
		ctx = NewContextWithRequestStartTime(ctx, startTime)
	}

	loggerForNext := h.logger.With(
		log.String("request_id", GetRequestIDFromContext(ctx)),
		log.String("int_request_id", GetInternalRequestIDFromContext(ctx)),
	)
	logger := loggerForNext.With(h.requestFields(r)...)

	noLog := isLoggingDisabled(r.URL.Path, h.opts.ExcludedEndpoints)
	if h.opts.RequestStart && !noLog {
		logger.Info("request started")
	}

	lp := &LoggingParams{}
	ctx = NewContextWithLoggingParams(NewContextWithLogger(ctx, loggerForNext), lp)
	wrw := WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
	h.next.ServeHTTP(wrw, r.WithContext(ctx))

	status := responseStatus(wrw)
	if noLog && status < http.StatusBadRequest {
		return
	}
	duration := time.Since(startTime)
	fields := append([]log.Field{
		log.Int64("duration_ms", duration.Milliseconds()),
		log.Int("status", status),
		log.Int("bytes_sent", wrw.BytesWritten()),
	}, lp.logFields(duration >= h.opts.SlowRequestThreshold)...)
	logger.Info(fmt.Sprintf("response completed in %.3fs", duration.Seconds()), fields...)
}

func (h *loggingHandler) requestFields(r *http.Request) []log.Field {
	fields := make([]log.Field, 0, 8)
	fields = append(fields,
		log.String("method", r.Method),
		log.String("uri", h.makeURIToLog(r)),
		log.String("remote_addr", r.RemoteAddr),
		log.Int64("content_length", r.ContentLength),
		log.String(userAgentLogFieldKey, r.UserAgent()),
	)
	if addrIP, addrPort, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		fields = append(fields, log.String("remote_addr_ip", addrIP))
		if port, pErr := strconv.ParseUint(addrPort, 10, 16); pErr == nil {
			fields = append(fields, log.Uint16("remote_addr_port", uint16(port)))
		}
	}
	if originAddr := getOriginAddr(r); originAddr != "" {
		fields = append(fields, log.String("origin_addr", originAddr))
	}
	return fields
}

func (h *loggingHandler) makeURIToLog(r *http.Request) string {
	if len(h.opts.SecretQueryParams) == 0 || r.URL.RawQuery == "" {
		return r.RequestURI
	}
	query := r.URL.Query()
	for _, k := range h.opts.SecretQueryParams {
		vals := query[k]
		for i := range vals {
			if vals[i] != "" {
				vals[i] = LoggingSecretQueryPlaceholder
			}
		}
	}
	return r.URL.Path + "?" + query.Encode()
}

func isLoggingDisabled(urlPath string, excluded []string) bool {
	for _, endpoint := range excluded {
		if urlPath == endpoint {
			return true
		}
	}
	return false
}

// getOriginAddr returns the client address set by a proxy, if any.
func getOriginAddr(r *http.Request) string {
	if forwardedFor := r.Header.Get(headerForwardedFor); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get(headerRealIP))
}
