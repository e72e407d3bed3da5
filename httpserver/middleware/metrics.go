/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsLabelMethod        = "method"
	metricsLabelRoutePattern  = "route_pattern"
	metricsLabelUserAgentType = "user_agent_type"
	metricsLabelStatusCode    = "status_code"
)

const (
	userAgentTypeBrowser    = "browser"
	userAgentTypeHTTPClient = "http-client"
)

// DefaultHTTPRequestDurationBuckets are the buckets of the request duration histogram.
var DefaultHTTPRequestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// HTTPRequestMetricsCollector collects metrics of incoming HTTP requests.
type HTTPRequestMetricsCollector struct {
	Durations *prometheus.HistogramVec
	InFlight  *prometheus.GaugeVec
}

// NewHTTPRequestMetricsCollector creates a new collector. namespace may be empty.
func NewHTTPRequestMetricsCollector(namespace string) *HTTPRequestMetricsCollector {
	return &HTTPRequestMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "A histogram of the HTTP request durations.",
			Buckets:   DefaultHTTPRequestDurationBuckets,
		}, []string{metricsLabelMethod, metricsLabelRoutePattern, metricsLabelUserAgentType, metricsLabelStatusCode}),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served.",
		}, []string{metricsLabelMethod, metricsLabelUserAgentType}),
	}
}

// MustRegister registers the collector in the default Prometheus registry and panics on error.
func (c *HTTPRequestMetricsCollector) MustRegister() {
	prometheus.MustRegister(c.Durations, c.InFlight)
}

// Unregister removes the collector from the default Prometheus registry.
func (c *HTTPRequestMetricsCollector) Unregister() {
	prometheus.Unregister(c.InFlight)
	prometheus.Unregister(c.Durations)
}

// HTTPRequestMetricsOpts represents options for the HTTPRequestMetrics middleware.
type HTTPRequestMetricsOpts struct {
	ExcludedEndpoints []string
}

// HTTPRequestMetrics is a middleware that collects metrics of incoming HTTP requests.
// getRoutePattern is called after the handler, when the router has resolved the route.
func HTTPRequestMetrics(
	collector *HTTPRequestMetricsCollector, getRoutePattern RoutePatternGetterFunc, opts HTTPRequestMetricsOpts,
) func(next http.Handler) http.Handler {
	if getRoutePattern == nil {
		panic("function for getting route pattern cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if isLoggingDisabled(r.URL.Path, opts.ExcludedEndpoints) {
				next.ServeHTTP(rw, r)
				return
			}

			startTime := GetRequestStartTimeFromContext(r.Context())
			if startTime.IsZero() {
				startTime = time.Now()
				r = r.WithContext(NewContextWithRequestStartTime(r.Context(), startTime))
			}

			uaType := userAgentType(r)
			// The route pattern is known only after routing, so the in-flight gauge goes without it.
			inFlight := collector.InFlight.WithLabelValues(r.Method, uaType)
			inFlight.Inc()
			defer inFlight.Dec()

			wrw := WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
			defer func() {
				status := responseStatus(wrw)
				p := recover()
				if p != nil {
					status = http.StatusInternalServerError
				}
				if p != http.ErrAbortHandler {
					collector.Durations.With(prometheus.Labels{
						metricsLabelMethod:        r.Method,
						metricsLabelRoutePattern:  getRoutePattern(r),
						metricsLabelUserAgentType: uaType,
						metricsLabelStatusCode:    strconv.Itoa(status),
					}).Observe(time.Since(startTime).Seconds())
				}
				if p != nil {
					panic(p)
				}
			}()
			next.ServeHTTP(wrw, r)
		})
	}
}

func userAgentType(r *http.Request) string {
	if strings.Contains(strings.ToLower(r.UserAgent()), "mozilla") {
		return userAgentTypeBrowser
	}
	return userAgentTypeHTTPClient
}
