/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects metrics of outgoing requests.
type MetricsCollector interface {
	// RequestDuration observes the duration of the request. status is "0" for transport errors.
	RequestDuration(requestType, host, method, status string, startTime time.Time)
}

// PrometheusMetricsCollector is a Prometheus implementation of MetricsCollector.
type PrometheusMetricsCollector struct {
	Durations *prometheus.HistogramVec
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "A histogram of the http client requests durations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"type", "remote_address", "method", "status"}),
	}
}

// MustRegister registers the collector in the default Prometheus registry.
func (p *PrometheusMetricsCollector) MustRegister() {
	prometheus.MustRegister(p.Durations)
}

// Unregister removes the collector from the default Prometheus registry.
func (p *PrometheusMetricsCollector) Unregister() {
	prometheus.Unregister(p.Durations)
}

// RequestDuration implements MetricsCollector.
func (p *PrometheusMetricsCollector) RequestDuration(requestType, host, method, status string, start time.Time) {
	p.Durations.WithLabelValues(requestType, host, method, status).Observe(time.Since(start).Seconds())
}

// MetricsRoundTripper measures outgoing requests.
type MetricsRoundTripper struct {
	Delegate    http.RoundTripper
	RequestType string
	Collector   MetricsCollector
}

// NewMetricsRoundTripper creates a new MetricsRoundTripper.
func NewMetricsRoundTripper(delegate http.RoundTripper, requestType string, collector MetricsCollector) http.RoundTripper {
	return &MetricsRoundTripper{Delegate: delegate, RequestType: requestType, Collector: collector}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *MetricsRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	status := "0"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	rt.Collector.RequestDuration(rt.RequestType, r.URL.Host, r.Method, status, start)
	return resp, err
}
