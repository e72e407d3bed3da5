/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package charai implements the character info proxy: GET /api/charai?char=<id> is relayed
// to the chat service as a POST with {"external_id": "<id>"}.
package charai

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zoobzio/clockz"

	"github.com/acronis/charai-gateway/httpclient"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/service"
	"github.com/acronis/charai-gateway/timing"
)

// RoutePath is the path of the proxy route relative to /api.
const RoutePath = "/charai"

// ProxyOpts represents options for NewProxyWithOpts.
type ProxyOpts struct {
	// HTTPClient replaces the client built from Config.Client.
	HTTPClient *http.Client
	// MetricsNamespace prefixes names of the HTTP client metrics.
	MetricsNamespace string
	UserAgent        string
	// Clock stamps upstream failures and drives the failure reporter. clockz.RealClock is used by default.
	Clock clockz.Clock
}

// Proxy owns the proxy route together with its client, failure reporter and metrics.
// It implements service.Unit: a graceful stop writes the pending failure report.
type Proxy struct {
	Handler  *Handler
	reporter *FailureReporter
	metrics  *proxyMetrics
	// clientMetrics is nil when ProxyOpts.HTTPClient is passed.
	clientMetrics *httpclient.PrometheusMetricsCollector
}

var (
	_ service.Unit              = (*Proxy)(nil)
	_ service.MetricsRegisterer = (*Proxy)(nil)
)

// NewProxy creates a new Proxy with default options.
func NewProxy(cfg *Config, logger log.FieldLogger) (*Proxy, error) {
	return NewProxyWithOpts(cfg, logger, ProxyOpts{})
}

// NewProxyWithOpts creates a new Proxy.
func NewProxyWithOpts(cfg *Config, logger log.FieldLogger, opts ProxyOpts) (*Proxy, error) {
	p := &Proxy{metrics: newProxyMetrics()}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		p.clientMetrics = httpclient.NewPrometheusMetricsCollector(opts.MetricsNamespace)
		var err error
		if httpClient, err = NewHTTPClient(cfg, p.clientMetrics, opts.UserAgent); err != nil {
			return nil, fmt.Errorf("create http client: %w", err)
		}
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockz.RealClock
	}
	p.reporter = NewFailureReporter(logger, cfg.FailureReportDelay, timing.WithClock(clock))
	p.Handler = &Handler{
		client:   NewClient(httpClient, cfg),
		reporter: p.reporter,
		metrics:  p.metrics,
		clock:    clock,
		logger:   logger,
	}
	return p, nil
}

// RegisterRoutes adds the proxy route to the router.
func (p *Proxy) RegisterRoutes(router chi.Router) {
	router.Method(http.MethodGet, RoutePath, p.Handler)
}

// Start does nothing: the proxy serves requests through the HTTP server.
func (p *Proxy) Start(chan<- error) {}

// Stop writes (gracefully) or drops the pending failure report.
func (p *Proxy) Stop(gracefully bool) error {
	if gracefully {
		p.reporter.Flush()
	}
	p.reporter.Close()
	return nil
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (p *Proxy) MustRegisterMetrics() {
	p.metrics.MustRegister()
	if p.clientMetrics != nil {
		p.clientMetrics.MustRegister()
	}
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (p *Proxy) UnregisterMetrics() {
	p.metrics.Unregister()
	if p.clientMetrics != nil {
		p.clientMetrics.Unregister()
	}
}
