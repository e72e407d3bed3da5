/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/charai-gateway/httpserver/middleware"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/lrucache"
	"github.com/acronis/charai-gateway/restapi"
)

// systemEndpoints are not measured and never limited.
var systemEndpoints = []string{"/metrics", "/healthz"}

// APIRoutes registers application routes. They are mounted under /api.
type APIRoutes = func(router chi.Router)

// routerMetrics holds collectors created while building the router.
type routerMetrics struct {
	httpRequests  *middleware.HTTPRequestMetricsCollector
	rateLimitKeys *lrucache.PrometheusMetrics
}

// nolint // hugeParam: opts is heavy, it's ok in this case.
func newRouter(cfg *Config, logger log.FieldLogger, opts Opts) (chi.Router, *routerMetrics, error) {
	metrics := &routerMetrics{httpRequests: middleware.NewHTTPRequestMetricsCollector(opts.MetricsNamespace)}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestStartTime(),
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
			RequestStart:         cfg.Log.RequestStart,
			ExcludedEndpoints:    cfg.Log.ExcludedEndpoints,
			SecretQueryParams:    cfg.Log.SecretQueryParams,
			SlowRequestThreshold: time.Duration(cfg.Log.SlowRequestThreshold),
		}),
		middleware.Recovery(opts.ErrorDomain),
		middleware.HTTPRequestMetrics(metrics.httpRequests, GetChiRoutePattern,
			middleware.HTTPRequestMetricsOpts{ExcludedEndpoints: systemEndpoints}),
	)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, "/metrics", metricsHandler)
	router.Method(http.MethodGet, "/healthz", NewHealthCheckHandler(opts.HealthCheck))

	apiMiddlewares, err := makeAPIMiddlewares(cfg, opts, metrics)
	if err != nil {
		return nil, nil, err
	}
	router.Route("/api", func(r chi.Router) {
		r.Use(apiMiddlewares...)
		if opts.APIRoutes != nil {
			opts.APIRoutes(r)
		}
	})

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeNotFound, "")
		restapi.RespondError(rw, http.StatusNotFound, apiErr, middleware.GetLoggerFromContext(r.Context()))
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeMethodNotAllowed, "")
		restapi.RespondError(rw, http.StatusMethodNotAllowed, apiErr, middleware.GetLoggerFromContext(r.Context()))
	})

	return router, metrics, nil
}

// nolint // hugeParam: opts is heavy, it's ok in this case.
func makeAPIMiddlewares(cfg *Config, opts Opts, metrics *routerMetrics) ([]func(http.Handler) http.Handler, error) {
	var mws []func(http.Handler) http.Handler

	if cfg.Limits.MaxRequests > 0 {
		inFlightLimitMw, err := middleware.InFlightLimit(cfg.Limits.MaxRequests, opts.ErrorDomain, middleware.InFlightLimitOpts{})
		if err != nil {
			return nil, fmt.Errorf("create in-flight limit middleware: %w", err)
		}
		mws = append(mws, inFlightLimitMw)
	}

	if cfg.Limits.MaxBodySizeBytes > 0 {
		mws = append(mws, middleware.RequestBodyLimit(uint64(cfg.Limits.MaxBodySizeBytes), opts.ErrorDomain))
	}

	if cfg.RateLimit.Enabled {
		rlOpts := middleware.RateLimitOpts{
			Alg:      cfg.RateLimit.Alg,
			MaxBurst: cfg.RateLimit.Burst,
			MaxKeys:  cfg.RateLimit.MaxKeys,
			DryRun:   cfg.RateLimit.DryRun,
		}
		if cfg.RateLimit.PerClient {
			rlOpts.GetKey = middleware.RateLimitKeyByClientIP
			rlOpts.ExcludedKeys = cfg.RateLimit.ExcludedKeys
			metrics.rateLimitKeys = lrucache.NewPrometheusMetrics(opts.MetricsNamespace, "rate_limit_keys")
			rlOpts.KeysMetrics = metrics.rateLimitKeys
		}
		rate := middleware.Rate{Count: cfg.RateLimit.Count, Duration: time.Duration(cfg.RateLimit.Period)}
		rateLimitMw, err := middleware.RateLimit(rate, opts.ErrorDomain, rlOpts)
		if err != nil {
			return nil, fmt.Errorf("create rate limit middleware: %w", err)
		}
		mws = append(mws, rateLimitMw)
	}

	return mws, nil
}

// GetChiRoutePattern extracts chi route pattern from request.
func GetChiRoutePattern(r *http.Request) string {
	// modified code from https://github.com/go-chi/chi/issues/270#issuecomment-479184559
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}

	routePath := r.URL.RawPath
	if routePath == "" {
		routePath = r.URL.Path
	}

	tctx := chi.NewRouteContext()
	if !rctx.Routes.Match(tctx, r.Method, routePath) {
		return ""
	}
	return tctx.RoutePattern()
}
