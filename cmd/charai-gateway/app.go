/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/charai-gateway/charai"
	"github.com/acronis/charai-gateway/httpserver"
	"github.com/acronis/charai-gateway/internal/appinfo"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/profserver"
	"github.com/acronis/charai-gateway/restapi"
	"github.com/acronis/charai-gateway/service"
	"github.com/acronis/charai-gateway/settings"
)

const (
	errorDomain      = "CharAIGateway"
	metricsNamespace = "charai_gateway"
	settingsLoadTime = 30 * time.Second
	settingsRoute    = "/v1/settings"
)

// app is the composition root: it owns the settings service and injects it into the routes.
type app struct {
	settings  *settings.Service
	store     *settings.Store
	proxy     *charai.Proxy
	server    *httpserver.HTTPServer
	buildInfo *appinfo.BuildInfoMetrics
	units     []service.Unit
}

type appOpts struct {
	// upstreamHTTPClient replaces the client built from the charai.client section.
	upstreamHTTPClient *http.Client
}

func newApp(ctx context.Context, cfg *AppConfig, logger log.FieldLogger, opts appOpts) (*app, error) {
	a := &app{
		settings:  settings.NewService(logger),
		buildInfo: appinfo.NewBuildInfoMetrics(metricsNamespace),
	}

	persister, err := settings.NewPersister(ctx, cfg.Settings)
	if err != nil {
		return nil, fmt.Errorf("create settings persister: %w", err)
	}
	a.store = settings.NewStore(logger.With(log.String("component", "settings")), settings.StoreOpts{
		Persister:  persister,
		FlushDelay: cfg.Settings.FlushDelay,
	})
	loadCtx, cancel := context.WithTimeout(ctx, settingsLoadTime)
	defer cancel()
	if err = a.store.Load(loadCtx); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	a.store.Bind(a.settings)

	if a.proxy, err = charai.NewProxyWithOpts(cfg.CharAI, logger.With(log.String("component", "charai")), charai.ProxyOpts{
		HTTPClient:       opts.upstreamHTTPClient,
		MetricsNamespace: metricsNamespace,
		UserAgent:        appinfo.UserAgent(),
	}); err != nil {
		return nil, fmt.Errorf("create character info proxy: %w", err)
	}

	settingsHandler := settings.NewHandler(a.settings, logger)
	if a.server, err = httpserver.New(cfg.Server, logger, httpserver.Opts{
		ErrorDomain:      errorDomain,
		MetricsNamespace: metricsNamespace,
		APIRoutes: func(router chi.Router) {
			a.proxy.RegisterRoutes(router)
			router.Mount(settingsRoute, settingsHandler)
		},
		HealthCheck: a.healthCheck,
	}); err != nil {
		return nil, fmt.Errorf("create HTTP server: %w", err)
	}

	// Stop order matters: the server drains in-flight requests before the store does its final flush.
	a.units = []service.Unit{a.server}
	if cfg.ProfServer.Enabled {
		a.units = append(a.units, profserver.New(cfg.ProfServer, logger, nil))
	}
	a.units = append(a.units, a.proxy, a.store)
	return a, nil
}

// unit groups all application units, stopping them one by one.
func (a *app) unit() *service.Group {
	return service.NewGroup(a.units...)
}

func (a *app) healthCheck(ctx context.Context) (httpserver.HealthCheckResult, error) {
	status := httpserver.HealthCheckStatusOK
	if !a.settings.Bound() {
		status = httpserver.HealthCheckStatusFail
	}
	return httpserver.HealthCheckResult{"settings": status}, ctx.Err()
}

// MustRegisterMetrics registers the build info gauge and the REST error counter,
// unit metrics are registered by service.Service.
func (a *app) MustRegisterMetrics() {
	a.buildInfo.MustRegister()
	restapi.MustInitAndRegisterMetrics(metricsNamespace)
}

// UnregisterMetrics unregisters app-level metrics.
func (a *app) UnregisterMetrics() {
	restapi.UnregisterMetrics()
	a.buildInfo.Unregister()
}
