/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides the HTTP server of the gateway: a chi router with the default middleware
// chain, /metrics and /healthz endpoints, and application routes mounted under /api.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/service"
)

// Opts represents options for creating HTTPServer.
type Opts struct {
	// ErrorDomain is used in JSON error responses.
	ErrorDomain string
	// MetricsNamespace prefixes names of the server's Prometheus metrics.
	MetricsNamespace string
	// APIRoutes registers application routes under /api.
	APIRoutes APIRoutes
	// HealthCheck reports statuses of the service components on /healthz.
	HealthCheck HealthCheck
	// MetricsHandler serves /metrics, promhttp.Handler() is used if nil.
	MetricsHandler http.Handler
	// Listener is used instead of listening on the configured address (e.g. in tests).
	Listener net.Listener
}

// HTTPServer represents a wrapper around http.Server with chi.Router as a handler.
// It implements service.Unit and service.MetricsRegisterer interfaces.
type HTTPServer struct {
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	TLS             TLSConfig
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener       net.Listener
	port           atomic.Int32
	httpServerDone atomic.Value
	metrics        *routerMetrics
}

var (
	_ service.Unit              = (*HTTPServer)(nil)
	_ service.MetricsRegisterer = (*HTTPServer)(nil)
)

// New creates a new HTTPServer with the default middleware chain.
func New(cfg *Config, logger log.FieldLogger, opts Opts) (*HTTPServer, error) { //nolint // hugeParam: opts is heavy, it's ok in this case.
	router, metrics, err := newRouter(cfg, logger, opts)
	if err != nil {
		return nil, err
	}
	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
			Handler:           router,
		},
		HTTPRouter:      router,
		TLS:             cfg.TLS,
		Logger:          logger,
		ShutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
		listener:        opts.Listener,
		metrics:         metrics,
	}, nil
}

// Start starts the HTTP server in a blocking way.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *HTTPServer) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Bool("tls", s.TLS.Enabled),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("read_header_timeout", s.HTTPServer.ReadHeaderTimeout),
		log.Duration("idle_timeout", s.HTTPServer.IdleTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting application HTTP server...")

	var err error
	if s.listener == nil {
		if s.listener, err = net.Listen("tcp", s.HTTPServer.Addr); err != nil {
			logger.Error("application HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
	}

	if _, portStr, splitErr := net.SplitHostPort(s.listener.Addr().String()); splitErr == nil {
		if port, parseErr := strconv.ParseInt(portStr, 10, 32); parseErr == nil {
			s.port.Store(int32(port))
		}
	}

	if s.TLS.Enabled {
		err = s.HTTPServer.ServeTLS(s.listener, s.TLS.Certificate, s.TLS.Key)
	} else {
		err = s.HTTPServer.Serve(s.listener)
	}
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("application HTTP server closed")
			return
		}
		logger.Error("application HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops the HTTP server (gracefully or not).
func (s *HTTPServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing application HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("application HTTP server closing error", log.Error(err))
			return err
		}
		s.waitServeDone()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down application HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("application HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("application HTTP server shut down")
	s.waitServeDone()
	return nil
}

func (s *HTTPServer) waitServeDone() {
	if done, ok := s.httpServerDone.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (s *HTTPServer) MustRegisterMetrics() {
	s.metrics.httpRequests.MustRegister()
	if s.metrics.rateLimitKeys != nil {
		s.metrics.rateLimitKeys.MustRegister()
	}
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (s *HTTPServer) UnregisterMetrics() {
	s.metrics.httpRequests.Unregister()
	if s.metrics.rateLimitKeys != nil {
		s.metrics.rateLimitKeys.Unregister()
	}
}

// GetPort returns the port the server listens on, 0 until Start binds it.
func (s *HTTPServer) GetPort() int {
	return int(s.port.Load())
}
