/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides a separate HTTP server exposing pprof handlers under /debug.
package profserver

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/acronis/charai-gateway/httpserver/middleware"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/service"
)

// ProfServer represents HTTP server for profiling. pprof is used under the hood.
// It implements service.Unit interface.
type ProfServer struct {
	HTTPServer     *http.Server
	Logger         log.FieldLogger
	listener       net.Listener
	httpServerDone chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a new HTTP server (pprof) for profiling.
// listener may be nil, then the configured address is listened on Start.
func New(cfg *Config, logger log.FieldLogger, listener net.Listener) *ProfServer {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{RequestStart: true}),
	)
	router.Mount("/debug", chimiddleware.Profiler())

	return &ProfServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: time.Second * 5,
		},
		Logger:         logger,
		listener:       listener,
		httpServerDone: make(chan struct{}),
	}
}

// Start starts profiling HTTP server in a blocking way.
// If a fatal error occurs, it's sent into passed fatalError channel.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.httpServerDone)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting profiling HTTP server...")

	var err error
	if s.listener == nil {
		if s.listener, err = net.Listen("tcp", s.HTTPServer.Addr); err != nil {
			logger.Error("profiling HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
	}
	if err = s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("profiling HTTP server closed")
			return
		}
		logger.Error("profiling HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops profiling HTTP server (always in no gracefully way).
func (s *ProfServer) Stop(bool) error {
	s.Logger.Info("closing profiling HTTP server...")
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	<-s.httpServerDone
	return nil
}
