/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acronis/charai-gateway/log"
)

// Service owns the top-level unit of the gateway process: it registers the unit's metrics,
// starts it and stops it when the process is asked to shut down.
type Service struct {
	unit            Unit
	logger          log.FieldLogger
	signals         chan os.Signal
	shutdownSignals []os.Signal
}

// New creates a Service stopped by shutdownSignals, SIGINT and SIGTERM if none are given.
func New(logger log.FieldLogger, unit Unit, shutdownSignals ...os.Signal) *Service {
	if len(shutdownSignals) == 0 {
		shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return &Service{
		unit:            unit,
		logger:          logger,
		signals:         make(chan os.Signal, 1),
		shutdownSignals: shutdownSignals,
	}
}

// Run starts the unit and blocks until ctx is done, a shutdown signal is received or the unit fails.
// A failed unit is expected to clean up after itself, so only its error is returned.
func (s *Service) Run(ctx context.Context) error {
	if mr, ok := s.unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	signal.Notify(s.signals, s.shutdownSignals...)
	defer signal.Stop(s.signals)

	fatalErr := make(chan error, 1)
	go s.unit.Start(fatalErr)

	select {
	case err := <-fatalErr:
		s.logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	case <-ctx.Done():
		s.logger.Info("context is canceled, service will be stopped")
	case sig := <-s.signals:
		s.logger.Info("service got signal", log.String("signal", sig.String()))
	}
	return s.stop()
}

// stop tries a graceful stop first. If it fails, units are stopped once more without waiting,
// so nothing keeps running after Run returns.
func (s *Service) stop() error {
	startTime := time.Now()
	err := s.unit.Stop(true)
	if err == nil {
		s.logger.Info("service stopped gracefully", log.Duration("duration", time.Since(startTime)))
		return nil
	}
	s.logger.Error("graceful stop failed, stopping forcibly", log.Error(err))
	if forceErr := s.unit.Stop(false); forceErr != nil {
		s.logger.Error("forced stop failed", log.Error(forceErr))
	}
	return fmt.Errorf("stop service gracefully: %w", err)
}
