/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/retry"
	"github.com/acronis/charai-gateway/service"
	"github.com/acronis/charai-gateway/timing"
)

// Default values for StoreOpts.
const (
	DefaultFlushDelay   = time.Second
	DefaultStopTimeout  = 10 * time.Second
	defaultRetryBackoff = 100 * time.Millisecond
	defaultRetryMax     = 5
)

// Persister loads and saves durable settings.
type Persister interface {
	// Load returns all saved values.
	Load(ctx context.Context) (map[string]any, error)
	// Save upserts the given values. Values not passed stay untouched.
	Save(ctx context.Context, values map[string]any) error
}

// StoreOpts contains optional parameters for Store.
type StoreOpts struct {
	// Persister keeps durable values. Without it the persist hint is accepted but values live only in memory.
	Persister Persister
	// FlushDelay is a quiet period after the last durable write before values are saved.
	FlushDelay time.Duration
	// RetryPolicy is used for saving. Exponential backoff with 5 attempts by default.
	RetryPolicy retry.Policy
	// StopTimeout limits the final flush on graceful stop.
	StopTimeout time.Duration
	// TimingOpts are passed to the flush debouncer.
	TimingOpts []timing.Option
}

// Store is the default owner of settings values: an in-memory map with optional durability.
//
// Writes with the persist hint mark the key durable. Durable writes are coalesced and saved
// by the Persister after FlushDelay of quiet. Store is a service.Unit: graceful Stop saves
// everything not yet saved.
type Store struct {
	logger      log.FieldLogger
	persister   Persister
	retryPolicy retry.Policy
	stopTimeout time.Duration
	flusher     *timing.Debouncer[struct{}]
	metrics     *storeMetrics

	mu      sync.RWMutex
	values  map[string]any
	durable map[string]struct{}
	dirty   map[string]struct{}

	flushMu sync.Mutex
}

var (
	_ service.Unit              = (*Store)(nil)
	_ service.MetricsRegisterer = (*Store)(nil)
)

// NewStore creates a new empty Store.
func NewStore(logger log.FieldLogger, opts StoreOpts) *Store {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = DefaultFlushDelay
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = retry.NewExponentialBackoffPolicy(defaultRetryBackoff, defaultRetryMax)
	}
	s := &Store{
		logger:      logger,
		persister:   opts.Persister,
		retryPolicy: opts.RetryPolicy,
		stopTimeout: opts.StopTimeout,
		metrics:     newStoreMetrics(),
		values:      make(map[string]any),
		durable:     make(map[string]struct{}),
		dirty:       make(map[string]struct{}),
	}
	s.flusher = timing.NewDebouncer(s.flushInBackground, opts.FlushDelay, opts.TimingOpts...)
	return s
}

// Bind registers the store's accessors in svc.
func (s *Store) Bind(svc *Service) {
	svc.Register(s.Set, s.Get)
}

// Set stores value under key. Once a key was written with persist, it stays durable
// and its later values are saved too.
func (s *Store) Set(key string, value any, persist bool) {
	s.mu.Lock()
	s.values[key] = value
	if persist {
		s.durable[key] = struct{}{}
	}
	_, durable := s.durable[key]
	if durable && s.persister != nil {
		s.dirty[key] = struct{}{}
	}
	s.mu.Unlock()

	if durable && s.persister != nil {
		s.flusher.Trigger(struct{}{})
	}
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Load restores durable values from the Persister. Values set before Load take precedence.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	var saved map[string]any
	err := retry.DoWithRetry(ctx, s.retryPolicy, nil, retry.LogNotify(s.logger, "loading settings failed, will retry"),
		func(ctx context.Context) (err error) {
			saved, err = s.persister.Load(ctx)
			return err
		})
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range saved {
		s.durable[k] = struct{}{}
		if _, exists := s.values[k]; !exists {
			s.values[k] = v
		}
	}
	s.logger.Info("settings loaded", log.Int("count", len(saved)))
	return nil
}

// Flush saves all durable values changed since the last successful save.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := make(map[string]any, len(s.dirty))
	for k := range s.dirty {
		batch[k] = s.values[k]
	}
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	err := retry.DoWithRetry(ctx, s.retryPolicy, nil, retry.LogNotify(s.logger, "saving settings failed, will retry"),
		func(ctx context.Context) error {
			return s.persister.Save(ctx, batch)
		})
	if err != nil {
		s.metrics.flushes.WithLabelValues(flushResultError).Inc()
		s.mu.Lock()
		for k := range batch {
			s.dirty[k] = struct{}{}
		}
		s.mu.Unlock()
		return fmt.Errorf("save settings: %w", err)
	}
	s.metrics.flushes.WithLabelValues(flushResultOK).Inc()
	s.logger.Debug("settings saved", log.Int("count", len(batch)))
	return nil
}

func (s *Store) flushInBackground(struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.logger.Error("settings flush failed", log.Error(err))
	}
}

// Start does nothing: durable values are loaded explicitly with Load before serving.
func (s *Store) Start(chan<- error) {}

// Stop cancels the pending flush. On graceful stop everything not yet saved is saved synchronously.
func (s *Store) Stop(gracefully bool) error {
	s.flusher.Close()
	if !gracefully {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()
	return s.Flush(ctx)
}

// MustRegisterMetrics registers the store's metrics.
func (s *Store) MustRegisterMetrics() {
	s.metrics.MustRegister()
}

// UnregisterMetrics unregisters the store's metrics.
func (s *Store) UnregisterMetrics() {
	s.metrics.Unregister()
}
