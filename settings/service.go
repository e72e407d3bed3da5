/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package settings shares named values between the owner of application state and arbitrary consumers.
//
// The application root creates a single Service and hands it to every component that needs it.
// The owner of the values (usually a Store) binds its accessors with Register; until then
// reads report absence and writes are dropped, both with a warning.
package settings

import (
	"go.uber.org/atomic"

	"github.com/acronis/charai-gateway/log"
)

// Setter stores value under key. persist is a hint that the value should survive restarts.
type Setter func(key string, value any, persist bool)

// Getter returns the value stored under key. The second result is false if the value was never set.
type Getter func(key string) (any, bool)

type binding struct {
	set Setter
	get Getter
}

// Service delegates reads and writes of named values to the registered accessor pair.
// It is safe for concurrent use.
type Service struct {
	logger  log.FieldLogger
	binding atomic.Pointer[binding]
}

// NewService creates a new unbound Service.
func NewService(logger log.FieldLogger) *Service {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Service{logger: logger}
}

// Register binds the accessor pair. The last registration wins.
func (s *Service) Register(setter Setter, getter Getter) {
	s.binding.Store(&binding{set: setter, get: getter})
}

// Bound reports whether accessors were registered.
func (s *Service) Bound() bool {
	return s.binding.Load() != nil
}

// Set passes the value to the registered setter. Without one it logs a warning and does nothing.
// persist is false when omitted.
func (s *Service) Set(key string, value any, persist ...bool) {
	b := s.binding.Load()
	if b == nil || b.set == nil {
		s.logger.Warn("settings are not bound, value is dropped", log.String("key", key))
		return
	}
	b.set(key, value, len(persist) != 0 && persist[0])
}

// Get returns the value from the registered getter. Without one it logs a warning and reports absence.
func (s *Service) Get(key string) (any, bool) {
	b := s.binding.Load()
	if b == nil || b.get == nil {
		s.logger.Warn("settings are not bound, value is absent", log.String("key", key))
		return nil, false
	}
	return b.get(key)
}

// GetAs returns the value as T. The caller asserts the type: nothing is converted,
// and a value of another type is reported as absent.
func GetAs[T any](s *Service, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
