/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the gateway's long-living components (HTTP servers, upstream proxy, settings store)
// as units with a common start/stop lifecycle driven by OS signals.
package service

import (
	"strings"
	"sync"
)

// Unit is a component of the gateway with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may return right after initialization or block for the unit's lifetime.
	// Start writes to fatalErr only on failure and never uses the channel after returning.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus collectors.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}

// Group runs several units as one.
// Units start concurrently and stop one by one in the order they were added,
// so a server that feeds the settings store must come before the store.
type Group struct {
	units []Unit
}

var (
	_ Unit              = (*Group)(nil)
	_ MetricsRegisterer = (*Group)(nil)
)

// NewGroup creates a group of units listed in stop order.
func NewGroup(units ...Unit) *Group {
	return &Group{units: units}
}

// Start launches all units and blocks until all their Start calls return.
// When some unit fails, the whole group is stopped non-gracefully
// and a GroupError with the start and stop errors is sent to fatalErr.
func (g *Group) Start(fatalErr chan<- error) {
	var (
		mu        sync.Mutex
		startErrs []error
		wg        sync.WaitGroup
		failed    = make(chan struct{})
		failOnce  sync.Once
	)
	for _, u := range g.units {
		wg.Add(1)
		go func(u Unit) {
			defer wg.Done()
			unitErr := make(chan error, 1)
			u.Start(unitErr)
			select {
			case err := <-unitErr:
				mu.Lock()
				startErrs = append(startErrs, err)
				mu.Unlock()
				failOnce.Do(func() { close(failed) })
			default:
			}
		}(u)
	}

	allStarted := make(chan struct{})
	go func() {
		wg.Wait()
		close(allStarted)
	}()

	select {
	case <-allStarted:
		mu.Lock()
		noErrs := len(startErrs) == 0
		mu.Unlock()
		if noErrs {
			return
		}
	case <-failed:
	}

	stopErr := g.Stop(false)
	<-allStarted

	errs := startErrs
	if ge, ok := stopErr.(*GroupError); ok {
		errs = append(errs, ge.Errs...)
	}
	fatalErr <- &GroupError{errs}
}

// Stop stops units in order, waiting for each one before moving to the next.
// A unit that fails to stop does not prevent the following ones from being stopped.
func (g *Group) Stop(gracefully bool) error {
	var errs []error
	for _, u := range g.units {
		if err := u.Stop(gracefully); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &GroupError{errs}
}

// MustRegisterMetrics registers metrics of all units that own them.
func (g *Group) MustRegisterMetrics() {
	for _, u := range g.units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.MustRegisterMetrics()
		}
	}
}

// UnregisterMetrics unregisters metrics of all units that own them.
func (g *Group) UnregisterMetrics() {
	for _, u := range g.units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.UnregisterMetrics()
		}
	}
}

// GroupError holds errors of the units in a group.
type GroupError struct {
	Errs []error
}

// Error returns all unit errors joined by "; ".
func (ge *GroupError) Error() string {
	msgs := make([]string, 0, len(ge.Errs))
	for _, err := range ge.Errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the unit errors so errors.Is and errors.As can inspect them.
func (ge *GroupError) Unwrap() []error {
	return ge.Errs
}
