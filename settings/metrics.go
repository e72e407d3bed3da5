/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import "github.com/prometheus/client_golang/prometheus"

const (
	flushResultOK    = "ok"
	flushResultError = "error"
)

type storeMetrics struct {
	flushes *prometheus.CounterVec
}

func newStoreMetrics() *storeMetrics {
	return &storeMetrics{
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settings_flushes_total",
			Help: "Number of attempts to save durable settings.",
		}, []string{"result"}),
	}
}

func (m *storeMetrics) MustRegister() {
	prometheus.MustRegister(m.flushes)
}

func (m *storeMetrics) Unregister() {
	prometheus.Unregister(m.flushes)
}
