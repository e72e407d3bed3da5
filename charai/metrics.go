/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package charai

import "github.com/prometheus/client_golang/prometheus"

// Outcomes of upstream requests.
const (
	outcomeSuccess        = "success"
	outcomeUpstreamError  = "upstream_error"
	outcomeTransportError = "transport_error"
)

type proxyMetrics struct {
	upstreamRequests *prometheus.CounterVec
}

func newProxyMetrics() *proxyMetrics {
	return &proxyMetrics{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "charai",
			Name:      "upstream_requests_total",
			Help:      "Number of character info requests to the chat service by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *proxyMetrics) MustRegister() {
	prometheus.MustRegister(m.upstreamRequests)
}

func (m *proxyMetrics) Unregister() {
	prometheus.Unregister(m.upstreamRequests)
}

func (m *proxyMetrics) incUpstreamRequests(outcome string) {
	m.upstreamRequests.WithLabelValues(outcome).Inc()
}
