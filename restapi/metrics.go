/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// errorResponses counts error responses of the gateway APIs by domain, code and HTTP status.
// It stays nil until MustInitAndRegisterMetrics is called, and nothing is counted then.
var errorResponses *prometheus.CounterVec

// MustInitAndRegisterMetrics initializes and registers the counter of error responses. It panics on failure.
func MustInitAndRegisterMetrics(namespace string) {
	errorResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "error_responses_total",
		Help:      "Number of error responses sent by the gateway APIs.",
	}, []string{"domain", "code", "status"})
	prometheus.MustRegister(errorResponses)
}

// UnregisterMetrics unregisters restapi metrics.
func UnregisterMetrics() {
	if errorResponses == nil {
		return
	}
	prometheus.Unregister(errorResponses)
	errorResponses = nil
}

func countErrorResponse(status int, err *Error) {
	if errorResponses != nil {
		errorResponses.WithLabelValues(err.Domain, err.Code, strconv.Itoa(status)).Inc()
	}
}
