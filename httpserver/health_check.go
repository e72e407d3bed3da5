/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/acronis/charai-gateway/httpserver/middleware"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/restapi"
)

// StatusClientClosedRequest is the nginx status used when the client goes away before the response.
const StatusClientClosedRequest = 499

// HealthCheckStatus is a status of a single component.
type HealthCheckStatus int

// Health-check statuses.
const (
	HealthCheckStatusOK HealthCheckStatus = iota
	HealthCheckStatusFail
)

// HealthCheckResult maps component names to their statuses.
type HealthCheckResult = map[string]HealthCheckStatus

// HealthCheck reports statuses of the service components.
type HealthCheck = func(ctx context.Context) (HealthCheckResult, error)

type healthCheckResponseData struct {
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler serves /healthz.
// It answers 503 if any component fails and 500 if the check itself fails.
type HealthCheckHandler struct {
	healthCheckFn HealthCheck
}

// NewHealthCheckHandler creates a new HealthCheckHandler. A nil fn reports no components.
func NewHealthCheckHandler(fn HealthCheck) *HealthCheckHandler {
	if fn == nil {
		fn = func(ctx context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{}, ctx.Err()
		}
	}
	return &HealthCheckHandler{fn}
}

func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())

	hcResult, err := h.healthCheckFn(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			rw.WriteHeader(StatusClientClosedRequest)
			return
		}
		if logger != nil {
			logger.Error("error while checking health", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	respStatus := http.StatusOK
	respData := healthCheckResponseData{Components: make(map[string]bool, len(hcResult))}
	for name, status := range hcResult {
		respData.Components[name] = status == HealthCheckStatusOK
		if status != HealthCheckStatusOK {
			respStatus = http.StatusServiceUnavailable
		}
	}
	restapi.RespondCodeAndJSON(rw, respStatus, respData, logger)
}
