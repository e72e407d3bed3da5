/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package charai

import (
	"context"
	"errors"
	"net/http"

	"github.com/zoobzio/clockz"

	"github.com/acronis/charai-gateway/httpserver/middleware"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/restapi"
)

// QueryParamChar is the query parameter holding the character external id.
const QueryParamChar = "char"

// Handler relays character info from the chat service.
//
// On success the upstream JSON body is sent verbatim with status 200.
// Any failure is answered with 502 and a plain-text message, whatever the upstream status was.
type Handler struct {
	client   *Client
	reporter *FailureReporter
	metrics  *proxyMetrics
	clock    clockz.Clock
	logger   log.FieldLogger
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := h.getLogger(r.Context())
	externalID := r.URL.Query().Get(QueryParamChar)

	// The outbound call runs to completion even if the client goes away.
	body, err := h.client.FetchCharacterInfo(context.WithoutCancel(r.Context()), externalID)
	if err != nil {
		failure := UpstreamFailure{ExternalID: externalID, Message: err.Error(), Time: h.clock.Now()}
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			failure.StatusCode = upstreamErr.StatusCode
			failure.Message = upstreamErr.Message
			h.metrics.incUpstreamRequests(outcomeUpstreamError)
		} else {
			h.metrics.incUpstreamRequests(outcomeTransportError)
		}
		logger.Error("character info request failed",
			log.String("external_id", externalID), log.Int("upstream_status", failure.StatusCode), log.Error(err))
		h.reporter.Report(failure)
		restapi.RespondCodeAndText(rw, http.StatusBadGateway, failure.Message, logger)
		return
	}

	h.metrics.incUpstreamRequests(outcomeSuccess)
	restapi.RespondCodeAndRaw(rw, http.StatusOK, restapi.ContentTypeAppJSON, body, logger)
}

func (h *Handler) getLogger(ctx context.Context) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(ctx); logger != nil {
		return logger
	}
	return h.logger
}
