/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/charai-gateway/httpserver/middleware"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/restapi"
)

// ErrDomain is the domain of REST errors returned by the settings API.
const ErrDomain = "Settings"

// Error codes of the settings API.
const (
	ErrCodeNotBound       = "settingsNotBound"
	ErrCodeInvalidPersist = "invalidPersistParam"
)

// URLParamKey is the name of the route parameter that holds the settings key.
const URLParamKey = "key"

type handler struct {
	svc    *Service
	logger log.FieldLogger
}

// NewHandler returns the HTTP API over svc:
//
//	GET /{key}               -> 200 with the JSON value, 404 if absent
//	PUT /{key}?persist=true  -> 204, the body is the JSON value
func NewHandler(svc *Service, logger log.FieldLogger) http.Handler {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	h := &handler{svc: svc, logger: logger}
	router := chi.NewRouter()
	router.Get("/{"+URLParamKey+"}", h.get)
	router.Put("/{"+URLParamKey+"}", h.put)
	return router
}

func (h *handler) get(rw http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)
	key := chi.URLParam(r, URLParamKey)
	if !h.svc.Bound() {
		restapi.RespondError(rw, http.StatusServiceUnavailable,
			restapi.NewError(ErrDomain, ErrCodeNotBound, "Settings are not available yet."), logger)
		return
	}
	value, ok := h.svc.Get(key)
	if !ok {
		restapi.RespondError(rw, http.StatusNotFound,
			restapi.NewError(ErrDomain, restapi.ErrCodeNotFound, "Setting is not set.").AddContext("key", key), logger)
		return
	}
	if value == nil {
		// A stored null is still a value; nil respData would mean "no body".
		restapi.RespondCodeAndRaw(rw, http.StatusOK, restapi.ContentTypeAppJSON, []byte("null"), logger)
		return
	}
	restapi.RespondJSON(rw, value, logger)
}

func (h *handler) put(rw http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)
	key := chi.URLParam(r, URLParamKey)

	persist := false
	if persistParam := r.URL.Query().Get("persist"); persistParam != "" {
		var err error
		if persist, err = strconv.ParseBool(persistParam); err != nil {
			restapi.RespondError(rw, http.StatusBadRequest,
				restapi.NewError(ErrDomain, ErrCodeInvalidPersist, "Query parameter \"persist\" must be a boolean."), logger)
			return
		}
	}

	var value any
	if err := restapi.DecodeRequestJSON(r, &value); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrDomain, err, logger)
		return
	}
	if !h.svc.Bound() {
		restapi.RespondError(rw, http.StatusServiceUnavailable,
			restapi.NewError(ErrDomain, ErrCodeNotBound, "Settings are not available yet."), logger)
		return
	}
	h.svc.Set(key, value, persist)
	rw.WriteHeader(http.StatusNoContent)
}

func (h *handler) requestLogger(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
