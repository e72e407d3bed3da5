/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/acronis/charai-gateway/log"
)

// MIME media types.
const (
	ContentTypeAppJSON   = "application/json"
	ContentTypeTextPlain = "text/plain; charset=utf-8"
)

// jsonMarshal marshals v without HTML escaping and without the trailing newline.
func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// RespondJSON sends response with 200 HTTP status code and JSON-marshaled data in the body.
func RespondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

// RespondCodeAndJSON sends a response with the passed status code and JSON-marshaled data in the body.
// "Content-Type" is set to "application/json" unless it is already set.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}

	respJSON, err := jsonMarshal(respData)
	if err != nil {
		if logger != nil {
			logger.Error("error while marshaling json for response body", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	RespondCodeAndRaw(rw, statusCode, ContentTypeAppJSON, respJSON, logger)
}

// RespondCodeAndRaw sends a response with the passed status code and body as is.
// "Content-Type" is set to contentType unless it is already set.
func RespondCodeAndRaw(rw http.ResponseWriter, statusCode int, contentType string, body []byte, logger log.FieldLogger) {
	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", contentType)
	}
	rw.WriteHeader(statusCode)
	if _, err := rw.Write(body); err != nil && logger != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

// RespondCodeAndText sends a plain text response with the passed status code.
func RespondCodeAndText(rw http.ResponseWriter, statusCode int, text string, logger log.FieldLogger) {
	RespondCodeAndRaw(rw, statusCode, ContentTypeTextPlain, []byte(text), logger)
}

// ErrorResponseData wraps an error in the response body: {"error": {...}}.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

func (e *ErrorResponseData) Error() string {
	return fmt.Sprintf("HTTP error occurs: %v", e.Err)
}

// RespondError sets HTTP status code in response and writes error in body in JSON format.
// The error code and message are logged.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	logErrorResponse(err, logger)
	countErrorResponse(httpStatusCode, err)
	RespondCodeAndJSON(rw, httpStatusCode, ErrorResponseData{err}, logger)
}

// RespondInternalError sends response with 500 HTTP status code and internal error in body in JSON format.
func RespondInternalError(rw http.ResponseWriter, domain string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(domain), logger)
}

// RespondMalformedRequestError responds with the status and message of reqErr.
func RespondMalformedRequestError(rw http.ResponseWriter, domain string, reqErr *MalformedRequestError, logger log.FieldLogger) {
	err := NewError(domain, reqErr.Code, reqErr.Message)
	RespondError(rw, reqErr.HTTPStatusCode, err, logger)
}

// RespondMalformedRequestOrInternalError calls RespondMalformedRequestError if err is *MalformedRequestError
// and RespondInternalError otherwise.
func RespondMalformedRequestOrInternalError(rw http.ResponseWriter, domain string, err error, logger log.FieldLogger) {
	var reqErr *MalformedRequestError
	if errors.As(err, &reqErr) {
		RespondMalformedRequestError(rw, domain, reqErr, logger)
		return
	}
	if logger != nil {
		logger.Error("request processing failed", log.Error(err))
	}
	RespondInternalError(rw, domain, logger)
}

func logErrorResponse(err *Error, logger log.FieldLogger) {
	if logger == nil {
		return
	}
	fields := []log.Field{log.String("error_code", err.Code), log.String("error_message", err.Message)}
	if len(err.Context) != 0 {
		ctxLines := make([]string, 0, len(err.Context))
		for k, v := range err.Context {
			ctxLines = append(ctxLines, fmt.Sprintf("%s: %v", k, v))
		}
		fields = append(fields, log.Strings("error_context", ctxLines))
	}
	logger.Error("error in response", fields...)
}
