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
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/log/logtest"
)

func TestRespondCodeAndJSON(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondCodeAndJSON(resp, http.StatusCreated, map[string]string{"url": "http://a?b=<c>"}, logtest.NewRecorder())
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, ContentTypeAppJSON, resp.Header().Get("Content-Type"))
	require.Equal(t, `{"url":"http://a?b=<c>"}`, resp.Body.String())

	resp = httptest.NewRecorder()
	RespondCodeAndJSON(resp, http.StatusNoContent, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Empty(t, resp.Body.String())
}

func TestRespondCodeAndText(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondCodeAndText(resp, http.StatusBadGateway, "not found", nil)
	require.Equal(t, http.StatusBadGateway, resp.Code)
	require.Equal(t, ContentTypeTextPlain, resp.Header().Get("Content-Type"))
	require.Equal(t, "not found", resp.Body.String())
}

func TestRespondError(t *testing.T) {
	MustInitAndRegisterMetrics("test")
	defer UnregisterMetrics()

	logRecorder := logtest.NewRecorder()
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusNotFound,
		NewError("Settings", ErrCodeNotFound, "").AddContext("key", "theme"), logRecorder)

	require.Equal(t, http.StatusNotFound, resp.Code)
	var body ErrorResponseData
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, &Error{
		Domain: "Settings", Code: ErrCodeNotFound, Message: "Not found.",
		Context: map[string]interface{}{"key": "theme"},
	}, body.Err)

	entry, found := logRecorder.FindEntry("error in response")
	require.True(t, found)
	code, _ := entry.FieldString("error_code")
	require.Equal(t, ErrCodeNotFound, code)

	RespondError(httptest.NewRecorder(), http.StatusServiceUnavailable,
		NewError("CharAIGateway", ErrCodeTooManyRequests, ""), nil)
	require.Equal(t, 1.0, testutil.ToFloat64(errorResponses.WithLabelValues("Settings", ErrCodeNotFound, "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(errorResponses.WithLabelValues("CharAIGateway", ErrCodeTooManyRequests, "503")))
	require.Equal(t, 2, testutil.CollectAndCount(errorResponses))
}

func TestNewError_CustomMessage(t *testing.T) {
	err := NewError("Settings", "notBound", "Settings are not available yet.")
	require.EqualError(t, err, "Settings: notBound: Settings are not available yet.")
	require.Equal(t, "Internal error.", NewInternalError("Settings").Message)
}

func TestRespondMalformedRequestOrInternalError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"bad json", badRequest("bad"), http.StatusBadRequest, ErrCodeBadRequest},
		{"too large", NewTooLargeMalformedRequestError(1024), http.StatusRequestEntityTooLarge, ErrCodeRequestBodyTooLarge},
		{"wrapped", fmt.Errorf("decode: %w", NewTooLargeMalformedRequestError(1024)), http.StatusRequestEntityTooLarge, ErrCodeRequestBodyTooLarge},
		{"other error", errors.New("db down"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			RespondMalformedRequestOrInternalError(resp, "Settings", tt.err, logtest.NewRecorder())
			require.Equal(t, tt.wantStatus, resp.Code)
			var body ErrorResponseData
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			require.Equal(t, "Settings", body.Err.Domain)
			require.Equal(t, tt.wantCode, body.Err.Code)
		})
	}
}

func TestDecodeRequestJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		maxBytes    int64
		wantStatus  int
		wantCode    string
		want        interface{}
	}{
		{name: "string value", body: `"dark"`, want: "dark"},
		{name: "object value", body: `{"a":1}`, contentType: "application/json; charset=utf-8", want: map[string]interface{}{"a": 1.0}},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{name: "syntax error", body: `{"a":}`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{name: "unexpected eof", body: `{"a":1`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{name: "several values", body: `1 2`, wantStatus: http.StatusBadRequest, wantCode: ErrCodeBadRequest},
		{name: "wrong content type", body: `1`, contentType: "text/plain",
			wantStatus: http.StatusUnsupportedMediaType, wantCode: ErrCodeUnsupportedMediaType},
		{name: "too large", body: `"0123456789"`, maxBytes: 4,
			wantStatus: http.StatusRequestEntityTooLarge, wantCode: ErrCodeRequestBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.maxBytes > 0 {
				req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, tt.maxBytes)
			}
			var dst interface{}
			err := DecodeRequestJSON(req, &dst)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				require.Equal(t, tt.want, dst)
				return
			}
			var reqErr *MalformedRequestError
			require.ErrorAs(t, err, &reqErr)
			require.Equal(t, tt.wantStatus, reqErr.HTTPStatusCode)
			require.Equal(t, tt.wantCode, reqErr.Code)
		})
	}
}
