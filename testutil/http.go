/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/restapi"
)

// RequireErrorInRecorder asserts that the recorded response is a JSON error ({"error": {...}})
// with the given status, domain and code.
func RequireErrorInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, rec.Code)
	require.Equal(t, restapi.ContentTypeAppJSON, rec.Header().Get("Content-Type"))
	var respData restapi.ErrorResponseData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
	require.NotNil(t, respData.Err)
	require.Equal(t, wantErrDomain, respData.Err.Domain)
	require.Equal(t, wantErrCode, respData.Err.Code)
}

// RequireJSONInRecorder asserts the status of the recorded response and decodes its JSON body into dst.
func RequireJSONInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, wantHTTPCode int, dst interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, rec.Code)
	require.Equal(t, restapi.ContentTypeAppJSON, rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}
