/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package settings

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/log/logtest"
	"github.com/acronis/charai-gateway/restapi"
	"github.com/acronis/charai-gateway/testutil"
)

func TestHandler(t *testing.T) {
	svc := NewService(nil)
	store := NewStore(nil, StoreOpts{})
	defer func() { _ = store.Stop(false) }()
	store.Bind(svc)
	h := NewHandler(svc, logtest.NewRecorder())

	do := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		return resp
	}

	resp := do(http.MethodGet, "/theme", "")
	testutil.RequireErrorInRecorder(t, resp, http.StatusNotFound, ErrDomain, restapi.ErrCodeNotFound)

	resp = do(http.MethodPut, "/theme?persist=true", `"dark"`)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Contains(t, store.durable, "theme")

	resp = do(http.MethodGet, "/theme", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, `"dark"`, resp.Body.String())

	resp = do(http.MethodPut, "/layout", `{"sidebar":{"open":true}}`)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.NotContains(t, store.durable, "layout")
	var layout map[string]interface{}
	testutil.RequireJSONInRecorder(t, do(http.MethodGet, "/layout", ""), http.StatusOK, &layout)
	require.Equal(t, map[string]interface{}{"sidebar": map[string]interface{}{"open": true}}, layout)

	resp = do(http.MethodPut, "/empty", `null`)
	require.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(http.MethodGet, "/empty", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "null", resp.Body.String())

	resp = do(http.MethodPut, "/theme?persist=maybe", `"x"`)
	testutil.RequireErrorInRecorder(t, resp, http.StatusBadRequest, ErrDomain, ErrCodeInvalidPersist)

	resp = do(http.MethodPut, "/theme", `{"broken"`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandler_Unbound(t *testing.T) {
	h := NewHandler(NewService(nil), nil)

	for _, method := range []string{http.MethodGet, http.MethodPut} {
		req := httptest.NewRequest(method, "/theme", bytes.NewBufferString(`"dark"`))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		testutil.RequireErrorInRecorder(t, resp, http.StatusServiceUnavailable, ErrDomain, ErrCodeNotBound)
	}
}
