/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/charai"
	"github.com/acronis/charai-gateway/httpserver"
	"github.com/acronis/charai-gateway/log/logtest"
	"github.com/acronis/charai-gateway/settings"
	"github.com/acronis/charai-gateway/testutil"
)

func writeConfigFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadAppConfig(t *testing.T) {
	t.Setenv("CHARAI_SERVER_ADDRESS", "127.0.0.1:9999")

	cfg, err := loadAppConfig(writeConfigFile(t, `
log:
  level: debug
charai:
  token: s3cret
settings:
  flushDelay: 250ms
  persistence:
    backend: file
    file:
      path: /tmp/settings.yml
`))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.Server.Address)
	require.Equal(t, "s3cret", cfg.CharAI.Token)
	require.Equal(t, charai.DefaultEndpoint, cfg.CharAI.Endpoint)
	require.Equal(t, 250*time.Millisecond, cfg.Settings.FlushDelay)
	require.Equal(t, settings.BackendFile, cfg.Settings.Persistence.Backend)
	require.False(t, cfg.ProfServer.Enabled)

	cfg, err = loadAppConfig("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.Server.Address)

	_, err = loadAppConfig(writeConfigFile(t, "charai:\n  endpoint: ftp://example.com\n"))
	require.ErrorContains(t, err, "charai.endpoint")
}

func TestApp_Routes(t *testing.T) {
	var (
		upstreamMu     sync.Mutex
		upstreamBodies []string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		upstreamMu.Lock()
		upstreamBodies = append(upstreamBodies, string(body))
		upstreamMu.Unlock()
		if strings.Contains(string(body), "missing") {
			rw.WriteHeader(http.StatusNotFound)
			_, _ = rw.Write([]byte(`{"message":"character not found"}`))
			return
		}
		_, _ = rw.Write([]byte(`{"character":{"name":"Ada"}}`))
	}))
	defer upstream.Close()

	settingsPath := filepath.Join(t.TempDir(), "settings.yml")
	cfg, err := loadAppConfig(writeConfigFile(t, `
charai:
  endpoint: `+upstream.URL+`
settings:
  persistence:
    backend: file
    file:
      path: `+settingsPath+`
`))
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, logtest.NewLogger(), appOpts{upstreamHTTPClient: upstream.Client()})
	require.NoError(t, err)

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		a.server.HTTPRouter.ServeHTTP(rec, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
		return rec
	}

	rec := serve(http.MethodGet, "/api/charai?char=ada", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"character":{"name":"Ada"}}`, rec.Body.String())

	rec = serve(http.MethodGet, "/api/charai?char=missing", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "character not found", rec.Body.String())
	upstreamMu.Lock()
	require.Equal(t, []string{`{"external_id":"ada"}`, `{"external_id":"missing"}`}, upstreamBodies)
	upstreamMu.Unlock()

	require.Equal(t, http.StatusNoContent, serve(http.MethodPut, "/api/v1/settings/theme?persist=true", `"dark"`).Code)
	theme, ok := settings.GetAs[string](a.settings, "theme")
	require.True(t, ok)
	require.Equal(t, "dark", theme)

	var healthResp struct {
		Components map[string]bool `json:"components"`
	}
	testutil.RequireJSONInRecorder(t, serve(http.MethodGet, "/healthz", ""), http.StatusOK, &healthResp)
	require.Equal(t, map[string]bool{"settings": true}, healthResp.Components)

	// Graceful stop of the units saves durable settings.
	for _, unit := range a.units {
		if _, isServer := unit.(*httpserver.HTTPServer); isServer {
			continue
		}
		require.NoError(t, unit.Stop(true))
	}
	persisted, err := settings.NewFilePersister(settingsPath).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]any{"theme": "dark"}, persisted)
}

func TestApp_GracefulStopSavesInFlightWrites(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.yml")
	cfg, err := loadAppConfig(writeConfigFile(t, `
server:
  address: 127.0.0.1:0
  log:
    requestStart: true
settings:
  flushDelay: 1h
  persistence:
    backend: file
    file:
      path: `+settingsPath+`
`))
	require.NoError(t, err)

	logRecorder := logtest.NewRecorder()
	a, err := newApp(context.Background(), cfg, logRecorder, appOpts{})
	require.NoError(t, err)
	unit := a.unit()

	fatalErr := make(chan error, 1)
	go unit.Start(fatalErr)
	port, err := testutil.WaitPortAndListeningServer("127.0.0.1", a.server.GetPort, 5*time.Second)
	require.NoError(t, err)

	// The request body is streamed, so the handler stays in flight until the body is closed.
	bodyReader, bodyWriter := io.Pipe()
	respStatus := make(chan int, 1)
	go func() {
		req, reqErr := http.NewRequest(http.MethodPut,
			fmt.Sprintf("http://127.0.0.1:%d/api/v1/settings/theme?persist=true", port), bodyReader)
		if reqErr != nil {
			respStatus <- 0
			return
		}
		resp, doErr := http.DefaultClient.Do(req)
		if doErr != nil {
			respStatus <- 0
			return
		}
		_ = resp.Body.Close()
		respStatus <- resp.StatusCode
	}()
	require.Eventually(t, func() bool {
		_, found := logRecorder.FindEntry("request started")
		return found
	}, 5*time.Second, 10*time.Millisecond)

	stopErr := make(chan error, 1)
	go func() { stopErr <- unit.Stop(true) }()
	require.Eventually(t, func() bool {
		_, found := logRecorder.FindEntry("shutting down application HTTP server...")
		return found
	}, 5*time.Second, 10*time.Millisecond)

	_, err = bodyWriter.Write([]byte(`"dark"`))
	require.NoError(t, err)
	require.NoError(t, bodyWriter.Close())

	require.Equal(t, http.StatusNoContent, <-respStatus)
	require.NoError(t, <-stopErr)
	testutil.RequireNoErrorInChannel(t, fatalErr)

	persisted, err := settings.NewFilePersister(settingsPath).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]any{"theme": "dark"}, persisted)
}
