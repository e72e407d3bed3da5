/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/config"
	"github.com/acronis/charai-gateway/log/logtest"
	"github.com/acronis/charai-gateway/restapi"
	"github.com/acronis/charai-gateway/testutil"
)

const testErrDomain = "TestGateway"

func newTestServer(t *testing.T, cfg *Config, opts Opts) *HTTPServer {
	t.Helper()
	if opts.ErrorDomain == "" {
		opts.ErrorDomain = testErrDomain
	}
	srv, err := New(cfg, logtest.NewLogger(), opts)
	require.NoError(t, err)
	return srv
}

func defaultTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := loadConfig(t, "")
	require.NoError(t, err)
	return cfg
}

func serve(srv *HTTPServer, method, target string, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.HTTPRouter.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHTTPServer_Routes(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig(t), Opts{
		APIRoutes: func(router chi.Router) {
			router.Get("/echo/{name}", func(rw http.ResponseWriter, r *http.Request) {
				_, _ = rw.Write([]byte(chi.URLParam(r, "name")))
			})
		},
		MetricsHandler: http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			_, _ = rw.Write([]byte("# metrics"))
		}),
	})

	rec := serve(srv, http.MethodGet, "/api/echo/alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "# metrics", rec.Body.String())

	testutil.RequireErrorInRecorder(t, serve(srv, http.MethodGet, "/api/unknown", ""),
		http.StatusNotFound, testErrDomain, restapi.ErrCodeNotFound)
	testutil.RequireErrorInRecorder(t, serve(srv, http.MethodPost, "/api/echo/alice", ""),
		http.StatusMethodNotAllowed, testErrDomain, restapi.ErrCodeMethodNotAllowed)
}

func TestHTTPServer_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		healthCheck    HealthCheck
		wantStatusCode int
		wantComponents map[string]bool
	}{
		{
			name:           "no components",
			wantStatusCode: http.StatusOK,
			wantComponents: map[string]bool{},
		},
		{
			name: "all components are healthy",
			healthCheck: func(ctx context.Context) (HealthCheckResult, error) {
				return HealthCheckResult{"settings": HealthCheckStatusOK}, nil
			},
			wantStatusCode: http.StatusOK,
			wantComponents: map[string]bool{"settings": true},
		},
		{
			name: "unhealthy component",
			healthCheck: func(ctx context.Context) (HealthCheckResult, error) {
				return HealthCheckResult{"settings": HealthCheckStatusOK, "upstream": HealthCheckStatusFail}, nil
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantComponents: map[string]bool{"settings": true, "upstream": false},
		},
		{
			name: "check failed",
			healthCheck: func(ctx context.Context) (HealthCheckResult, error) {
				return nil, errors.New("boom")
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name: "client closed request",
			healthCheck: func(ctx context.Context) (HealthCheckResult, error) {
				return nil, context.Canceled
			},
			wantStatusCode: StatusClientClosedRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, defaultTestConfig(t), Opts{HealthCheck: tt.healthCheck})
			rec := serve(srv, http.MethodGet, "/healthz", "")
			require.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantComponents == nil {
				return
			}
			var respData healthCheckResponseData
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
			require.Equal(t, tt.wantComponents, respData.Components)
		})
	}
}

func TestHTTPServer_BodyLimit(t *testing.T) {
	cfg := defaultTestConfig(t)
	cfg.Limits.MaxBodySizeBytes = config.BytesCount(8)
	srv := newTestServer(t, cfg, Opts{
		APIRoutes: func(router chi.Router) {
			router.Put("/data", func(rw http.ResponseWriter, r *http.Request) {
				rw.WriteHeader(http.StatusNoContent)
			})
		},
	})

	require.Equal(t, http.StatusNoContent, serve(srv, http.MethodPut, "/api/data", "1234").Code)
	require.Equal(t, http.StatusRequestEntityTooLarge, serve(srv, http.MethodPut, "/api/data", "123456789").Code)
}

func TestHTTPServer_RateLimit(t *testing.T) {
	cfg := defaultTestConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Count = 1
	cfg.RateLimit.Period = config.TimeDuration(time.Minute)
	cfg.RateLimit.PerClient = false
	srv := newTestServer(t, cfg, Opts{
		APIRoutes: func(router chi.Router) {
			router.Get("/ping", func(rw http.ResponseWriter, r *http.Request) {
				_, _ = rw.Write([]byte("pong"))
			})
		},
	})

	require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/api/ping", "").Code)
	rec := serve(srv, http.MethodGet, "/api/ping", "")
	testutil.RequireErrorInRecorder(t, rec, http.StatusServiceUnavailable, testErrDomain, restapi.ErrCodeTooManyRequests)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// System endpoints are never limited.
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/healthz", "").Code)
	}
}

func TestHTTPServer_Recovery(t *testing.T) {
	srv := newTestServer(t, defaultTestConfig(t), Opts{
		APIRoutes: func(router chi.Router) {
			router.Get("/panic", func(rw http.ResponseWriter, r *http.Request) {
				panic("unexpected")
			})
		},
	})
	testutil.RequireErrorInRecorder(t, serve(srv, http.MethodGet, "/api/panic", ""),
		http.StatusInternalServerError, testErrDomain, restapi.ErrCodeInternal)
}

func TestHTTPServer_StartStop(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := defaultTestConfig(t)
	srv := newTestServer(t, cfg, Opts{Listener: listener})

	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)

	port, err := testutil.WaitPortAndListeningServer("127.0.0.1", srv.GetPort, 5*time.Second)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/healthz", port))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop(true))
	testutil.RequireNoErrorInChannel(t, fatalErr)
}
