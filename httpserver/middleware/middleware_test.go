/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/internal/ratelimit"
	"github.com/acronis/charai-gateway/log"
	"github.com/acronis/charai-gateway/log/logtest"
)

const testErrDomain = "TestService"

func TestRequestID(t *testing.T) {
	var gotID, gotIntID string
	h := RequestIDWithOpts(RequestIDOpts{
		GenerateID:         func() string { return "generated" },
		GenerateInternalID: func() string { return "internal" },
	})(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotID = GetRequestIDFromContext(r.Context())
		gotIntID = GetInternalRequestIDFromContext(r.Context())
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "generated", gotID)
	require.Equal(t, "internal", gotIntID)
	require.Equal(t, "generated", resp.Header().Get(HeaderRequestID))
	require.Equal(t, "internal", resp.Header().Get(HeaderInternalRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "from-client")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	require.Equal(t, "from-client", gotID)
	require.Equal(t, "from-client", resp.Header().Get(HeaderRequestID))
}

func TestLogging(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	var ctxLogger log.FieldLogger
	h := LoggingWithOpts(logRecorder, LoggingOpts{
		RequestStart:         true,
		SecretQueryParams:    []string{"token"},
		SlowRequestThreshold: time.Nanosecond,
	})(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ctxLogger = GetLoggerFromContext(r.Context())
		lp := GetLoggingParamsFromContext(r.Context())
		lp.ExtendFields(log.String("character", "abc"))
		lp.AddTimeSlotDurationInMs("upstream_ms", 5*time.Millisecond)
		rw.WriteHeader(http.StatusTeapot)
		_, _ = rw.Write([]byte("hi"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/charai?char=abc&token=secret", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, ctxLogger)
	_, found := logRecorder.FindEntry("request started")
	require.True(t, found)

	entry, found := logRecorder.FindEntryByFilter(func(e logtest.RecordedEntry) bool {
		return strings.HasPrefix(e.Text, "response completed in")
	})
	require.True(t, found)
	uri, _ := entry.FieldString("uri")
	require.Contains(t, uri, "token="+LoggingSecretQueryPlaceholder)
	require.NotContains(t, uri, "secret")
	origin, _ := entry.FieldString("origin_addr")
	require.Equal(t, "10.0.0.1", origin)
	character, _ := entry.FieldString("character")
	require.Equal(t, "abc", character)
	status, found := entry.FindField("status")
	require.True(t, found)
	require.EqualValues(t, http.StatusTeapot, status.Int)
	_, found = entry.FindField("time_slots")
	require.True(t, found)
}

func TestLogging_ExcludedEndpoints(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	status := http.StatusOK
	h := LoggingWithOpts(logRecorder, LoggingOpts{ExcludedEndpoints: []string{"/healthz"}})(
		http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(status) }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Empty(t, logRecorder.Entries())

	status = http.StatusServiceUnavailable
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Len(t, logRecorder.Entries(), 1, "failed requests are logged even for excluded endpoints")
}

func TestRecovery(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	h := Recovery(testErrDomain)(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(NewContextWithLogger(req.Context(), logRecorder))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.JSONEq(t, `{"error":{"domain":"TestService","code":"internalError","message":"Internal error."}}`,
		resp.Body.String())
	entry, found := logRecorder.FindEntry("Panic: boom")
	require.True(t, found)
	_, found = entry.FindField("stack")
	require.True(t, found)
}

func TestRecovery_AbortHandler(t *testing.T) {
	h := Recovery(testErrDomain)(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestBodyLimit(t *testing.T) {
	var readErr error
	h := RequestBodyLimit(4, testErrDomain)(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too large")))
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewBufferString("too large")))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	var maxBytesErr *http.MaxBytesError
	require.ErrorAs(t, readErr, &maxBytesErr)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, readErr)
}

func TestInFlightLimit(t *testing.T) {
	_, err := InFlightLimit(0, testErrDomain, InFlightLimitOpts{})
	require.Error(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	mw, err := InFlightLimit(1, testErrDomain, InFlightLimitOpts{RetryAfter: 5 * time.Second})
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	firstResp := httptest.NewRecorder()
	go func() {
		defer wg.Done()
		h.ServeHTTP(firstResp, httptest.NewRequest(http.MethodGet, "/", nil))
	}()
	<-started

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Equal(t, "5", resp.Header().Get("Retry-After"))
	require.Contains(t, resp.Body.String(), InFlightLimitErrCode)

	close(release)
	wg.Wait()
	require.Equal(t, http.StatusOK, firstResp.Code)
}

func TestRateLimit(t *testing.T) {
	for _, alg := range []ratelimit.Alg{ratelimit.AlgLeakyBucket, ratelimit.AlgSlidingWindow} {
		t.Run(string(alg), func(t *testing.T) {
			mw, err := RateLimit(Rate{Count: 1, Duration: time.Hour}, testErrDomain, RateLimitOpts{
				Alg:                alg,
				GetKey:             RateLimitKeyByClientIP,
				ResponseStatusCode: http.StatusTooManyRequests,
			})
			require.NoError(t, err)
			h := mw(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))

			doFrom := func(addr string) *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.RemoteAddr = addr
				resp := httptest.NewRecorder()
				h.ServeHTTP(resp, req)
				return resp
			}

			require.Equal(t, http.StatusOK, doFrom("10.0.0.1:1000").Code)
			resp := doFrom("10.0.0.1:2000")
			require.Equal(t, http.StatusTooManyRequests, resp.Code)
			require.NotEmpty(t, resp.Header().Get("Retry-After"))
			require.Contains(t, resp.Body.String(), `"code":"tooManyRequests"`)
			require.Equal(t, http.StatusOK, doFrom("10.0.0.2:1000").Code)
		})
	}
}

func TestRateLimit_ExcludedKeys(t *testing.T) {
	mw, err := RateLimit(Rate{Count: 1, Duration: time.Hour}, testErrDomain, RateLimitOpts{
		Alg:          ratelimit.AlgLeakyBucket,
		GetKey:       RateLimitKeyByClientIP,
		ExcludedKeys: []string{"10.1.*", "127.0.0.1"},
	})
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))

	doFrom := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		return resp.Code
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doFrom("10.1.2.3:1000"))
		require.Equal(t, http.StatusOK, doFrom("127.0.0.1:1000"))
	}
	require.Equal(t, http.StatusOK, doFrom("10.2.0.1:1000"))
	require.Equal(t, http.StatusServiceUnavailable, doFrom("10.2.0.1:1000"))

	_, err = RateLimit(Rate{Count: 1, Duration: time.Hour}, testErrDomain, RateLimitOpts{ExcludedKeys: []string{"*"}})
	require.Error(t, err)
}

func TestRateLimit_DryRun(t *testing.T) {
	mw, err := RateLimit(Rate{Count: 1, Duration: time.Hour}, testErrDomain,
		RateLimitOpts{Alg: ratelimit.AlgSlidingWindow, DryRun: true})
	require.NoError(t, err)
	logRecorder := logtest.NewRecorder()
	h := mw(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logRecorder))
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
	}
	require.Len(t, logRecorder.EntriesAtLevel(log.LevelWarn), 2)
}

func TestHTTPRequestMetrics(t *testing.T) {
	collector := NewHTTPRequestMetricsCollector("")
	h := HTTPRequestMetrics(collector, func(r *http.Request) string { return "/items/{id}" },
		HTTPRequestMetricsOpts{ExcludedEndpoints: []string{"/metrics"}})(
		http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/items/2" {
				rw.WriteHeader(http.StatusNotFound)
			}
		}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/2", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, 2, testutil.CollectAndCount(collector.Durations))
	require.Equal(t, 0.0, testutil.ToFloat64(collector.InFlight.WithLabelValues(http.MethodGet, userAgentTypeHTTPClient)))
}
