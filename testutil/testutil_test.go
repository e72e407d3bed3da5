/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/acronis/charai-gateway/restapi"
)

type fakeT struct {
	failed bool
}

func (ft *fakeT) Errorf(string, ...interface{}) { ft.failed = true }
func (ft *fakeT) FailNow()                      { ft.failed = true; panic(ft) }

func runFake(fn func(ft *fakeT)) (failed bool) {
	ft := &fakeT{}
	defer func() {
		if r := recover(); r != nil && r != ft {
			panic(r)
		}
		failed = ft.failed
	}()
	fn(ft)
	return ft.failed
}

func TestRequireNoErrorInChannel(t *testing.T) {
	errs := make(chan error, 1)
	RequireNoErrorInChannel(t, errs)

	errs <- errors.New("boom")
	require.True(t, runFake(func(ft *fakeT) { RequireNoErrorInChannel(ft, errs) }))
}

func TestRequireErrorInRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	restapi.RespondError(rec, http.StatusNotFound, restapi.NewError("Gateway", "notFound", "Not found."), nil)
	RequireErrorInRecorder(t, rec, http.StatusNotFound, "Gateway", "notFound")

	require.True(t, runFake(func(ft *fakeT) {
		RequireErrorInRecorder(ft, rec, http.StatusNotFound, "Gateway", "badRequest")
	}))
}

func TestRequireJSONInRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	restapi.RespondJSON(rec, map[string]int{"n": 1}, nil)
	var got map[string]int
	RequireJSONInRecorder(t, rec, http.StatusOK, &got)
	require.Equal(t, map[string]int{"n": 1}, got)
}

func TestRequireHistogramSampleCount(t *testing.T) {
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_duration_seconds"},
		[]string{"outcome", "method"})
	durations.WithLabelValues("success", http.MethodGet).Observe(1)
	durations.WithLabelValues("success", http.MethodGet).Observe(2)
	durations.WithLabelValues("upstreamError", http.MethodGet).Observe(3)

	RequireHistogramSampleCount(t, durations, prometheus.Labels{"method": http.MethodGet, "outcome": "success"}, 2)
	RequireHistogramSampleCount(t, durations, prometheus.Labels{"method": http.MethodGet, "outcome": "upstreamError"}, 1)

	require.True(t, runFake(func(ft *fakeT) {
		RequireHistogramSampleCount(ft, durations, prometheus.Labels{"method": http.MethodGet, "outcome": "success"}, 3)
	}))
	require.True(t, runFake(func(ft *fakeT) {
		RequireHistogramSampleCount(ft, durations, prometheus.Labels{"outcome": "success"}, 2)
	}), "partial label sets must not match")
}

func TestWaitPortAndListeningServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { require.NoError(t, listener.Close()) }()

	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	wantPort := listener.Addr().(*net.TCPAddr).Port
	port, err := WaitPortAndListeningServer("127.0.0.1", func() int { return wantPort }, time.Second)
	require.NoError(t, err)
	require.Equal(t, wantPort, port)

	_, err = WaitPortAndListeningServer("127.0.0.1", func() int { return 0 }, 50*time.Millisecond)
	require.Error(t, err)
}
