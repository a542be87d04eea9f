// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 aurweb Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aurweb/aurweb/internal/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, WithCollectors(func(reg prometheus.Registerer) {
		reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "aurweb_test_total", Help: "test"}))
	}))
	server.Metrics().RecordRequest("/login", http.MethodPost, http.StatusSeeOther)

	code, body := get(t, server.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, "aurweb_test_total")
	assert.Contains(t, body, `aurweb_http_requests_total{method="POST",route="/login",status="303"} 1`)
}

func TestServer_AuthMetricsRegister(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, WithCollectors(auth.RegisterMetrics))
	auth.LoginAttempts.WithLabelValues(auth.OutcomeSuccess).Add(0)

	_, body := get(t, server.Handler(), "/metrics")
	assert.Contains(t, body, "aurweb_login_attempts_total")
}

func TestServer_Probes(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		code, body := get(t, NewServer("", nil).Handler(), "/healthz/liveness")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok\n", body)
	})

	t.Run("ready", func(t *testing.T) {
		server := NewServer("", func(context.Context) error { return nil })
		code, _ := get(t, server.Handler(), "/healthz/readiness")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("not ready", func(t *testing.T) {
		server := NewServer("", func(context.Context) error { return errors.New("database unreachable") })
		code, body := get(t, server.Handler(), "/healthz/readiness")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not ready\n", body)
	})
}

func TestServer_Lifecycle(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	_, err = server.Start()
	require.Error(t, err, "double start must fail")

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + server.Addr() + "/healthz/liveness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx), "stop is idempotent")

	_, open := <-errCh
	assert.False(t, open, "error channel closes on shutdown")
}
