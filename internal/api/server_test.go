// internal/api/server_test.go
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fusorlabs/fusor/internal/api/handler"
	"github.com/fusorlabs/fusor/internal/api/job"
	"github.com/fusorlabs/fusor/internal/backtest"
	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/metrics"
	"github.com/fusorlabs/fusor/internal/signal"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()

	cfg := config.Defaults()
	jobStore := job.NewStore(100, time.Hour)
	bt := handler.NewBacktestHandler(jobStore, backtest.New(cfg, nil),
		signal.NewIndicatorSource(), signal.NewSimulatedSentiment(), nil, nil, nil)

	return NewServer(config.ServerConfig{
		Host:   "localhost",
		Port:   0,
		APIKey: apiKey,
	}, bt, jobStore, metrics.NewRegistry(), zap.NewNop())
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, "")

	for _, path := range []string{"/healthz", "/api/v1/health"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()

		srv.httpServer.Handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestServer_APIAuth_Required(t *testing.T) {
	srv := newTestServer(t, "test-key")

	req := httptest.NewRequest("GET", "/api/v1/backtests", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
}

func TestServer_APIAuth_ValidKey(t *testing.T) {
	srv := newTestServer(t, "test-key")

	req := httptest.NewRequest("GET", "/api/v1/backtests", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with key, got %d", w.Code)
	}
}

func TestServer_APIAuth_Disabled(t *testing.T) {
	srv := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/v1/backtests", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with disabled auth, got %d", w.Code)
	}
}

func TestServer_MetricsOutsideAuth(t *testing.T) {
	srv := newTestServer(t, "test-key")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 on /metrics without key, got %d", w.Code)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
