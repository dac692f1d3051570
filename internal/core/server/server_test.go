package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/core/health"
)

type notReady struct{}

func (notReady) Readiness() (bool, []int32) { return false, nil }

func TestHandler_Routes(t *testing.T) {
	cfg := config.FromEnv()
	cfg.MetricsEnabled = true
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "api:"+r.URL.Path)
	})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "metrics")
	})
	h := Handler(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), api, Options{Metrics: metrics, Ready: map[string]health.ReadinessReporter{"invalidation": notReady{}}})

	for path, want := range map[string]struct {
		code int
		body string
	}{
		"/healthz":      {http.StatusOK, "ok"},
		"/metrics":      {http.StatusOK, "metrics"},
		"/render":       {http.StatusOK, "api:/render"},
		"/capacity/mix": {http.StatusOK, "api:/capacity/mix"},
		"/readyz":       {http.StatusServiceUnavailable, ""},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != want.code {
			t.Fatalf("%s: code=%d want %d", path, rr.Code, want.code)
		}
		if want.body != "" && rr.Body.String() != want.body {
			t.Fatalf("%s: body=%q want %q", path, rr.Body.String(), want.body)
		}
	}

	cfg.MetricsEnabled = false
	h = Handler(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), http.NotFoundHandler(), Options{Metrics: metrics})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled: code=%d", rr.Code)
	}
}
