package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

type fixedReadiness struct {
	ready bool
	parts []int32
}

func (f fixedReadiness) Readiness() (bool, []int32) { return f.ready, f.parts }

func TestReadiness_Handler(t *testing.T) {
	rr := httptest.NewRecorder()
	Readiness(map[string]ReadinessReporter{
		"invalidation": fixedReadiness{ready: true, parts: []int32{0, 2}},
	})(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	want := `{"status":"ready","components":{"invalidation":{"ready":true,"partitions":[0,2]}}}`
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != want {
		t.Fatalf("ready: code=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	Readiness(map[string]ReadinessReporter{
		"invalidation": fixedReadiness{},
		"server":       fixedReadiness{ready: true},
	})(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), `"not_ready":["invalidation"]`) {
		t.Fatalf("not ready: code=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	Readiness(nil)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("no components: code=%d want 200", rr.Code)
	}
}
