package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mylog "github.com/mohammed-shakir/repp-atlas/internal/logger"
)

func TestLogging_RequestID(t *testing.T) {
	var buf bytes.Buffer
	zl := mylog.Build(mylog.Config{Level: "debug"}, &buf)
	l := mylog.NewSlog(&zl)

	h := Logging(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/render", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id not echoed")
	}
	out := buf.String()
	if !strings.Contains(out, `"request_id":"abc"`) || !strings.Contains(out, `"status":418`) {
		t.Fatalf("log line missing fields: %s", out)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/render", nil))
	if len(rr.Header().Get("X-Request-ID")) != 16 {
		t.Fatalf("generated request id %q", rr.Header().Get("X-Request-ID"))
	}
}

func TestRecoverAndCORS(t *testing.T) {
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := CORS()(Recover(l)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("code=%d headers=%v", rr.Code, rr.Header())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight code=%d", rr.Code)
	}
}
