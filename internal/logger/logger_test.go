package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestFromContext_Fields(t *testing.T) {
	var buf bytes.Buffer
	base := Build(Config{Level: "debug", Component: "atlas"}, &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithRender(ctx, "ecmwf", "tp")
	ctx = WithCache(ctx, "miss")
	NewSlog(&base).InfoContext(ctx, "rendered", "bytes", 42)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	for k, want := range map[string]any{
		"request_id": "req-1", "component": "atlas", "dataset": "ecmwf",
		"variable": "tp", "cache": "miss", "msg": "rendered", "bytes": float64(42),
	} {
		if line[k] != want {
			t.Fatalf("%s=%v want %v", k, line[k], want)
		}
	}
}

func TestWithRequestID_Generates(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if s, _ := ctx.Value(ctxReqIDKey).(string); len(s) != 16 {
		t.Fatalf("generated id %q", s)
	}
	if WithRender(ctx, "", "") != ctx {
		t.Fatalf("empty render tags should not wrap the context")
	}
}

func TestSlogBridge_GroupsErrorsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	base := Build(Config{Level: "debug"}, &buf)
	log := NewSlog(&base).With("svc", "atlas").WithGroup("render")
	log.Warn("slow", "dur", 1500*time.Millisecond, "err", errors.New("boom"), slog.Group("size", "w", 12))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	for k, want := range map[string]any{
		"level": "warn", "svc": "atlas", "render.err": "boom", "render.size.w": float64(12),
	} {
		if line[k] != want {
			t.Fatalf("%s=%v want %v", k, line[k], want)
		}
	}
	if _, ok := line["render.dur"]; !ok {
		t.Fatalf("duration attr missing: %v", line)
	}

	buf.Reset()
	base = Build(Config{Level: "warn"}, &buf)
	quiet := NewSlog(&base)
	if quiet.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info enabled at warn level")
	}
	quiet.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %s", buf.String())
	}
	_ = Build(Config{Level: "info"}, &buf)
}
