package invalidation

import (
	"testing"
	"time"
)

func mustTS() time.Time { return time.Date(2025, 10, 26, 12, 30, 45, 0, time.UTC) }

func TestEvent_Validate(t *testing.T) {
	ok := Event{Version: 1, Op: "update", Dataset: "ecmwf-2025102612", TS: mustTS()}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}

	bad := map[string]Event{
		"version": {Version: 2, Op: "update", Dataset: "d", TS: mustTS()},
		"op":      {Version: 1, Op: "insert", Dataset: "d", TS: mustTS()},
		"dataset": {Version: 1, Op: "delete", Dataset: "  ", TS: mustTS()},
		"path":    {Version: 1, Op: "delete", Dataset: "../etc", TS: mustTS()},
		"ts":      {Version: 1, Op: "delete", Dataset: "d"},
	}
	for name, ev := range bad {
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDedupe_NewerOnly(t *testing.T) {
	d := NewDedupe(8)
	ev := Event{Dataset: "a", TS: mustTS()}
	if !d.ShouldApply(ev) {
		t.Fatalf("first event must apply")
	}
	if d.ShouldApply(ev) {
		t.Fatalf("replay must be dropped")
	}
	older := Event{Dataset: "a", TS: mustTS().Add(-time.Minute)}
	if d.ShouldApply(older) {
		t.Fatalf("older event must be dropped")
	}
	if !d.ShouldApply(Event{Dataset: "b", TS: older.TS}) {
		t.Fatalf("datasets are tracked separately")
	}
	d.Forget("a")
	if !d.ShouldApply(ev) {
		t.Fatalf("forgotten dataset must apply again")
	}
}
