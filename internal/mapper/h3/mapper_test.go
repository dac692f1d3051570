package h3mapper

import (
	"testing"

	h3 "github.com/uber/h3-go/v4"
)

func TestCellForPoint(t *testing.T) {
	m := New()
	// Lake Turkana wind farm
	got, err := m.CellForPoint(36.8, 2.5, 5)
	if err != nil {
		t.Fatalf("CellForPoint: %v", err)
	}
	want, _ := h3.LatLngToCell(h3.LatLng{Lat: 2.5, Lng: 36.8}, 5)
	if got != want.String() {
		t.Fatalf("cell=%s want %s", got, want)
	}
	again, _ := m.CellForPoint(36.8, 2.5, 5)
	if again != got {
		t.Fatalf("expected deterministic cell")
	}
}

func TestCellForPoint_Invalid(t *testing.T) {
	m := New()
	if _, err := m.CellForPoint(36.8, 2.5, -1); err == nil {
		t.Fatalf("expected error for res=-1")
	}
	if _, err := m.CellForPoint(36.8, 2.5, 16); err == nil {
		t.Fatalf("expected error for res=16")
	}
	if _, err := m.CellForPoint(200, 2.5, 5); err == nil {
		t.Fatalf("expected error for lon=200")
	}
}

func TestBoundary_ClosedRingAroundPoint(t *testing.T) {
	m := New()
	cell, err := m.CellForPoint(32.58, 0.31, 6)
	if err != nil {
		t.Fatalf("CellForPoint: %v", err)
	}
	ring, err := m.Boundary(cell)
	if err != nil {
		t.Fatalf("Boundary: %v", err)
	}
	if len(ring) < 7 || ring[0] != ring[len(ring)-1] {
		t.Fatalf("expected closed hexagon ring, got %v", ring)
	}
	for _, p := range ring {
		if p[0] < 31 || p[0] > 34 || p[1] < -1 || p[1] > 2 {
			t.Fatalf("vertex %v far from the cell center", p)
		}
	}
	if _, err := m.Boundary("not-a-cell"); err == nil {
		t.Fatalf("expected parse error")
	}
}
