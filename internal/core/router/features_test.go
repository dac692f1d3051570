package router

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mohammed-shakir/repp-atlas/internal/core/model"
)

func TestParseBBOX_Valid(t *testing.T) {
	bb, err := parseBBOX("33.0,-5.0,42.0,5.0,EPSG:4326")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := model.BBox{X1: 33, Y1: -5, X2: 42, Y2: 5, SRID: "EPSG:4326"}
	if bb != want {
		t.Fatalf("got %+v want %+v", bb, want)
	}
}

func TestParseBBOX_Invalid(t *testing.T) {
	for _, s := range []string{"33,-5,42,5,EPSG:3857", "33,-5,33,5,EPSG:4326", "33,-5,200,5,EPSG:4326"} {
		if _, err := parseBBOX(s); err == nil {
			t.Fatalf("%s: expected error", s)
		}
	}
}

func TestParsePolygon_TypeChecks(t *testing.T) {
	if _, err := parsePolygon(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := parsePolygon(`{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1],[0,0]]]]}`); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := parsePolygon(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`); err == nil {
		t.Fatal("expected error for non-polygon type")
	}
}

func TestParseFeatureQuery(t *testing.T) {
	poly := `{"type":"Polygon","coordinates":[[[33,-5],[42,-5],[42,5],[33,5],[33,-5]]]}`
	q := url.Values{}
	q.Set("bbox", "33,-5,42,5,EPSG:4326")
	q.Set("polygon", poly)
	q.Set("filters", "g_cap_mw > 10")
	q.Add("country", "Kenya")
	q.Add("country", "O'Land")
	req := httptest.NewRequest(http.MethodGet, "/plants/features?"+q.Encode(), nil)

	got, warn, err := ParseFeatureQuery(req, "repp:africa_energy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warn == "" || got.BBox != nil || got.Area == nil {
		t.Fatalf("polygon should win over bbox with a warning: %+v", got)
	}
	if want := "(g_cap_mw > 10) AND country IN ('Kenya','O''Land')"; got.Filters != want {
		t.Fatalf("filters=%q want %q", got.Filters, want)
	}

	for _, raw := range []string{"filters=name+%3D+%27x%27%3B+DROP+TABLE+places", "max=0", "max=lots"} {
		req := httptest.NewRequest(http.MethodGet, "/plants/features?"+raw, nil)
		if _, _, err := ParseFeatureQuery(req, "l"); err == nil {
			t.Fatalf("%s: expected error", raw)
		}
	}
}
