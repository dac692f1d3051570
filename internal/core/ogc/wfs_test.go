package ogc

import (
	"net/url"
	"strings"
	"testing"

	"github.com/mohammed-shakir/repp-atlas/internal/core/model"
)

func TestBuildGetFeatureParams_CountryFilter(t *testing.T) {
	q := model.FeatureQuery{
		Layer:       "repp:africa_energy",
		Filters:     InFilter("country", []string{"Kenya", "Cote d'Ivoire"}),
		MaxFeatures: 500,
	}
	v := BuildGetFeatureParams(q)
	assertHas := func(k, want string) {
		if got := v.Get(k); got != want {
			t.Fatalf("param %q got %q want %q", k, got, want)
		}
	}
	assertHas("service", "WFS")
	assertHas("request", "GetFeature")
	assertHas("typeNames", "repp:africa_energy")
	assertHas("outputFormat", "application/json")
	assertHas("count", "500")
	assertHas("cql_filter", "country IN ('Kenya','Cote d''Ivoire')")
}

func TestBuildGetFeatureParams_WithBBox(t *testing.T) {
	q := model.FeatureQuery{
		Layer: "repp:africa_energy",
		BBox:  &model.BBox{X1: 21, Y1: -12, X2: 52, Y2: 23, SRID: "EPSG:4326"},
	}
	v := BuildGetFeatureParams(q)
	if got := v.Get("bbox"); got != "21.000000,-12.000000,52.000000,23.000000,EPSG:4326" {
		t.Fatalf("bbox=%q", got)
	}
	if v.Get("cql_filter") != "" {
		t.Fatalf("no filter expected")
	}
}

func TestBuildGetFeatureParams_AreaWinsOverBBox(t *testing.T) {
	poly := `{"type":"Polygon","coordinates":[[[33,-5],[42,-5],[42,5],[33,5],[33,-5]]]}`
	q := model.FeatureQuery{
		Layer:   "repp:africa_energy",
		BBox:    &model.BBox{X1: 33, Y1: -5, X2: 42, Y2: 5, SRID: "EPSG:4326"},
		Area:    &model.Polygon{GeoJSON: poly},
		Filters: "g_cap_mw > 10",
	}
	v := BuildGetFeatureParams(q)
	cql := v.Get("cql_filter")
	if !strings.Contains(cql, "INTERSECTS(geom, SRID=4326;POLYGON") || !strings.HasPrefix(cql, "(g_cap_mw > 10) AND") {
		t.Fatalf("expected area INTERSECTS combined with filters; got %q", cql)
	}
	if got := v.Get("bbox"); got != "" {
		t.Fatalf("bbox must be empty when an area is provided; got %q", got)
	}
}

func TestGeoJSONToWKT(t *testing.T) {
	mp := `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[2,2],[3,2],[3,3],[2,2]]]]}`
	wkt, err := GeoJSONToWKT(mp)
	if err != nil {
		t.Fatalf("GeoJSONToWKT: %v", err)
	}
	if !strings.HasPrefix(wkt, "SRID=4326;MULTIPOLYGON(((0.00000000 0.00000000") {
		t.Fatalf("wkt=%q", wkt)
	}
	if _, err := GeoJSONToWKT(`{"type":"Point","coordinates":[1,2]}`); err == nil {
		t.Fatalf("expected unsupported type error")
	}
	if _, err := GeoJSONToWKT(`{"type":"Polygon","coordinates":[[[0,0],[1,1]]]}`); err == nil {
		t.Fatalf("expected short ring error")
	}
}

func TestOWSEndpoint(t *testing.T) {
	base := "http://localhost:8080/geoserver/"
	want := "http://localhost:8080/geoserver/ows"
	if got := OWSEndpoint(base); got != want {
		t.Fatalf("OWSEndpoint got %q want %q", got, want)
	}
	if _, err := url.Parse(OWSEndpoint(base)); err != nil {
		t.Fatalf("invalid URL from OWSEndpoint: %v", err)
	}
	if InFilter("country", nil) != "" {
		t.Fatalf("empty list must give empty filter")
	}
}
