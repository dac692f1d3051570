package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ctessum/sparse"

	"github.com/mohammed-shakir/repp-atlas/internal/cache"
	"github.com/mohammed-shakir/repp-atlas/internal/cache/redisstore"
	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/core/model"
	"github.com/mohammed-shakir/repp-atlas/internal/grid"
	h3mapper "github.com/mohammed-shakir/repp-atlas/internal/mapper/h3"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
)

type memDatasets map[string]*grid.Dataset

func (m memDatasets) Open(name string) (*grid.Dataset, error) {
	ds, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", grid.ErrNoDataset, name)
	}
	return ds, nil
}

func (m memDatasets) Names() ([]string, error) { return []string{"ecmwf"}, nil }

type staticPlants plants.Table

func (s staticPlants) Load(context.Context) (plants.Table, error) { return plants.Table(s), nil }

type fakeForwarder struct{ got model.FeatureQuery }

func (f *fakeForwarder) ForwardGetFeature(w http.ResponseWriter, _ *http.Request, q model.FeatureQuery, accept string) {
	f.got = q
	w.Header().Set("Content-Type", accept)
	_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[]}`)
}

func forecast() *grid.Dataset {
	ds := grid.NewDataset()
	ds.Coords["latitude"] = []float64{-2, 0, 2}
	ds.Coords["longitude"] = []float64{34, 36, 38, 40}
	tp := sparse.ZerosDense(3, 3, 4)
	for i := range tp.Elements {
		tp.Elements[i] = float64(i)
	}
	ds.Vars["tp"] = &grid.Variable{
		Name: "tp", Dims: []string{"step", "latitude", "longitude"}, Data: tp,
		Attrs: map[string]string{"units": "mm"},
	}
	return ds
}

func table() plants.Table {
	p := func(name, country string, src plants.Source, mw float64, st plants.ElecStatus, lon, lat float64) plants.Plant {
		return plants.Plant{Name: name, Country: country, Source: src, CapacityMW: mw, ElecStatus: st,
			InfraStatus: plants.Existing, Lon: lon, Lat: lat}
	}
	return plants.Table{
		p("Garissa", "Kenya", plants.Solar, 10, plants.Operating, 39.6, -0.45),
		p("Isiolo", "Kenya", plants.Solar, 5, plants.Proposed, 37.6, 0.35),
		p("Turkana", "Kenya", plants.Wind, 20, plants.Operating, 36.8, 2.5),
		p("Bujagali", "Uganda", plants.Hydro, 250, plants.Operating, 33.1, 0.5),
		p("Noor", "Morocco", plants.Solar, 500, plants.Operating, -6.8, 31.0),
	}
}

func newServer(t *testing.T, withCache bool) (*httptest.Server, *fakeForwarder) {
	t.Helper()
	var renders *cache.Renders
	if withCache {
		renders = newRenders(t)
	}
	return serverWith(t, renders)
}

func newRenders(t *testing.T) *cache.Renders {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return cache.New(rc, time.Minute, time.Second, nil)
}

func serverWith(t *testing.T, renders *cache.Renders) (*httptest.Server, *fakeForwarder) {
	t.Helper()
	cfg := config.FromEnv()
	cfg.RenderDPI = 40
	cfg.PlantsLayer = "repp:africa_energy"

	ff := &fakeForwarder{}
	h := New(Deps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:   cfg,
		Datasets: memDatasets{"ecmwf": forecast()},
		Plants:   staticPlants(table()),
		Features: ff,
		Mapper:   h3mapper.New(),
		Renders:  renders,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, ff
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestRender_CacheMissThenHit(t *testing.T) {
	srv, _ := newServer(t, true)
	path := "/render?dataset=ecmwf&var=tp&step=1&width=4&height=2"

	resp, body := get(t, srv, path)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" || !strings.HasPrefix(body, "\x89PNG") {
		t.Fatalf("content-type=%q", ct)
	}
	if x := resp.Header.Get("X-Cache"); x != "miss" {
		t.Fatalf("X-Cache=%q want miss", x)
	}

	resp, again := get(t, srv, "/render?height=2&width=4&step=1&var=tp&dataset=ecmwf")
	if x := resp.Header.Get("X-Cache"); x != "hit" || again != body {
		t.Fatalf("X-Cache=%q want hit with identical body", x)
	}

	resp, _ = get(t, srv, path+"&nocache=1")
	if x := resp.Header.Get("X-Cache"); x != "bypass" {
		t.Fatalf("X-Cache=%q want bypass", x)
	}
}

func TestRender_FileNameSharesDatasetIndex(t *testing.T) {
	renders := newRenders(t)
	srv, _ := serverWith(t, renders)
	path := "/render?dataset=ecmwf.nc&var=tp&width=4&height=2"

	resp, body := get(t, srv, path)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	resp, _ = get(t, srv, "/render?dataset=ecmwf&var=tp&width=4&height=2")
	if x := resp.Header.Get("X-Cache"); x != "hit" {
		t.Fatalf("bare name X-Cache=%q want hit", x)
	}

	n, err := renders.InvalidateDataset(context.Background(), "ecmwf")
	if err != nil || n != 1 {
		t.Fatalf("InvalidateDataset=%d,%v want 1 key", n, err)
	}
	resp, _ = get(t, srv, path)
	if x := resp.Header.Get("X-Cache"); x != "miss" {
		t.Fatalf("after invalidation X-Cache=%q want miss", x)
	}
}

func TestRender_NegativeStepIsFromEnd(t *testing.T) {
	srv, _ := newServer(t, false)
	resp, body := get(t, srv, "/render?dataset=ecmwf&var=tp&step=-1&width=4&height=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
}

func TestRender_Errors(t *testing.T) {
	srv, _ := newServer(t, false)
	for path, want := range map[string]int{
		"/render?dataset=ecmwf":                          http.StatusBadRequest,
		"/render?dataset=ecmwf&var=missing":              http.StatusNotFound,
		"/render?dataset=gfs&var=tp":                     http.StatusNotFound,
		"/render?dataset=ecmwf&var=tp&step=x":            http.StatusBadRequest,
		"/render?dataset=ecmwf&var=tp&step=99":           http.StatusBadRequest,
		"/render?dataset=ecmwf&var=tp&step=-4":           http.StatusBadRequest,
		"/render?dataset=ecmwf&var=tp&step=none":         http.StatusBadRequest,
		"/render?dataset=ecmwf&var=tp&format=bmp":        http.StatusBadRequest,
		"/render?dataset=ecmwf&var=tp&cmap=no-such-cmap": http.StatusBadRequest,
		"/render?dataset=ecmwf&var=tp&vmin=abc":          http.StatusBadRequest,
	} {
		resp, body := get(t, srv, path)
		if resp.StatusCode != want {
			t.Fatalf("%s: status=%d want %d (%s)", path, resp.StatusCode, want, body)
		}
	}
}

func TestRender_SVGWithoutCache(t *testing.T) {
	srv, _ := newServer(t, false)
	resp, body := get(t, srv, "/render?dataset=ecmwf&var=tp&format=svg&gridlines=false&width=4&height=2")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "<svg") {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if x := resp.Header.Get("X-Cache"); x != "miss" {
		t.Fatalf("X-Cache=%q", x)
	}
}

func TestDatasets(t *testing.T) {
	srv, _ := newServer(t, false)
	_, body := get(t, srv, "/datasets")
	if strings.TrimSpace(body) != `{"datasets":["ecmwf"]}` {
		t.Fatalf("body=%s", body)
	}
}

func TestCapacity_JSON(t *testing.T) {
	srv, _ := newServer(t, false)
	resp, body := get(t, srv, "/capacity?status=operating&countries=Kenya")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var out struct {
		TotalMW float64 `json:"total_mw"`
		Rows    []struct {
			Country    string  `json:"country"`
			Source     string  `json:"source"`
			CapacityMW float64 `json:"capacity_mw"`
		} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalMW != 30 || len(out.Rows) != 2 || out.Rows[0].Source != "Solar power" || out.Rows[0].CapacityMW != 10 {
		t.Fatalf("unexpected %+v", out)
	}

	_, body = get(t, srv, "/capacity?group=source&countries=all")
	if !strings.Contains(body, `"total_mw":785`) {
		t.Fatalf("all countries total: %s", body)
	}

	for _, p := range []string{"/capacity?status=sometimes", "/capacity?group=planet"} {
		if resp, _ := get(t, srv, p); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d want 400", p, resp.StatusCode)
		}
	}
}

func TestCapacity_Charts(t *testing.T) {
	srv, _ := newServer(t, true)
	for _, p := range []string{
		"/capacity/chart",
		"/capacity/chart?kind=countries&status=operating",
		"/capacity/chart?kind=map&format=svg",
		"/capacity/mix",
	} {
		resp, body := get(t, srv, p)
		if resp.StatusCode != http.StatusOK || len(body) == 0 {
			t.Fatalf("%s: status=%d body=%.200s", p, resp.StatusCode, body)
		}
	}
	if resp, _ := get(t, srv, "/capacity/chart"); resp.Header.Get("X-Cache") != "hit" {
		t.Fatalf("second chart request should hit the cache")
	}
	if resp, _ := get(t, srv, "/capacity/chart?kind=pie"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown kind status=%d", resp.StatusCode)
	}
	if resp, _ := get(t, srv, "/capacity/mix?countries=Chad"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("mix without data status=%d want 404", resp.StatusCode)
	}
}

func TestCapacity_Cells(t *testing.T) {
	srv, _ := newServer(t, false)
	resp, body := get(t, srv, "/capacity/cells?res=3&parent=1&countries=Kenya,Uganda")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var fc struct {
		Features []struct {
			Properties struct {
				Res        int     `json:"res"`
				CapacityMW float64 `json:"capacity_mw"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal([]byte(body), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var sum float64
	for _, f := range fc.Features {
		if f.Properties.Res != 1 {
			t.Fatalf("res=%d want 1", f.Properties.Res)
		}
		sum += f.Properties.CapacityMW
	}
	if len(fc.Features) == 0 || sum != 285 {
		t.Fatalf("cells=%d sum=%v want total 285", len(fc.Features), sum)
	}
	if resp, _ := get(t, srv, "/capacity/cells?res=3&parent=5"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("parent finer than res: status=%d", resp.StatusCode)
	}
}

func TestPlants_ListingsAndMap(t *testing.T) {
	srv, _ := newServer(t, false)

	_, body := get(t, srv, "/plants?country=Kenya&source=solar&format=csv")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "Garissa,") {
		t.Fatalf("csv=%q", body)
	}

	_, body = get(t, srv, "/plants?status=operating")
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal([]byte(body), &fc); err != nil || len(fc.Features) != 3 {
		t.Fatalf("geojson features=%d err=%v", len(fc.Features), err)
	}

	resp, body := get(t, srv, "/plants/map?country=Kenya")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Garissa") {
		t.Fatalf("map status=%d", resp.StatusCode)
	}
	if resp, _ := get(t, srv, "/plants/map?country=Chad"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("map without plants status=%d want 404", resp.StatusCode)
	}
	if resp, _ := get(t, srv, "/plants?source=geothermal"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad source status=%d", resp.StatusCode)
	}
}

func TestFeatures_Forwarded(t *testing.T) {
	srv, ff := newServer(t, false)
	q := url.Values{}
	q.Set("bbox", "33,-5,42,5,EPSG:4326")
	q.Set("country", "Kenya,Uganda")
	q.Set("max", "50")
	resp, body := get(t, srv, "/plants/features?"+q.Encode())
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "FeatureCollection") {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	if ff.got.Layer != "repp:africa_energy" || ff.got.BBox == nil || ff.got.MaxFeatures != 50 ||
		ff.got.Filters != "country IN ('Kenya','Uganda')" {
		t.Fatalf("forwarded %+v", ff.got)
	}

	if resp, _ := get(t, srv, "/plants/features?bbox=1,2,3"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad bbox status=%d", resp.StatusCode)
	}
}
