package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gonum.org/v1/plot"

	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
	"github.com/mohammed-shakir/repp-atlas/internal/charts"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
	"github.com/mohammed-shakir/repp-atlas/internal/renderevents"
)

// PlantsDataset is the dataset name capacity figures are cached under; an
// invalidation event for it drops them.
const PlantsDataset = "plants"

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// countries reads the allow-list; "all" lifts it and absence means the
// configured default.
func (a *api) countries(q url.Values) []string {
	cs := splitList(q["countries"])
	if len(cs) == 1 && strings.EqualFold(cs[0], "all") {
		return nil
	}
	if len(cs) == 0 {
		return a.Config.Countries
	}
	return cs
}

func parseGroup(s string) (capacity.GroupBy, error) {
	switch s {
	case "", "country_source":
		return capacity.ByCountrySource, nil
	case "country":
		return capacity.ByCountry, nil
	case "source":
		return capacity.BySource, nil
	}
	return 0, badRequest("invalid group %q", s)
}

func parseStatus(s string) (capacity.StatusPredicate, error) {
	pred, ok := capacity.ParseStatus(s)
	if !ok {
		return nil, badRequest("invalid status %q", s)
	}
	return pred, nil
}

func chartFormat(q url.Values) (string, error) {
	f := strings.ToLower(q.Get("format"))
	switch f {
	case "":
		return "png", nil
	case "png", "svg", "pdf":
		return f, nil
	}
	return "", badRequest("unsupported chart format %q", f)
}

func (a *api) handleCapacity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pred, err := parseStatus(q.Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	by, err := parseGroup(q.Get("group"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	t, err := a.Plants.Load(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	cs := a.countries(q)
	totals := capacity.Aggregate(t, cs, pred, by)
	if cs == nil {
		cs = []string{}
	}
	writeJSON(w, map[string]any{
		"countries": cs,
		"total_mw":  totals.Sum(),
		"rows":      totals.Rows(),
	})
}

// handleCapacityChart draws kind=compare (operating vs planned per source,
// the default), kind=countries (stacked capacity per country) or kind=map
// (plants on the continent).
func (a *api) handleCapacityChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := chartFormat(q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	kind := q.Get("kind")
	if kind == "" {
		kind = "compare"
	}
	var pred capacity.StatusPredicate
	if kind == "countries" {
		if pred, err = parseStatus(q.Get("status")); err != nil {
			a.fail(w, r, err)
			return
		}
	}

	var build func(plants.Table, []string) (*plot.Plot, error)
	size := charts.BarSize
	switch kind {
	case "compare":
		build = func(t plants.Table, cs []string) (*plot.Plot, error) {
			return charts.OperatingVsPlanned(capacity.Compare(t, cs), "Operating vs planned capacity by source")
		}
	case "countries":
		build = func(t plants.Table, cs []string) (*plot.Plot, error) {
			pv := capacity.PivotBySource(capacity.Aggregate(t, cs, pred, capacity.ByCountrySource))
			return charts.CountryStack(pv, "Renewable capacity by country")
		}
	case "map":
		size = charts.MapSize
		build = func(t plants.Table, cs []string) (*plot.Plot, error) {
			return charts.ContinentMap(t, cs, a.Basemap)
		}
	default:
		a.fail(w, r, badRequest("invalid chart kind %q", kind))
		return
	}

	ev := renderevents.Event{Kind: "capacity_" + kind, Dataset: PlantsDataset, Format: format}
	a.serveCached(w, r, ev, func(ctx context.Context, buf *bytes.Buffer) (string, error) {
		t, err := a.Plants.Load(ctx)
		if err != nil {
			return "", err
		}
		p, err := build(t, a.countries(q))
		if err != nil {
			return "", err
		}
		if err := charts.Write(buf, p, size, format); err != nil {
			return "", err
		}
		return contentTypes[format], nil
	})
}

func (a *api) handleCapacityMix(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := chartFormat(q)
	if err == nil && format == "pdf" {
		err = badRequest("mix chart supports png and svg")
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	pred, err := parseStatus(q.Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	ev := renderevents.Event{Kind: "capacity_mix", Dataset: PlantsDataset, Format: format}
	a.serveCached(w, r, ev, func(ctx context.Context, buf *bytes.Buffer) (string, error) {
		t, err := a.Plants.Load(ctx)
		if err != nil {
			return "", err
		}
		pv := capacity.PivotBySource(capacity.Aggregate(t, a.countries(q), pred, capacity.ByCountrySource))
		c, err := charts.SourceMix(pv, "Renewable source mix by country")
		if err != nil {
			return "", err
		}
		if err := charts.WriteSourceMix(buf, c, format); err != nil {
			return "", err
		}
		return contentTypes[format], nil
	})
}

// handleCapacityCells bins capacity into H3 cells at res (default from
// config), optionally rolled up to parent.
func (a *api) handleCapacityCells(w http.ResponseWriter, r *http.Request) {
	if a.Mapper == nil {
		http.Error(w, "cell binning is not configured", http.StatusNotImplemented)
		return
	}
	q := r.URL.Query()
	res := a.Config.H3Res
	if s := q.Get("res"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > 15 {
			a.fail(w, r, badRequest("res must be within 0..15"))
			return
		}
		res = n
	}
	parent := -1
	if s := q.Get("parent"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > res {
			a.fail(w, r, badRequest("parent must be within 0..res"))
			return
		}
		parent = n
	}
	pred, err := parseStatus(q.Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	t, err := a.Plants.Load(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sel := t.InCountries(a.countries(q)).Filter(pred)
	b := capacity.Binner{Mapper: a.Mapper, Res: res}
	cells, err := b.ByCell(sel)
	if err == nil && parent >= 0 {
		cells, err = b.RollUp(cells, parent)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_ = capacity.WriteCellsGeoJSON(w, cells)
}
