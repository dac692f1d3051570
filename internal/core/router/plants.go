package router

import (
	"net/http"
	"strings"

	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
	"github.com/mohammed-shakir/repp-atlas/internal/webmap"
)

func parseSource(s string) (plants.Source, error) {
	if s == "" {
		return "", nil
	}
	src, ok := plants.ParseSource(s)
	if !ok {
		return "", badRequest("invalid source %q", s)
	}
	return src, nil
}

// handlePlants lists plants, largest first when a country is given.
func (a *api) handlePlants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src, err := parseSource(q.Get("source"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	pred, err := parseStatus(q.Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	format := q.Get("format")
	switch format {
	case "", "json", "csv", "text":
	default:
		a.fail(w, r, badRequest("unsupported format %q", format))
		return
	}

	t, err := a.Plants.Load(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var sel plants.Table
	if country := strings.TrimSpace(q.Get("country")); country != "" {
		sel = capacity.Listing(t, country, src, pred)
	} else {
		sel = t.InCountries(a.countries(q)).Filter(func(p plants.Plant) bool {
			return (src == "" || p.Source == src) && pred(p)
		})
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_ = capacity.WriteListingCSV(w, sel)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = capacity.WriteListingText(w, sel)
	default:
		w.Header().Set("Content-Type", "application/geo+json")
		_ = plants.Encode(w, sel)
	}
}

func (a *api) handlePlantsMap(w http.ResponseWriter, r *http.Request) {
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" {
		a.fail(w, r, badRequest("country is required"))
		return
	}
	t, err := a.Plants.Load(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var buf strings.Builder
	if err := webmap.Write(&buf, t, country); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

// handleFeatures passes a spatial plants query through to GeoServer.
func (a *api) handleFeatures(w http.ResponseWriter, r *http.Request) {
	q, warn, err := ParseFeatureQuery(r, a.Config.PlantsLayer)
	if warn != "" {
		a.Logger.WarnContext(r.Context(), warn)
	}
	if err != nil {
		a.fail(w, r, badRequest("%v", err))
		return
	}
	accept := r.Header.Get("Accept")
	if accept == "" || accept == "*/*" {
		accept = "application/json"
	}
	a.Features.ForwardGetFeature(w, r, q, accept)
}
