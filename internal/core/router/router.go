// Package router serves figures, capacity tables and plant data over HTTP.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/repp-atlas/internal/cache"
	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/core/model"
	"github.com/mohammed-shakir/repp-atlas/internal/core/observability"
	"github.com/mohammed-shakir/repp-atlas/internal/grid"
	"github.com/mohammed-shakir/repp-atlas/internal/mapper"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
	"github.com/mohammed-shakir/repp-atlas/internal/renderevents"
	"github.com/mohammed-shakir/repp-atlas/internal/varplot"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Datasets resolves dataset names to opened grids.
type Datasets interface {
	Open(name string) (*grid.Dataset, error)
	Names() ([]string, error)
}

// FeatureForwarder proxies a WFS query to the upstream server.
type FeatureForwarder interface {
	ForwardGetFeature(w http.ResponseWriter, r *http.Request, q model.FeatureQuery, accept string)
}

// Deps are the collaborators of the handlers. Renders, Events, Basemap and
// Features are optional.
type Deps struct {
	Logger   *slog.Logger
	Config   config.Config
	Datasets Datasets
	Basemap  varplot.Basemap
	Plants   plants.Loader
	Features FeatureForwarder
	Mapper   mapper.Interface
	Renders  *cache.Renders
	Events   *renderevents.Publisher
}

type api struct {
	Deps
}

// New mounts the atlas routes on a fresh chi router.
func New(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	a := &api{Deps: d}

	r := chi.NewRouter()
	r.Get("/datasets", a.instrument("/datasets", a.handleDatasets))
	r.Get("/render", a.instrument("/render", a.handleRender))
	r.Route("/capacity", func(r chi.Router) {
		r.Get("/", a.instrument("/capacity", a.handleCapacity))
		r.Get("/chart", a.instrument("/capacity/chart", a.handleCapacityChart))
		r.Get("/mix", a.instrument("/capacity/mix", a.handleCapacityMix))
		r.Get("/cells", a.instrument("/capacity/cells", a.handleCapacityCells))
	})
	r.Route("/plants", func(r chi.Router) {
		r.Get("/", a.instrument("/plants", a.handlePlants))
		r.Get("/map", a.instrument("/plants/map", a.handlePlantsMap))
		if d.Features != nil {
			r.Get("/features", a.instrument("/plants/features", a.handleFeatures))
		}
	})
	return r
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (a *api) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, grid.ErrNotFound), errors.Is(err, grid.ErrNoDataset), errors.Is(err, capacity.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, varplot.ErrOption), errors.Is(err, grid.ErrShape),
		errors.Is(err, grid.ErrIndex):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func outcomeOf(code int) string {
	switch {
	case code < 400:
		return "ok"
	case code == http.StatusNotFound:
		return "not_found"
	case code < 500:
		return "bad_request"
	default:
		return "error"
	}
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) int {
	code := statusOf(err)
	if code >= 500 {
		a.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		http.Error(w, http.StatusText(code), code)
		return code
	}
	a.Logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", code, "err", err)
	http.Error(w, err.Error(), code)
	return code
}

// splitList accepts both repeated params and comma-separated values.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for p := range strings.SplitSeq(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
