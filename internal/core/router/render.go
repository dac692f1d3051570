package router

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/repp-atlas/internal/cache"
	"github.com/mohammed-shakir/repp-atlas/internal/core/observability"
	"github.com/mohammed-shakir/repp-atlas/internal/grid"
	mylog "github.com/mohammed-shakir/repp-atlas/internal/logger"
	"github.com/mohammed-shakir/repp-atlas/internal/renderevents"
	"github.com/mohammed-shakir/repp-atlas/internal/varplot"
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"tiff": "image/tiff",
	"eps":  "application/postscript",
}

type renderRequest struct {
	Dataset string
	Var     string
	Format  string
	Opts    varplot.Options
}

func (a *api) parseRender(q url.Values) (renderRequest, error) {
	rr := renderRequest{
		Dataset: grid.DatasetName(q.Get("dataset")),
		Var:     strings.TrimSpace(q.Get("var")),
		Format:  strings.ToLower(strings.TrimSpace(q.Get("format"))),
	}
	if rr.Dataset == "" || rr.Var == "" {
		return rr, badRequest("dataset and var are required")
	}
	if rr.Format == "" {
		rr.Format = "png"
	}
	if _, ok := contentTypes[rr.Format]; !ok {
		return rr, badRequest("unsupported format %q", rr.Format)
	}

	o := varplot.Options{
		RunLabel:      q.Get("run"),
		Colormap:      q.Get("cmap"),
		Projection:    q.Get("proj"),
		Title:         q.Get("title"),
		ColorbarLabel: q.Get("label"),
		Coastlines:    a.Basemap,
		SkipDisplay:   true,
		DPI:           a.Config.RenderDPI,
		Logger:        a.Logger,
	}
	if src := q.Get("source"); src != "" {
		o.Source = src
	}

	switch s := strings.TrimSpace(q.Get("step")); s {
	case "":
	case "none":
		o.Step = grid.NoStep()
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return rr, badRequest("invalid step %q", s)
		}
		o.Step = grid.Step(n)
	}

	var err error
	if o.ValueMin, err = optFloat(q, "vmin"); err != nil {
		return rr, err
	}
	if o.ValueMax, err = optFloat(q, "vmax"); err != nil {
		return rr, err
	}
	if g := q.Get("gridlines"); g != "" {
		show, err := strconv.ParseBool(g)
		if err != nil {
			return rr, badRequest("invalid gridlines %q", g)
		}
		o.HideGridlines = !show
	}
	if d := q.Get("dpi"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 36 || n > 600 {
			return rr, badRequest("dpi must be within 36..600")
		}
		o.DPI = n
	}
	if w, h := q.Get("width"), q.Get("height"); w != "" || h != "" {
		fw, err1 := strconv.ParseFloat(w, 64)
		fh, err2 := strconv.ParseFloat(h, 64)
		if err1 != nil || err2 != nil || fw <= 0 || fh <= 0 || fw > 40 || fh > 40 {
			return rr, badRequest("width and height must be positive inches up to 40")
		}
		o.FigureSize = varplot.Size{Width: fw, Height: fh}
	}
	rr.Opts = o
	return rr, nil
}

func optFloat(q url.Values, k string) (*float64, error) {
	s := strings.TrimSpace(q.Get(k))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, badRequest("invalid %s %q", k, s)
	}
	return varplot.Float(f), nil
}

func (a *api) handleRender(w http.ResponseWriter, r *http.Request) {
	rr, err := a.parseRender(r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		observability.ObserveRender("variable", "bad_request", 0)
		return
	}
	ev := renderevents.Event{Kind: "variable", Dataset: rr.Dataset, Variable: rr.Var, Format: rr.Format}
	ctx := mylog.WithRender(r.Context(), rr.Dataset, rr.Var)

	a.serveCached(w, r.WithContext(ctx), ev, func(ctx context.Context, buf *bytes.Buffer) (string, error) {
		ds, err := a.Datasets.Open(rr.Dataset)
		if err != nil {
			return "", err
		}
		fig, _, err := varplot.Render(ctx, ds, rr.Var, rr.Opts)
		if err != nil {
			return "", err
		}
		wt, err := fig.WriterTo(rr.Format, rr.Opts.DPI)
		if err != nil {
			return "", err
		}
		if _, err := wt.WriteTo(buf); err != nil {
			return "", err
		}
		return contentTypes[rr.Format], nil
	})
}

// figureFunc draws one figure into buf and returns its content type.
type figureFunc func(ctx context.Context, buf *bytes.Buffer) (string, error)

// serveCached answers from the render cache when it can, otherwise draws the
// figure, stores it and serves it. nocache=1 skips the cache both ways.
func (a *api) serveCached(w http.ResponseWriter, r *http.Request, ev renderevents.Event, draw figureFunc) {
	start := time.Now()
	ctx := r.Context()
	q := r.URL.Query()
	// ev.Dataset carries the canonical name
	q.Del("dataset")
	key := a.Renders.Key(ev.Kind, ev.Dataset, q)
	bypass := q.Get("nocache") != ""

	if !bypass {
		if e, ok := a.Renders.Get(ctx, key); ok {
			a.serveFigure(w, e, "hit")
			observability.ObserveRender(ev.Kind, "ok", time.Since(start).Seconds())
			a.publish(ev, "hit", len(e.Body), start)
			return
		}
	}

	var buf bytes.Buffer
	ct, err := draw(ctx, &buf)
	if err != nil {
		observability.ObserveRender(ev.Kind, outcomeOf(a.fail(w, r, err)), 0)
		return
	}

	e := cache.Entry{ContentType: ct, Body: buf.Bytes()}
	result := "miss"
	if bypass {
		result = "bypass"
	} else {
		a.Renders.Put(ctx, ev.Dataset, key, e)
	}
	a.serveFigure(w, e, result)
	observability.ObserveRender(ev.Kind, "ok", time.Since(start).Seconds())
	a.Logger.InfoContext(mylog.WithCache(ctx, result), "figure rendered",
		"kind", ev.Kind, "format", ev.Format, "bytes", len(e.Body), "duration", time.Since(start).String())
	a.publish(ev, result, len(e.Body), start)
}

func (a *api) serveFigure(w http.ResponseWriter, e cache.Entry, result string) {
	w.Header().Set("Content-Type", e.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Body)))
	w.Header().Set("X-Cache", result)
	_, _ = w.Write(e.Body)
}

func (a *api) publish(ev renderevents.Event, result string, n int, start time.Time) {
	ev.Cache = result
	ev.Bytes = n
	ev.DurationMS = time.Since(start).Milliseconds()
	a.Events.Publish(ev)
}

func (a *api) handleDatasets(w http.ResponseWriter, r *http.Request) {
	names, err := a.Datasets.Names()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, map[string]any{"datasets": names})
}
