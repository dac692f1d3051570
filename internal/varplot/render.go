// Package varplot renders one variable of a gridded dataset onto a map.
package varplot

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mohammed-shakir/repp-atlas/internal/grid"
)

// Render draws variable name of ds as a colored mesh with coastlines,
// gridlines, a title and a colorbar. It returns the figure and its map axes.
//
// The dataset is never modified. Data coordinates are always read as lon/lat
// regardless of the display projection unless Extra["transform"] says
// otherwise.
func Render(ctx context.Context, ds *grid.Dataset, name string, opts Options) (*Figure, *plot.Plot, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With("variable", name)

	v, err := ds.Lookup(name)
	if err != nil {
		return nil, nil, err
	}

	sel, err := v.Select(opts.Step)
	if err != nil {
		return nil, nil, fmt.Errorf("select %s %s: %w", name, opts.Step, err)
	}
	slice, err := sel.Slice()
	if err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", name, err)
	}

	label := opts.ColorbarLabel
	if label == "" {
		label = ColorbarLabel(v.Attrs, name)
	}

	st, err := decodeMeshArgs(meshArgs(opts, label))
	if err != nil {
		return nil, nil, err
	}
	cm, err := Colormap(st.Colormap)
	if err != nil {
		return nil, nil, err
	}
	lo, hi := scaleRange(slice, st.Min, st.Max)
	cm.SetMax(hi)
	cm.SetMin(lo)
	cm.SetAlpha(st.Alpha)

	tr, err := newTransform(st.SourceCRS, opts.Projection)
	if err != nil {
		return nil, nil, err
	}
	x, y := ds.Axes(slice)
	mesh, err := newMesh(slice, x, y, tr, cm)
	if err != nil {
		return nil, nil, err
	}
	mesh.EdgeStyle = edgeStyle(st)

	p := plot.New()
	p.Add(mesh)
	fig := &Figure{
		Width:  vg.Length(opts.FigureSize.Width) * vg.Inch,
		Height: vg.Length(opts.FigureSize.Height) * vg.Inch,
		Map:    p,
		Mesh:   mesh,
	}

	coastStyle, err := coastlineStyle(opts.CoastlineStyle)
	if err != nil {
		return nil, nil, err
	}
	if opts.Coastlines != nil {
		lines, err := opts.Coastlines.Coastlines()
		if err != nil {
			return nil, nil, err
		}
		fig.coast = newCoastlines(lines, tr, coastStyle)
		p.Add(fig.coast)
	} else {
		log.Debug("no coastline basemap configured")
	}

	if opts.HideGridlines {
		p.HideAxes()
	} else {
		xe, ye := grid.Edges(x), grid.Edges(y)
		g := newGraticule(tr, minOf(xe), maxOf(xe), minOf(ye), maxOf(ye))
		p.Add(g)
		xt, yt := g.ticks()
		p.X.Tick.Marker = xt
		p.Y.Tick.Marker = yt
	}

	p.Title.Text = Title(opts.Title, opts.Source, name, opts.RunLabel, opts.Step)

	if st.AddColorbar {
		cb := plot.New()
		cb.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
		cb.HideX()
		cb.Y.Label.Text = st.Label
		// keep the bar aligned with the map area below the title
		cb.Title.Text = " "
		fig.Colorbar = cb
	}

	if opts.SavePath != "" {
		if err := fig.Save(opts.SavePath, opts.DPI); err != nil {
			return nil, nil, fmt.Errorf("save figure %s: %w", opts.SavePath, err)
		}
		log.Info("figure saved", "path", opts.SavePath, "dpi", opts.DPI)
	}

	if !opts.SkipDisplay {
		pr := opts.Presenter
		if pr == nil {
			pr = ViewerPresenter{DPI: opts.DPI, Logger: opts.Logger}
		}
		if err := pr.Present(ctx, fig); err != nil {
			return nil, nil, err
		}
	}
	return fig, p, nil
}

func minOf(v []float64) float64 {
	m := math.Inf(1)
	for _, f := range v {
		m = math.Min(m, f)
	}
	return m
}

func maxOf(v []float64) float64 {
	m := math.Inf(-1)
	for _, f := range v {
		m = math.Max(m, f)
	}
	return m
}
