package charts

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
	"github.com/mohammed-shakir/repp-atlas/internal/varplot"
)

// ContinentMap scatters every plant over Africa: allow-list countries in
// blue, the rest in grey, over coastlines from bm when given.
func ContinentMap(t plants.Table, allow []string, bm varplot.Basemap) (*plot.Plot, error) {
	if len(t) == 0 {
		return nil, capacity.ErrNoData
	}
	in := map[string]bool{}
	for _, c := range allow {
		in[c] = true
	}
	var inside, outside plotter.XYs
	for _, p := range t {
		xy := plotter.XY{X: p.Lon, Y: p.Lat}
		if in[p.Country] {
			inside = append(inside, xy)
		} else {
			outside = append(outside, xy)
		}
	}

	p := plot.New()
	p.Title.Text = "Renewable power plants in Africa"
	lonLo, lonHi, latLo, latHi := continentExtent[0], continentExtent[1], continentExtent[2], continentExtent[3]
	coast := map[string]any{"linewidth": 0.5}
	if err := varplot.GeoAxes(p, bm, coast, lonLo, lonHi, latLo, latHi); err != nil {
		return nil, err
	}

	layers := []struct {
		xys   plotter.XYs
		color color.Color
		label string
	}{
		{outside, otherColor, "Other countries"},
		{inside, allowListColor, "ICPAC countries"},
	}
	for _, l := range layers {
		if len(l.xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(l.xys)
		if err != nil {
			return nil, fmt.Errorf("scatter: %w", err)
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Color = l.color
		p.Add(s)
		p.Legend.Add(l.label, s)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	// scatter data must not widen the map extent
	p.X.Min, p.X.Max = lonLo, lonHi
	p.Y.Min, p.Y.Max = latLo, latHi
	return p, nil
}
