package charts

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
)

// CountryStack draws one horizontal bar per country with the sources stacked.
func CountryStack(p capacity.Pivot, title string) (*plot.Plot, error) {
	if len(p.Countries) == 0 {
		return nil, capacity.ErrNoData
	}
	plt := plot.New()
	plt.Title.Text = title
	plt.X.Label.Text = "Capacity (MW)"

	var below *plotter.BarChart
	for j, s := range p.Sources {
		vals := make(plotter.Values, len(p.Countries))
		for i := range p.Countries {
			vals[i] = p.Values[i][j]
		}
		b, err := plotter.NewBarChart(vals, vg.Points(14))
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", s, err)
		}
		b.Horizontal = true
		b.Color = sourceColor(s)
		b.LineStyle.Width = 0
		if below != nil {
			b.StackOn(below)
		}
		below = b
		plt.Add(b)
		plt.Legend.Add(string(s), b)
	}
	plt.NominalY(p.Countries...)
	plt.Legend.Top = true
	plt.X.Min = 0
	return plt, nil
}

// OperatingVsPlanned draws grouped bars per source with MW value labels.
func OperatingVsPlanned(cs []capacity.Comparison, title string) (*plot.Plot, error) {
	if len(cs) == 0 {
		return nil, capacity.ErrNoData
	}
	plt := plot.New()
	plt.Title.Text = title
	plt.Y.Label.Text = "Capacity (MW)"

	const barWidth = 24
	groups := []struct {
		label  string
		values plotter.Values
		offset vg.Length
		color  string
	}{
		{"Operating", make(plotter.Values, len(cs)), -barWidth / 2, "2E86AB"},
		{"Planned (U+P)", make(plotter.Values, len(cs)), barWidth / 2, "F18F01"},
	}
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = string(c.Source)
		groups[0].values[i] = c.Operating
		groups[1].values[i] = c.Planned
	}

	var top float64
	for _, g := range groups {
		b, err := plotter.NewBarChart(g.values, vg.Points(barWidth))
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", g.label, err)
		}
		b.Offset = g.offset
		b.Color = hexColor(g.color)
		b.LineStyle.Width = 0
		plt.Add(b)
		plt.Legend.Add(g.label, b)

		// value labels sit just above each bar, centered on it
		xys := make(plotter.XYs, len(g.values))
		txt := make([]string, len(g.values))
		for i, v := range g.values {
			xys[i] = plotter.XY{X: float64(i), Y: v}
			txt[i] = fmt.Sprintf("%.0f", v)
			if v > top {
				top = v
			}
		}
		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: txt})
		if err != nil {
			return nil, fmt.Errorf("labels %s: %w", g.label, err)
		}
		for i := range lbl.TextStyle {
			lbl.TextStyle[i].XAlign = -0.5
			lbl.TextStyle[i].YAlign = 0
		}
		lbl.Offset = vg.Point{X: g.offset, Y: vg.Points(2)}
		plt.Add(lbl)
	}
	plt.NominalX(names...)
	plt.Legend.Top = true
	plt.Y.Min = 0
	// headroom for the labels and legend
	plt.Y.Max = top*1.2 + 1
	return plt, nil
}
