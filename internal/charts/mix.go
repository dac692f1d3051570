package charts

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
)

// SourceMix builds a 100% stacked bar per country showing each source's share
// of that country's capacity. Countries without capacity are left out.
func SourceMix(p capacity.Pivot, title string) (chart.StackedBarChart, error) {
	var bars []chart.StackedBar
	for i, c := range p.Countries {
		total := p.RowTotal(i)
		if total <= 0 {
			continue
		}
		bar := chart.StackedBar{Name: fmt.Sprintf("%s (%.0f MW)", c, total)}
		for j, s := range p.Sources {
			v := p.Values[i][j]
			if v <= 0 {
				continue
			}
			bar.Values = append(bar.Values, chart.Value{
				Value: v,
				Label: fmt.Sprintf("%.0f%%", 100*v/total),
				Style: chart.Style{FillColor: sourceColor(s), StrokeColor: sourceColor(s)},
			})
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return chart.StackedBarChart{}, capacity.ErrNoData
	}
	return chart.StackedBarChart{
		Title:        title,
		Background:   chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:        1024,
		Height:       120 + 48*len(bars),
		IsHorizontal: true,
		BarSpacing:   12,
		Bars:         bars,
	}, nil
}

// WriteSourceMix renders the mix chart as PNG or SVG.
func WriteSourceMix(w io.Writer, c chart.StackedBarChart, format string) error {
	switch format {
	case "", "png":
		return c.Render(chart.PNG, w)
	case "svg":
		return c.Render(chart.SVG, w)
	}
	return fmt.Errorf("unsupported chart format %q", format)
}
