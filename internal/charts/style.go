// Package charts renders capacity summaries as static figures.
package charts

import (
	"image/color"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mohammed-shakir/repp-atlas/internal/plants"
)

var sourceHex = map[plants.Source]string{
	plants.Solar: "FDB462",
	plants.Wind:  "80B1D3",
	plants.Hydro: "8DD3C7",
}

const fallbackHex = "999999"

// SourceHex is the marker color of a source as "#rrggbb".
func SourceHex(s plants.Source) string {
	if h, ok := sourceHex[s]; ok {
		return "#" + h
	}
	return "#" + fallbackHex
}

func sourceColor(s plants.Source) drawing.Color {
	if h, ok := sourceHex[s]; ok {
		return drawing.ColorFromHex(h)
	}
	return drawing.ColorFromHex(fallbackHex)
}

var (
	allowListColor color.Color = drawing.ColorFromHex("2E86AB")
	otherColor     color.Color = drawing.ColorFromHex("D3D3D3")
	// Africa, lon -20..55, lat -40..40
	continentExtent = [4]float64{-20, 55, -40, 40}
)

func hexColor(h string) color.Color { return drawing.ColorFromHex(h) }
