package varplot

import (
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var graticuleSteps = []float64{1, 2, 2.5, 5, 10, 15, 20, 30, 45, 60, 90}

// gridStep picks a graticule spacing giving at most eight lines over span degrees.
func gridStep(span float64) float64 {
	for _, s := range graticuleSteps {
		if span/s <= 8 {
			return s
		}
	}
	return graticuleSteps[len(graticuleSteps)-1]
}

func gridValues(lo, hi, step float64) []float64 {
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+1e-9; v += step {
		out = append(out, math.Round(v*1e6)/1e6)
	}
	return out
}

// graticule draws meridians and parallels over a geographic extent.
type graticule struct {
	tr                         *transform
	lonLo, lonHi, latLo, latHi float64
	lons, lats                 []float64
	style                      draw.LineStyle
}

func newGraticule(tr *transform, lonLo, lonHi, latLo, latHi float64) *graticule {
	return &graticule{
		tr:    tr,
		lonLo: lonLo, lonHi: lonHi, latLo: latLo, latHi: latHi,
		lons: gridValues(lonLo, lonHi, gridStep(lonHi-lonLo)),
		lats: gridValues(latLo, latHi, gridStep(latHi-latLo)),
		style: draw.LineStyle{
			Color:  color.NRGBA{R: 128, G: 128, B: 128, A: 128},
			Width:  vg.Points(0.5),
			Dashes: []vg.Length{vg.Points(3), vg.Points(2)},
		},
	}
}

const graticuleSamples = 48

func (g *graticule) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	line := func(lon0, lat0, lon1, lat1 float64) {
		var pts []vg.Point
		for i := 0; i <= graticuleSamples; i++ {
			f := float64(i) / graticuleSamples
			x, y, ok := g.tr.Apply(lon0+f*(lon1-lon0), lat0+f*(lat1-lat0))
			if !ok {
				continue
			}
			pts = append(pts, vg.Point{X: trX(x), Y: trY(y)})
		}
		if len(pts) > 1 {
			c.StrokeLines(g.style, c.ClipLinesXY(pts)...)
		}
	}
	for _, lon := range g.lons {
		line(lon, g.latLo, lon, g.latHi)
	}
	for _, lat := range g.lats {
		line(g.lonLo, lat, g.lonHi, lat)
	}
}

// ticks labels the left and bottom axes where the graticule meets them.
// Top and right edges carry no labels.
func (g *graticule) ticks() (x, y plot.ConstantTicks) {
	for _, lon := range g.lons {
		if px, _, ok := g.tr.Apply(lon, g.latLo); ok {
			x = append(x, plot.Tick{Value: px, Label: lonLabel(lon)})
		}
	}
	for _, lat := range g.lats {
		if _, py, ok := g.tr.Apply(g.lonLo, lat); ok {
			y = append(y, plot.Tick{Value: py, Label: latLabel(lat)})
		}
	}
	return x, y
}

func lonLabel(v float64) string {
	switch {
	case v > 0 && v < 180:
		return deg(v) + "E"
	case v < 0 && v > -180:
		return deg(-v) + "W"
	default:
		return deg(math.Abs(v))
	}
}

func latLabel(v float64) string {
	switch {
	case v > 0:
		return deg(v) + "N"
	case v < 0:
		return deg(-v) + "S"
	default:
		return deg(0)
	}
}

func deg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "°"
}
