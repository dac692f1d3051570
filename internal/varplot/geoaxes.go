package varplot

import (
	"gonum.org/v1/plot"
)

// GeoAxes turns p into plate carrée map axes over the given extent, with
// coastlines from bm (optional) and labelled gridlines.
func GeoAxes(p *plot.Plot, bm Basemap, coastStyle map[string]any, lonLo, lonHi, latLo, latHi float64) error {
	sty, err := coastlineStyle(coastStyle)
	if err != nil {
		return err
	}
	tr := &transform{identity: true}
	if bm != nil {
		lines, err := bm.Coastlines()
		if err != nil {
			return err
		}
		p.Add(newCoastlines(lines, tr, sty))
	}
	g := newGraticule(tr, lonLo, lonHi, latLo, latHi)
	p.Add(g)
	xt, yt := g.ticks()
	p.X.Tick.Marker = xt
	p.Y.Tick.Marker = yt
	p.X.Min, p.X.Max = lonLo, lonHi
	p.Y.Min, p.Y.Max = latLo, latHi
	return nil
}
