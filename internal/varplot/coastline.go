package varplot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Basemap supplies coastline polylines in geographic coordinates.
type Basemap interface {
	Coastlines() ([]geom.LineString, error)
}

// OpenBasemap picks a basemap implementation from the file extension.
func OpenBasemap(path string) (Basemap, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".shp"):
		return &ShapefileBasemap{Path: path}, nil
	case strings.HasSuffix(strings.ToLower(path), ".json"), strings.HasSuffix(strings.ToLower(path), ".geojson"):
		return &GeoJSONBasemap{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported coastline file %q", ErrOption, path)
	}
}

// ShapefileBasemap reads line or polygon shapes from an ESRI shapefile, for
// example Natural Earth ne_110m_coastline.shp. Lines are loaded once.
type ShapefileBasemap struct {
	Path string

	once  sync.Once
	lines []geom.LineString
	err   error
}

func (b *ShapefileBasemap) Coastlines() ([]geom.LineString, error) {
	b.once.Do(func() { b.lines, b.err = b.load() })
	return b.lines, b.err
}

func (b *ShapefileBasemap) load() ([]geom.LineString, error) {
	d, err := shp.NewDecoder(b.Path)
	if err != nil {
		return nil, fmt.Errorf("open coastlines %s: %w", b.Path, err)
	}
	defer d.Close()

	var out []geom.LineString
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		out = appendLines(out, g)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("read coastlines %s: %w", b.Path, err)
	}
	return out, nil
}

func appendLines(out []geom.LineString, g geom.Geom) []geom.LineString {
	switch t := g.(type) {
	case geom.LineString:
		out = append(out, t)
	case geom.MultiLineString:
		out = append(out, t...)
	case geom.Polygon:
		for _, ring := range t {
			out = append(out, geom.LineString(ring))
		}
	case geom.MultiPolygon:
		for _, p := range t {
			out = appendLines(out, p)
		}
	}
	return out
}

// GeoJSONBasemap reads LineString, MultiLineString, Polygon and MultiPolygon
// geometries from a FeatureCollection.
type GeoJSONBasemap struct {
	Path string

	once  sync.Once
	lines []geom.LineString
	err   error
}

func (b *GeoJSONBasemap) Coastlines() ([]geom.LineString, error) {
	b.once.Do(func() {
		raw, err := os.ReadFile(b.Path)
		if err != nil {
			b.err = fmt.Errorf("open coastlines %s: %w", b.Path, err)
			return
		}
		b.lines, b.err = decodeGeoJSONLines(raw)
		if b.err != nil {
			b.err = fmt.Errorf("read coastlines %s: %w", b.Path, b.err)
		}
	})
	return b.lines, b.err
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func decodeGeoJSONLines(raw []byte) ([]geom.LineString, error) {
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry *geometry `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, err
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	var out []geom.LineString
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		var err error
		switch f.Geometry.Type {
		case "LineString":
			var c [][]float64
			if err = json.Unmarshal(f.Geometry.Coordinates, &c); err == nil {
				out = append(out, toLine(c))
			}
		case "MultiLineString", "Polygon":
			var c [][][]float64
			if err = json.Unmarshal(f.Geometry.Coordinates, &c); err == nil {
				for _, l := range c {
					out = append(out, toLine(l))
				}
			}
		case "MultiPolygon":
			var c [][][][]float64
			if err = json.Unmarshal(f.Geometry.Coordinates, &c); err == nil {
				for _, p := range c {
					for _, l := range p {
						out = append(out, toLine(l))
					}
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return out, nil
}

func toLine(c [][]float64) geom.LineString {
	ls := make(geom.LineString, 0, len(c))
	for _, p := range c {
		if len(p) < 2 {
			continue
		}
		ls = append(ls, geom.Point{X: p[0], Y: p[1]})
	}
	return ls
}

// coastlines draws projected polylines. Segments whose vertices fall outside
// the projection split the line.
type coastlines struct {
	lines [][]geom.Point
	style draw.LineStyle
}

func newCoastlines(src []geom.LineString, tr *transform, style draw.LineStyle) *coastlines {
	c := &coastlines{style: style}
	for _, l := range src {
		var cur []geom.Point
		for _, p := range l {
			x, y, ok := tr.Apply(p.X, p.Y)
			if !ok {
				if len(cur) > 1 {
					c.lines = append(c.lines, cur)
				}
				cur = nil
				continue
			}
			cur = append(cur, geom.Point{X: x, Y: y})
		}
		if len(cur) > 1 {
			c.lines = append(c.lines, cur)
		}
	}
	return c
}

func (c *coastlines) Plot(cv draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&cv)
	for _, l := range c.lines {
		pts := make([]vg.Point, len(l))
		for i, p := range l {
			pts[i] = vg.Point{X: trX(p.X), Y: trY(p.Y)}
		}
		cv.StrokeLines(c.style, cv.ClipLinesXY(pts)...)
	}
}
