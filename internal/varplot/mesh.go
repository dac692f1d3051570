package varplot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/mohammed-shakir/repp-atlas/internal/grid"
)

type quad struct {
	x, y  [4]float64
	value float64
}

// Mesh draws a 2-D slice as colored quadrilateral cells in display coordinates.
type Mesh struct {
	ColorMap  palette.ColorMap
	EdgeStyle draw.LineStyle

	cells                  []quad
	xmin, xmax, ymin, ymax float64
}

var _ plot.Plotter = (*Mesh)(nil)
var _ plot.DataRanger = (*Mesh)(nil)

// newMesh projects the cell corners of s. x and y are cell centers along the
// column and row axes. Cells with any corner outside the projection's domain
// are dropped.
func newMesh(s *grid.Slice, x, y []float64, tr *transform, cm palette.ColorMap) (*Mesh, error) {
	if len(x) != s.Cols || len(y) != s.Rows {
		return nil, fmt.Errorf("%w: axes %dx%d do not match slice %dx%d", grid.ErrShape, len(y), len(x), s.Rows, s.Cols)
	}
	xe, ye := grid.Edges(x), grid.Edges(y)

	m := &Mesh{
		ColorMap: cm,
		cells:    make([]quad, 0, s.Rows*s.Cols),
		xmin:     math.Inf(1), xmax: math.Inf(-1),
		ymin: math.Inf(1), ymax: math.Inf(-1),
	}
	for r := 0; r < s.Rows; r++ {
	cells:
		for c := 0; c < s.Cols; c++ {
			var q quad
			corners := [4][2]float64{
				{xe[c], ye[r]}, {xe[c+1], ye[r]},
				{xe[c+1], ye[r+1]}, {xe[c], ye[r+1]},
			}
			for i, p := range corners {
				px, py, ok := tr.Apply(p[0], p[1])
				if !ok || math.IsNaN(px) || math.IsNaN(py) || math.IsInf(px, 0) || math.IsInf(py, 0) {
					continue cells
				}
				q.x[i], q.y[i] = px, py
			}
			q.value = s.At(r, c)
			m.cells = append(m.cells, q)
			for i := range q.x {
				m.xmin = math.Min(m.xmin, q.x[i])
				m.xmax = math.Max(m.xmax, q.x[i])
				m.ymin = math.Min(m.ymin, q.y[i])
				m.ymax = math.Max(m.ymax, q.y[i])
			}
		}
	}
	if len(m.cells) == 0 {
		return nil, fmt.Errorf("%w: no cell of %q is inside the display projection", ErrOption, s.Name)
	}
	return m, nil
}

// Len is the number of drawable cells.
func (m *Mesh) Len() int { return len(m.cells) }

func (m *Mesh) DataRange() (xmin, xmax, ymin, ymax float64) {
	return m.xmin, m.xmax, m.ymin, m.ymax
}

func (m *Mesh) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	stroke := m.EdgeStyle.Width > 0 && m.EdgeStyle.Color != nil

	pts := make([]vg.Point, 4, 5)
	for _, q := range m.cells {
		clr, ok := clampedColor(m.ColorMap, q.value)
		if !ok {
			// missing values stay transparent
			continue
		}
		for i := range pts[:4] {
			pts[i] = vg.Point{X: trX(q.x[i]), Y: trY(q.y[i])}
		}
		c.FillPolygon(clr, c.ClipPolygonXY(pts[:4]))
		if stroke {
			ring := append(pts[:4], pts[0])
			c.StrokeLines(m.EdgeStyle, c.ClipLinesXY(ring)...)
		}
	}
}

// scaleRange resolves the color scale: explicit bounds win, the data range fills
// in the rest. A degenerate range is widened so every value maps to a color.
func scaleRange(s *grid.Slice, lo, hi *float64) (float64, float64) {
	dlo, dhi, ok := s.Range()
	if !ok {
		dlo, dhi = 0, 1
	}
	if lo != nil {
		dlo = *lo
	}
	if hi != nil {
		dhi = *hi
	}
	switch {
	case dlo == dhi:
		return dlo - 0.5, dhi + 0.5
	case dlo > dhi && lo != nil:
		return dlo, dlo + 1
	case dlo > dhi:
		return dhi - 1, dhi
	}
	return dlo, dhi
}

func edgeStyle(st meshStyle) draw.LineStyle {
	if st.LineWidth <= 0 {
		return draw.LineStyle{}
	}
	var clr color.Color = color.Black
	if st.EdgeColor != nil {
		clr = st.EdgeColor
	}
	return draw.LineStyle{Color: clr, Width: vg.Points(st.LineWidth)}
}
