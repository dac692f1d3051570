package varplot

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom/proj"
)

// transform maps source coordinates to display coordinates.
type transform struct {
	fn       proj.Transformer
	identity bool
}

func isGeographic(def string) bool {
	d := strings.ToLower(def)
	return strings.Contains(d, "+proj=longlat") ||
		strings.Contains(d, "+proj=latlong") ||
		strings.Contains(d, "+proj=lonlat")
}

// newTransform builds the source→display transform. Two geographic systems
// are treated as identical; no datum shift is applied.
func newTransform(source, display string) (*transform, error) {
	if isGeographic(source) && isGeographic(display) {
		return &transform{identity: true}, nil
	}
	src, err := proj.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: source crs %q: %v", ErrOption, source, err)
	}
	dst, err := proj.Parse(display)
	if err != nil {
		return nil, fmt.Errorf("%w: projection %q: %v", ErrOption, display, err)
	}
	fn, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("%w: transform %q -> %q: %v", ErrOption, source, display, err)
	}
	return &transform{fn: fn}, nil
}

// Apply projects one point; ok is false where the projection is undefined.
func (t *transform) Apply(x, y float64) (float64, float64, bool) {
	if t == nil || t.identity {
		return x, y, true
	}
	px, py, err := t.fn(x, y)
	if err != nil {
		return 0, 0, false
	}
	return px, py, true
}
