package varplot

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

// viridis control points, evenly spaced
var viridisHex = []string{
	"440154", "482878", "3e4989", "31688e", "26828e",
	"1f9e89", "35b779", "6ece58", "b5de2b", "fde725",
}

// Colormap resolves a colormap name. A "_r" suffix reverses it.
func Colormap(name string) (palette.ColorMap, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultColormap
	}
	if base, ok := strings.CutSuffix(name, "_r"); ok {
		cm, err := Colormap(base)
		if err != nil {
			return nil, err
		}
		return &reversed{ColorMap: cm}, nil
	}

	switch strings.ToLower(name) {
	case "viridis":
		cs := make([]color.Color, len(viridisHex))
		for i, h := range viridisHex {
			cs[i] = drawing.ColorFromHex(h)
		}
		return newLinear(cs), nil
	case "kindlmann":
		return moreland.Kindlmann(), nil
	case "extendedkindlmann":
		return moreland.ExtendedKindlmann(), nil
	case "blackbody":
		return moreland.BlackBody(), nil
	case "extendedblackbody":
		return moreland.ExtendedBlackBody(), nil
	case "smoothbluered", "coolwarm":
		return moreland.SmoothBlueRed(), nil
	}

	// ColorBrewer scheme names are case sensitive (YlGnBu, RdBu, ...)
	for n := 11; n >= 3; n-- {
		p, err := brewer.GetPalette(brewer.TypeAny, name, n)
		if err == nil {
			return newLinear(p.Colors()), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown colormap %q", ErrOption, name)
}

// linear interpolates between evenly spaced control colors.
type linear struct {
	controls []color.NRGBA
	min, max float64
	alpha    float64
}

func newLinear(cs []color.Color) *linear {
	ctl := make([]color.NRGBA, len(cs))
	for i, c := range cs {
		ctl[i] = color.NRGBAModel.Convert(c).(color.NRGBA)
	}
	return &linear{controls: ctl, max: 1, alpha: 1}
}

func (l *linear) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < l.min:
		return nil, palette.ErrUnderflow
	case v > l.max:
		return nil, palette.ErrOverflow
	}
	frac := 0.0
	if l.max > l.min {
		frac = (v - l.min) / (l.max - l.min)
	}
	pos := frac * float64(len(l.controls)-1)
	i := int(math.Floor(pos))
	if i >= len(l.controls)-1 {
		i = len(l.controls) - 2
	}
	if i < 0 {
		i = 0
	}
	t := pos - float64(i)
	a, b := l.controls[i], l.controls[i+1]
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + t*(float64(y)-float64(x)))) }
	return color.NRGBA{
		R: mix(a.R, b.R),
		G: mix(a.G, b.G),
		B: mix(a.B, b.B),
		A: uint8(math.Round(l.alpha * 255)),
	}, nil
}

func (l *linear) Max() float64 { return l.max }
func (l *linear) Min() float64 { return l.min }
func (l *linear) SetMax(v float64) { l.max = v }
func (l *linear) SetMin(v float64) { l.min = v }
func (l *linear) Alpha() float64 { return l.alpha }
func (l *linear) SetAlpha(alpha float64) { l.alpha = alpha }

func (l *linear) Palette(n int) palette.Palette {
	return sample(l, n)
}

// reversed flips a colormap end to end.
type reversed struct {
	palette.ColorMap
}

func (r *reversed) At(v float64) (color.Color, error) {
	if math.IsNaN(v) {
		return nil, palette.ErrNaN
	}
	if v < r.Min() {
		return nil, palette.ErrUnderflow
	}
	if v > r.Max() {
		return nil, palette.ErrOverflow
	}
	return r.ColorMap.At(r.Max() + r.Min() - v)
}

func (r *reversed) Palette(n int) palette.Palette { return sample(r, n) }

type colors []color.Color

func (c colors) Colors() []color.Color { return c }

func sample(cm palette.ColorMap, n int) palette.Palette {
	if n < 2 {
		n = 2
	}
	out := make(colors, n)
	step := (cm.Max() - cm.Min()) / float64(n-1)
	for i := range out {
		c, err := cm.At(cm.Min() + float64(i)*step)
		if err != nil {
			c = color.Transparent
		}
		out[i] = c
	}
	return out
}

// clampedColor maps v onto cm, clamping out-of-range values to the end colors.
func clampedColor(cm palette.ColorMap, v float64) (color.Color, bool) {
	if math.IsNaN(v) {
		return nil, false
	}
	v = math.Max(cm.Min(), math.Min(cm.Max(), v))
	c, err := cm.At(v)
	if err != nil {
		return nil, false
	}
	return c, true
}
