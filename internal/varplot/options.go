package varplot

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/mohammed-shakir/repp-atlas/internal/grid"
)

// ErrOption reports an option the renderer cannot honour.
var ErrOption = errors.New("invalid render option")

const (
	DefaultColormap   = "viridis"
	DefaultProjection = "+proj=longlat +datum=WGS84"
	DefaultDPI        = 150
	DefaultSource     = "ECMWF"
)

// Size is a figure size in inches.
type Size struct {
	Width, Height float64
}

var DefaultSize = Size{Width: 12, Height: 6}

// Options configures Render. The zero value is usable: every unset field takes
// its documented default. Extra is forwarded verbatim to the mesh call and is
// applied after the explicit fields, so its keys win on conflict.
type Options struct {
	RunLabel string
	// Source prefixes composed titles; defaults to ECMWF.
	Source string
	Step   grid.StepIndex

	FigureSize Size
	Colormap   string
	Projection string

	Title         string
	ColorbarLabel string
	ValueMin      *float64
	ValueMax      *float64

	CoastlineStyle map[string]any
	Coastlines     Basemap
	HideGridlines  bool

	SkipDisplay bool
	Presenter   Presenter

	SavePath string
	DPI      int

	Extra map[string]any

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.FigureSize.Width <= 0 || o.FigureSize.Height <= 0 {
		o.FigureSize = DefaultSize
	}
	if strings.TrimSpace(o.Colormap) == "" {
		o.Colormap = DefaultColormap
	}
	if strings.TrimSpace(o.Projection) == "" {
		o.Projection = DefaultProjection
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Float is a helper for the optional value bounds.
func Float(v float64) *float64 { return &v }

// meshStyle is the decoded argument set of the mesh call.
type meshStyle struct {
	Colormap    string
	Label       string
	Min, Max    *float64
	Alpha       float64
	AddColorbar bool
	EdgeColor   color.Color
	LineWidth   float64
	SourceCRS   string
}

var meshKeys = []string{"add_colorbar", "alpha", "cbar_label", "cmap", "edgecolor", "linewidth", "transform", "vmax", "vmin"}

// meshArgs builds the mesh argument set: explicit options first, pass-through last.
func meshArgs(o Options, label string) map[string]any {
	args := map[string]any{
		"transform":  DefaultProjection,
		"cmap":       o.Colormap,
		"cbar_label": label,
	}
	if o.ValueMin != nil {
		args["vmin"] = *o.ValueMin
	}
	if o.ValueMax != nil {
		args["vmax"] = *o.ValueMax
	}
	for k, v := range o.Extra {
		args[k] = v
	}
	return args
}

func decodeMeshArgs(args map[string]any) (meshStyle, error) {
	st := meshStyle{Alpha: 1, AddColorbar: true}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := args[k]
		var err error
		switch k {
		case "cmap":
			st.Colormap, err = asString(v)
		case "cbar_label":
			st.Label, err = asString(v)
		case "transform":
			st.SourceCRS, err = asString(v)
		case "vmin":
			var f float64
			if f, err = asFloat(v); err == nil {
				st.Min = &f
			}
		case "vmax":
			var f float64
			if f, err = asFloat(v); err == nil {
				st.Max = &f
			}
		case "alpha":
			st.Alpha, err = asFloat(v)
			if err == nil && (st.Alpha < 0 || st.Alpha > 1) {
				err = fmt.Errorf("must be within [0,1], got %v", st.Alpha)
			}
		case "linewidth":
			st.LineWidth, err = asFloat(v)
		case "edgecolor":
			st.EdgeColor, err = asColor(v)
		case "add_colorbar":
			st.AddColorbar, err = asBool(v)
		default:
			return st, fmt.Errorf("%w: unexpected mesh argument %q (known: %s)", ErrOption, k, strings.Join(meshKeys, ", "))
		}
		if err != nil {
			return st, fmt.Errorf("%w: %s: %v", ErrOption, k, err)
		}
	}
	if st.Min != nil && st.Max != nil && *st.Min >= *st.Max {
		return st, fmt.Errorf("%w: vmin %v must be below vmax %v", ErrOption, *st.Min, *st.Max)
	}
	return st, nil
}

var defaultCoastlineStyle = map[string]any{"linewidth": 0.8, "color": "black"}

// coastlineStyle merges overrides over the defaults.
func coastlineStyle(overrides map[string]any) (draw.LineStyle, error) {
	merged := make(map[string]any, len(defaultCoastlineStyle)+len(overrides))
	for k, v := range defaultCoastlineStyle {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	var sty draw.LineStyle
	var ls string
	for k, v := range merged {
		switch k {
		case "linewidth", "lw":
			w, err := asFloat(v)
			if err != nil {
				return sty, fmt.Errorf("%w: coastline %s: %v", ErrOption, k, err)
			}
			sty.Width = vg.Points(w)
		case "color", "edgecolor":
			c, err := asColor(v)
			if err != nil {
				return sty, fmt.Errorf("%w: coastline %s: %v", ErrOption, k, err)
			}
			sty.Color = c
		case "linestyle", "ls":
			s, err := asString(v)
			if err != nil {
				return sty, fmt.Errorf("%w: coastline %s: %v", ErrOption, k, err)
			}
			ls = s
		default:
			return sty, fmt.Errorf("%w: unexpected coastline option %q", ErrOption, k)
		}
	}
	// dashes scale with the final width
	sty.Dashes = dashes(ls, sty.Width)
	return sty, nil
}

func dashes(s string, w vg.Length) []vg.Length {
	if w <= 0 {
		w = 1
	}
	switch s {
	case "--", "dashed":
		return []vg.Length{4 * w, 2 * w}
	case ":", "dotted":
		return []vg.Length{w, 2 * w}
	case "-.", "dashdot":
		return []vg.Length{4 * w, 2 * w, w, 2 * w}
	default:
		return nil
	}
}

var namedColors = map[string]color.Color{
	"black": color.Black,
	"white": color.White,
	"gray":  color.Gray{Y: 128},
	"grey":  color.Gray{Y: 128},
	"red":   color.RGBA{R: 255, A: 255},
	"green": color.RGBA{G: 128, A: 255},
	"blue":  color.RGBA{B: 255, A: 255},
	"none":  color.Transparent,
}

func asColor(v any) (color.Color, error) {
	switch t := v.(type) {
	case color.Color:
		return t, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if c, ok := namedColors[s]; ok {
			return c, nil
		}
		if strings.HasPrefix(s, "#") && (len(s) == 7 || len(s) == 4) {
			return drawing.ColorFromHex(strings.TrimPrefix(s, "#")), nil
		}
		return nil, fmt.Errorf("unknown color %q", t)
	default:
		return nil, fmt.Errorf("color must be a string, got %T", v)
	}
}

func asString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("want string, got %T", v)
}

func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("want bool, got %q", t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("want bool, got %T", v)
	}
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("want number, got %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
}
