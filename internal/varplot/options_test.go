package varplot

import (
	"errors"
	"image/color"
	"testing"

	"gonum.org/v1/plot/vg"
)

func TestMeshArgs_ExtraAppliedLast(t *testing.T) {
	o := Options{
		Colormap: "viridis",
		ValueMin: Float(0),
		ValueMax: Float(10),
		Extra:    map[string]any{"cmap": "RdBu", "vmax": 5, "alpha": 0.5},
	}
	st, err := decodeMeshArgs(meshArgs(o, "Precipitation (mm)"))
	if err != nil {
		t.Fatalf("decodeMeshArgs: %v", err)
	}
	if st.Colormap != "RdBu" {
		t.Fatalf("cmap=%q want extra to win", st.Colormap)
	}
	if st.Min == nil || *st.Min != 0 || st.Max == nil || *st.Max != 5 {
		t.Fatalf("bounds=%v,%v want 0,5", st.Min, st.Max)
	}
	if st.Label != "Precipitation (mm)" || st.Alpha != 0.5 || !st.AddColorbar {
		t.Fatalf("unexpected style %+v", st)
	}
	if st.SourceCRS != DefaultProjection {
		t.Fatalf("transform=%q want lon/lat", st.SourceCRS)
	}
}

func TestMeshArgs_SourceCRSIndependentOfDisplay(t *testing.T) {
	o := Options{Projection: "+proj=merc +datum=WGS84"}.withDefaults()
	st, err := decodeMeshArgs(meshArgs(o, "x"))
	if err != nil {
		t.Fatalf("decodeMeshArgs: %v", err)
	}
	if st.SourceCRS != DefaultProjection {
		t.Fatalf("transform=%q want %q", st.SourceCRS, DefaultProjection)
	}
}

func TestDecodeMeshArgs_Rejects(t *testing.T) {
	bad := []map[string]any{
		{"shading": "gouraud"},
		{"vmin": "abc"},
		{"alpha": 2.0},
		{"vmin": 3, "vmax": 1},
		{"edgecolor": "mauve-ish"},
	}
	for _, args := range bad {
		if _, err := decodeMeshArgs(args); !errors.Is(err, ErrOption) {
			t.Fatalf("decodeMeshArgs(%v) err=%v want ErrOption", args, err)
		}
	}
}

func TestCoastlineStyle_MergesOverDefaults(t *testing.T) {
	sty, err := coastlineStyle(nil)
	if err != nil {
		t.Fatalf("coastlineStyle: %v", err)
	}
	if sty.Width != vg.Points(0.8) {
		t.Fatalf("width=%v want 0.8pt", sty.Width)
	}
	if r, g, b, _ := sty.Color.RGBA(); r != 0 || g != 0 || b != 0 {
		t.Fatalf("default color should be black")
	}

	sty, err = coastlineStyle(map[string]any{"linewidth": 2, "color": "#ff0000", "linestyle": "--"})
	if err != nil {
		t.Fatalf("coastlineStyle: %v", err)
	}
	if sty.Width != vg.Points(2) || len(sty.Dashes) != 2 {
		t.Fatalf("override not applied: %+v", sty)
	}
	if c := color.NRGBAModel.Convert(sty.Color).(color.NRGBA); c.R != 255 || c.G != 0 {
		t.Fatalf("color=%v want red", c)
	}

	if _, err := coastlineStyle(map[string]any{"zorder": 3}); !errors.Is(err, ErrOption) {
		t.Fatalf("unknown coastline key err=%v want ErrOption", err)
	}
}

func TestWithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.FigureSize != DefaultSize || o.DPI != 150 || o.Colormap != "viridis" || o.Projection != DefaultProjection {
		t.Fatalf("defaults not applied: %+v", o)
	}
	if o.SkipDisplay || o.HideGridlines {
		t.Fatalf("display and gridlines default on")
	}
}
