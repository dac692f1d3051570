package varplot

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func nrgba(c color.Color) color.NRGBA { return color.NRGBAModel.Convert(c).(color.NRGBA) }

func TestColormap_Names(t *testing.T) {
	for _, name := range []string{"", "viridis", "viridis_r", "kindlmann", "blackbody", "coolwarm", "YlGnBu", "RdBu", "Set1"} {
		cm, err := Colormap(name)
		if err != nil {
			t.Fatalf("Colormap(%q): %v", name, err)
		}
		cm.SetMax(10)
		cm.SetMin(0)
		if _, err := cm.At(5); err != nil {
			t.Fatalf("Colormap(%q).At(5): %v", name, err)
		}
	}
	if _, err := Colormap("no-such-map"); !errors.Is(err, ErrOption) {
		t.Fatalf("unknown colormap err=%v want ErrOption", err)
	}
}

func TestColormap_ViridisEndsAndReverse(t *testing.T) {
	cm, _ := Colormap("viridis")
	cm.SetMax(1)
	cm.SetMin(0)
	lo, _ := cm.At(0)
	hi, _ := cm.At(1)
	if got := nrgba(lo); got.R != 0x44 || got.G != 0x01 || got.B != 0x54 {
		t.Fatalf("At(0)=%v want #440154", got)
	}
	if got := nrgba(hi); got.R != 0xfd || got.G != 0xe7 || got.B != 0x25 {
		t.Fatalf("At(1)=%v want #fde725", got)
	}

	r, _ := Colormap("viridis_r")
	r.SetMax(1)
	r.SetMin(0)
	rlo, _ := r.At(0)
	if nrgba(rlo) != nrgba(hi) {
		t.Fatalf("reversed At(0)=%v want %v", nrgba(rlo), nrgba(hi))
	}
}

func TestClampedColor(t *testing.T) {
	cm, _ := Colormap("viridis")
	cm.SetMax(1)
	cm.SetMin(0)
	over, ok := clampedColor(cm, 7)
	top, _ := cm.At(1)
	if !ok || nrgba(over) != nrgba(top) {
		t.Fatalf("overflow should clamp to top color")
	}
	if _, ok := clampedColor(cm, math.NaN()); ok {
		t.Fatalf("NaN must not be colored")
	}
}
