package varplot

import (
	"testing"

	"github.com/mohammed-shakir/repp-atlas/internal/grid"
)

func TestColorbarLabel_FallbackChain(t *testing.T) {
	cases := []struct {
		attrs map[string]string
		want  string
	}{
		{map[string]string{"units": "mm", "long_name": "Precipitation"}, "Precipitation (mm)"},
		{map[string]string{"unit": "K", "long_name": "2m temperature"}, "2m temperature (K)"},
		{map[string]string{"long_name": "Precipitation"}, "Precipitation"},
		{map[string]string{}, "tp"},
		{nil, "tp"},
		{map[string]string{"units": "mm"}, "tp (mm)"},
	}
	for _, tc := range cases {
		if got := ColorbarLabel(tc.attrs, "tp"); got != tc.want {
			t.Fatalf("ColorbarLabel(%v)=%q want %q", tc.attrs, got, tc.want)
		}
	}
}

func TestTitle(t *testing.T) {
	cases := []struct {
		name     string
		explicit string
		run      string
		step     grid.StepIndex
		want     string
	}{
		{"run and step", "", "2024-01-01T00Z", grid.Step(6), "ECMWF Forecast tp (run: 2024-01-01T00Z, step: +6h)"},
		{"run only", "", "2024-01-01T00Z", grid.NoStep(), "ECMWF Forecast tp (run: 2024-01-01T00Z)"},
		{"neither", "", "", grid.NoStep(), "tp"},
		{"step only", "", "", grid.Step(6), "tp"},
		{"explicit wins", "My map", "2024-01-01T00Z", grid.Step(6), "My map"},
		{"default step is zero", "", "r1", grid.StepIndex{}, "ECMWF Forecast tp (run: r1, step: +0h)"},
	}
	for _, tc := range cases {
		if got := Title(tc.explicit, "", "tp", tc.run, tc.step); got != tc.want {
			t.Fatalf("%s: Title=%q want %q", tc.name, got, tc.want)
		}
	}
	if got := Title("", "GFS", "t2m", "r", grid.NoStep()); got != "GFS Forecast t2m (run: r)" {
		t.Fatalf("custom source: %q", got)
	}
}
