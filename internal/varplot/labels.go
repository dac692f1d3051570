package varplot

import (
	"fmt"

	"github.com/mohammed-shakir/repp-atlas/internal/grid"
)

// ColorbarLabel derives a colorbar label: "long_name (units)" when units are
// known, else long_name, else the raw variable name.
func ColorbarLabel(attrs map[string]string, name string) string {
	units := attrs["units"]
	if units == "" {
		units = attrs["unit"]
	}
	longName := attrs["long_name"]
	if longName == "" {
		longName = name
	}
	if units != "" {
		return fmt.Sprintf("%s (%s)", longName, units)
	}
	return longName
}

// Title picks the figure title. An explicit title always wins; a run label
// yields a forecast-style title, with the step clause only when a step index is set.
func Title(explicit, source, variable, runLabel string, step grid.StepIndex) string {
	if explicit != "" {
		return explicit
	}
	if source == "" {
		source = DefaultSource
	}
	n, hasStep := step.Value()
	switch {
	case runLabel != "" && hasStep:
		return fmt.Sprintf("%s Forecast %s (run: %s, step: +%dh)", source, variable, runLabel, n)
	case runLabel != "":
		return fmt.Sprintf("%s Forecast %s (run: %s)", source, variable, runLabel)
	default:
		return variable
	}
}
