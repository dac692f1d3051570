package charts

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Size of the static charts.
var (
	MapSize = [2]vg.Length{12 * vg.Inch, 10 * vg.Inch}
	BarSize = [2]vg.Length{10 * vg.Inch, 6 * vg.Inch}
)

// Save writes p to path; the extension picks the format.
func Save(p *plot.Plot, size [2]vg.Length, path string) error {
	if err := p.Save(size[0], size[1], path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Write renders p in format ("png", "svg", "pdf", ...).
func Write(w io.Writer, p *plot.Plot, size [2]vg.Length, format string) error {
	wt, err := p.WriterTo(size[0], size[1], strings.ToLower(format))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
