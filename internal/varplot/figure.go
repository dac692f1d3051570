package varplot

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgeps"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Figure is a rendered map with an optional colorbar strip on its right.
type Figure struct {
	Width, Height vg.Length
	Map           *plot.Plot
	Colorbar      *plot.Plot
	// Mesh is the data layer of Map.
	Mesh *Mesh

	coast *coastlines
}

// Draw lays the figure out on c.
func (f *Figure) Draw(c draw.Canvas) {
	if f.Colorbar == nil {
		f.Map.Draw(c)
		return
	}
	w := c.Max.X - c.Min.X
	cbw := vg.Length(math.Max(float64(w)*0.1, float64(vg.Inch)))
	f.Map.Draw(draw.Crop(c, 0, -cbw, 0, 0))
	f.Colorbar.Draw(draw.Crop(c, w-cbw, 0, 0, 0))
}

// Format returns the output format implied by a file name, e.g. "png".
func Format(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpeg":
		return "jpg"
	case "tif":
		return "tiff"
	}
	return ext
}

// WriterTo renders the figure in the named format. Raster formats honour dpi.
func (f *Figure) WriterTo(format string, dpi int) (io.WriterTo, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	switch format {
	case "png", "jpg", "tiff":
		c := vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(dpi))
		f.Draw(draw.New(c))
		switch format {
		case "png":
			return vgimg.PngCanvas{Canvas: c}, nil
		case "jpg":
			return vgimg.JpegCanvas{Canvas: c}, nil
		default:
			return vgimg.TiffCanvas{Canvas: c}, nil
		}
	case "svg":
		c := vgsvg.New(f.Width, f.Height)
		f.Draw(draw.New(c))
		return c, nil
	case "pdf":
		c := vgpdf.New(f.Width, f.Height)
		f.Draw(draw.New(c))
		return c, nil
	case "eps":
		c := vgeps.New(f.Width, f.Height)
		f.Draw(draw.New(c))
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unsupported figure format %q", ErrOption, format)
	}
}

// Save writes the figure to path, choosing the format from its extension.
// A failed write may leave a partial file behind.
func (f *Figure) Save(path string, dpi int) error {
	wt, err := f.WriterTo(Format(path), dpi)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
