// Command plot-variable renders one variable of a netCDF dataset onto a map.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/grid"
	"github.com/mohammed-shakir/repp-atlas/internal/logger"
	"github.com/mohammed-shakir/repp-atlas/internal/varplot"
)

var Version = "dev"

type cli struct {
	path string
	list bool
	name string
	opts varplot.Options
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseArgs(args []string, cfg config.Config, stderr io.Writer) (cli, error) {
	fs := flag.NewFlagSet("plot-variable", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: plot-variable [flags] <dataset.nc>\n")
		fs.PrintDefaults()
	}

	var (
		c         cli
		step      = fs.String("step", "", `step index; "none" for variables without one (default first)`)
		vmin      = fs.String("vmin", "", "lower colour bound")
		vmax      = fs.String("vmax", "", "upper colour bound")
		noGrid    = fs.Bool("no-gridlines", false, "hide gridlines")
		width     = fs.Float64("width", varplot.DefaultSize.Width, "figure width in inches")
		height    = fs.Float64("height", varplot.DefaultSize.Height, "figure height in inches")
		coastPath = fs.String("coastlines", cfg.CoastlinePath, "coastline shapefile or GeoJSON")
		coastCol  = fs.String("coast-color", "", "coastline colour")
	)
	fs.StringVar(&c.name, "var", "", "variable to plot")
	fs.BoolVar(&c.list, "list", false, "list the variables of the dataset and exit")
	fs.StringVar(&c.opts.RunLabel, "run", "", "forecast run label for the title")
	fs.StringVar(&c.opts.Source, "source", varplot.DefaultSource, "title prefix")
	fs.StringVar(&c.opts.Colormap, "cmap", varplot.DefaultColormap, "colormap name")
	fs.StringVar(&c.opts.Projection, "proj", varplot.DefaultProjection, "display projection (PROJ.4)")
	fs.StringVar(&c.opts.Title, "title", "", "figure title")
	fs.StringVar(&c.opts.ColorbarLabel, "label", "", "colorbar label")
	fs.StringVar(&c.opts.SavePath, "save", "", "write the figure to this path")
	fs.IntVar(&c.opts.DPI, "dpi", cfg.RenderDPI, "raster resolution")
	fs.BoolVar(&c.opts.SkipDisplay, "no-display", false, "do not open the figure in a viewer")

	if err := fs.Parse(args); err != nil {
		return cli{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cli{}, errors.New("expected exactly one dataset path")
	}
	c.path = fs.Arg(0)
	if c.name == "" && !c.list {
		return cli{}, errors.New("-var is required")
	}

	switch s := strings.ToLower(strings.TrimSpace(*step)); s {
	case "":
	case "none":
		c.opts.Step = grid.NoStep()
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return cli{}, fmt.Errorf("invalid -step %q", *step)
		}
		c.opts.Step = grid.Step(n)
	}

	for _, b := range []struct {
		raw string
		dst **float64
	}{{*vmin, &c.opts.ValueMin}, {*vmax, &c.opts.ValueMax}} {
		if b.raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(b.raw, 64)
		if err != nil {
			return cli{}, fmt.Errorf("invalid colour bound %q", b.raw)
		}
		*b.dst = varplot.Float(f)
	}

	c.opts.HideGridlines = *noGrid
	c.opts.FigureSize = varplot.Size{Width: *width, Height: *height}
	if *coastCol != "" {
		c.opts.CoastlineStyle = map[string]any{"color": *coastCol}
	}
	if *coastPath != "" {
		bm, err := varplot.OpenBasemap(*coastPath)
		if err != nil {
			return cli{}, err
		}
		c.opts.Coastlines = bm
	}
	return c, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   true,
		SampleN:   cfg.LogSampleN,
		Component: "plot-variable",
	}, stderr)
	log := logger.NewSlog(&zl)

	c, err := parseArgs(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Error("invalid arguments", "err", err)
		return 2
	}
	c.opts.Logger = log

	ds, err := grid.OpenNetCDF(c.path)
	if err != nil {
		log.Error("open dataset failed", "path", c.path, "err", err)
		return 1
	}
	if c.list {
		for _, n := range ds.Names() {
			_, _ = fmt.Fprintln(stdout, n)
		}
		return 0
	}

	log.Debug("rendering", "version", Version, "path", c.path, "variable", c.name)
	if _, _, err := varplot.Render(ctx, ds, c.name, c.opts); err != nil {
		log.Error("render failed", "variable", c.name, "err", err)
		return 1
	}
	return 0
}
