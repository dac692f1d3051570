// Command capacity-explorer writes the renewable capacity maps, charts and
// listings for a set of countries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/repp-atlas/internal/app"
	"github.com/mohammed-shakir/repp-atlas/internal/capacity"
	"github.com/mohammed-shakir/repp-atlas/internal/charts"
	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/logger"
	h3mapper "github.com/mohammed-shakir/repp-atlas/internal/mapper/h3"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
	"github.com/mohammed-shakir/repp-atlas/internal/varplot"
	"github.com/mohammed-shakir/repp-atlas/internal/webmap"
)

var Version = "dev"

type cli struct {
	cfg       config.Config
	outDir    string
	country   string
	source    plants.Source
	status    capacity.StatusPredicate
	csv       bool
	cellsRes  int
	parentRes int
	basemap   varplot.Basemap
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], config.FromEnv(), os.Stdout, os.Stderr))
}

func parseArgs(args []string, cfg config.Config, stderr io.Writer) (cli, error) {
	fs := flag.NewFlagSet("capacity-explorer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	c := cli{cfg: cfg}
	var (
		countries = fs.String("countries", strings.Join(cfg.Countries, ","), `comma separated allow-list, "all" for every country`)
		source    = fs.String("source", cfg.PlantsSource, "plant source: file or wfs")
		path      = fs.String("plants", cfg.PlantsPath, "plants GeoJSON file")
		coast     = fs.String("coastlines", cfg.CoastlinePath, "coastline shapefile or GeoJSON")
		listSrc   = fs.String("listing-source", "hydro", "energy source of the listing")
		status    = fs.String("status", "operating", "status of the listing: operating, planned, all, O, NO, U or P")
	)
	fs.StringVar(&c.outDir, "out", "out", "output directory")
	fs.StringVar(&c.country, "country", "Kenya", "country of the listing and interactive map")
	fs.BoolVar(&c.csv, "csv", false, "write the listing as CSV to the output directory")
	fs.IntVar(&c.cellsRes, "cells", -1, "also bin capacity into H3 cells at this resolution")
	fs.IntVar(&c.parentRes, "cells-parent", -1, "roll the H3 cells up to this coarser resolution")
	if err := fs.Parse(args); err != nil {
		return cli{}, err
	}
	if fs.NArg() != 0 {
		return cli{}, fmt.Errorf("unexpected arguments %v", fs.Args())
	}

	c.cfg.PlantsSource = strings.ToLower(strings.TrimSpace(*source))
	c.cfg.PlantsPath = *path
	c.cfg.Countries = nil
	if v := strings.TrimSpace(*countries); v != "" && !strings.EqualFold(v, "all") {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.cfg.Countries = append(c.cfg.Countries, s)
			}
		}
	}

	var ok bool
	if c.source, ok = plants.ParseSource(*listSrc); !ok {
		return cli{}, fmt.Errorf("invalid -listing-source %q", *listSrc)
	}
	if c.status, ok = capacity.ParseStatus(*status); !ok {
		return cli{}, fmt.Errorf("invalid -status %q", *status)
	}
	if c.cellsRes > 15 || (c.parentRes >= 0 && (c.cellsRes < 0 || c.parentRes > c.cellsRes)) {
		return cli{}, errors.New("-cells must be 0..15 and -cells-parent no finer than -cells")
	}
	if *coast != "" {
		bm, err := varplot.OpenBasemap(*coast)
		if err != nil {
			return cli{}, err
		}
		c.basemap = bm
	}
	return c, nil
}

func run(ctx context.Context, args []string, cfg config.Config, stdout, stderr io.Writer) int {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   true,
		SampleN:   cfg.LogSampleN,
		Component: "capacity-explorer",
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
	if err := explore(ctx, c, stdout, log); err != nil {
		log.Error("capacity explorer failed", "err", err)
		return 1
	}
	return 0
}

func explore(ctx context.Context, c cli, stdout io.Writer, log *slog.Logger) error {
	upstream, err := app.Upstream(c.cfg, log)
	if err != nil {
		return err
	}
	var fetcher plants.Fetcher
	if upstream != nil {
		fetcher = upstream
	}
	src, err := app.PlantsLoader(c.cfg, fetcher, log)
	if err != nil {
		return err
	}
	t, err := src.Load(ctx)
	if err != nil {
		return err
	}
	log.Info("plants loaded", "count", len(t), "version", Version)

	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return err
	}
	out := func(name string) string { return filepath.Join(c.outDir, name) }
	countries := c.cfg.Countries

	m, err := charts.ContinentMap(t, countries, c.basemap)
	if err != nil {
		return fmt.Errorf("continent map: %w", err)
	}
	if err := charts.Save(m, charts.MapSize, out("continent.png")); err != nil {
		return err
	}

	pv := capacity.PivotBySource(capacity.Aggregate(t, countries, capacity.Operating, capacity.ByCountrySource))
	_, _ = fmt.Fprintln(stdout, "Operating capacity (MW) by country and source")
	if err := capacity.WritePivotText(stdout, pv); err != nil {
		return err
	}
	if len(pv.Countries) > 0 {
		stack, err := charts.CountryStack(pv, "Operating renewable capacity by country")
		if err != nil {
			return fmt.Errorf("country chart: %w", err)
		}
		if err := charts.Save(stack, charts.BarSize, out("capacity_by_country.png")); err != nil {
			return err
		}
		mix, err := charts.SourceMix(pv, "Source mix by country")
		if err != nil {
			return fmt.Errorf("mix chart: %w", err)
		}
		if err := writeFile(out("source_mix.png"), func(w io.Writer) error {
			return charts.WriteSourceMix(w, mix, "png")
		}); err != nil {
			return err
		}
	} else {
		log.Warn("no operating capacity in the allow-list; skipping country charts")
	}

	cmp := capacity.Compare(t, countries)
	_, _ = fmt.Fprintln(stdout, "\nOperating vs planned capacity (MW)")
	if err := capacity.WriteComparisonText(stdout, cmp); err != nil {
		return err
	}
	bars, err := charts.OperatingVsPlanned(cmp, "Operating vs planned capacity by source")
	if err != nil {
		return fmt.Errorf("comparison chart: %w", err)
	}
	if err := charts.Save(bars, charts.BarSize, out("operating_vs_planned.png")); err != nil {
		return err
	}

	listing := capacity.Listing(t, c.country, c.source, c.status)
	_, _ = fmt.Fprintf(stdout, "\n%s plants in %s\n", c.source, c.country)
	if err := capacity.WriteListingText(stdout, listing); err != nil {
		return err
	}
	if c.csv {
		if err := writeFile(out("listing.csv"), func(w io.Writer) error {
			return capacity.WriteListingCSV(w, listing)
		}); err != nil {
			return err
		}
	}

	mapPath := out(fileName(c.country) + "_map.html")
	err = writeFile(mapPath, func(w io.Writer) error { return webmap.Write(w, t, c.country) })
	switch {
	case errors.Is(err, capacity.ErrNoData):
		_ = os.Remove(mapPath)
		log.Warn("no plants to map", "country", c.country)
	case err != nil:
		return err
	}

	if c.cellsRes >= 0 {
		b := capacity.Binner{Mapper: h3mapper.New(), Res: c.cellsRes}
		cells, err := b.ByCell(t.InCountries(countries))
		if err != nil {
			return fmt.Errorf("h3 cells: %w", err)
		}
		if c.parentRes >= 0 {
			if cells, err = b.RollUp(cells, c.parentRes); err != nil {
				return fmt.Errorf("h3 roll-up: %w", err)
			}
		}
		if err := writeFile(out("cells.geojson"), func(w io.Writer) error {
			return capacity.WriteCellsGeoJSON(w, cells)
		}); err != nil {
			return err
		}
	}

	log.Info("outputs written", "dir", c.outDir)
	return nil
}

func fileName(country string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(country)), " ", "_")
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
