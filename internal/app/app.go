// Package app assembles the atlas server from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/repp-atlas/internal/cache"
	"github.com/mohammed-shakir/repp-atlas/internal/cache/redisstore"
	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/core/executor"
	"github.com/mohammed-shakir/repp-atlas/internal/core/health"
	"github.com/mohammed-shakir/repp-atlas/internal/core/httpclient"
	"github.com/mohammed-shakir/repp-atlas/internal/core/ogc"
	"github.com/mohammed-shakir/repp-atlas/internal/core/router"
	"github.com/mohammed-shakir/repp-atlas/internal/core/server"
	"github.com/mohammed-shakir/repp-atlas/internal/grid"
	"github.com/mohammed-shakir/repp-atlas/internal/invalidation/kafkaconsumer"
	h3mapper "github.com/mohammed-shakir/repp-atlas/internal/mapper/h3"
	"github.com/mohammed-shakir/repp-atlas/internal/metrics"
	"github.com/mohammed-shakir/repp-atlas/internal/plants"
	"github.com/mohammed-shakir/repp-atlas/internal/renderevents"
	"github.com/mohammed-shakir/repp-atlas/internal/varplot"
)

// App is a wired atlas server.
type App struct {
	API      http.Handler
	Options  server.Options
	Consumer *kafkaconsumer.Consumer

	closers []func() error
}

// Upstream returns the WFS executor for cfg, or nil when no GeoServer is
// configured.
func Upstream(cfg config.Config, logger *slog.Logger) (*executor.Executor, error) {
	if strings.TrimSpace(cfg.GeoServerURL) == "" {
		return nil, nil
	}
	return executor.New(logger, httpclient.NewOutbound(cfg.UpstreamLimit), ogc.OWSEndpoint(cfg.GeoServerURL))
}

// PlantsLoader picks the plant source named by cfg.PlantsSource.
func PlantsLoader(cfg config.Config, upstream plants.Fetcher, logger *slog.Logger) (plants.Loader, error) {
	switch cfg.PlantsSource {
	case "", "file":
		if cfg.PlantsPath == "" {
			return nil, errors.New("PLANTS_PATH is required for the file source")
		}
		return plants.FileSource{Path: cfg.PlantsPath}, nil
	case "wfs":
		if upstream == nil {
			return nil, errors.New("GEOSERVER_URL is required for the wfs source")
		}
		return plants.WFSSource{Fetcher: upstream, Layer: cfg.PlantsLayer, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown PLANTS_SOURCE %q", cfg.PlantsSource)
	}
}

// droppers evicts a dataset from every in-memory cache that holds it.
type droppers struct {
	catalog *grid.Catalog
	plants  *plants.Cached
}

func (d droppers) Drop(name string) bool {
	name = grid.DatasetName(name)
	if name == router.PlantsDataset {
		d.plants.Reset()
		return true
	}
	return d.catalog.Drop(name)
}

// New wires every component cfg enables. Close releases what it opened.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, build metrics.BuildInfo) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	catalog, err := grid.NewCatalog(cfg.DatasetDir, cfg.DatasetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("dataset catalog: %w", err)
	}

	var basemap varplot.Basemap
	if cfg.CoastlinePath != "" {
		if basemap, err = varplot.OpenBasemap(cfg.CoastlinePath); err != nil {
			return nil, fmt.Errorf("coastlines: %w", err)
		}
	}

	upstream, err := Upstream(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}
	var fetcher plants.Fetcher
	if upstream != nil {
		fetcher = upstream
	}
	src, err := PlantsLoader(cfg, fetcher, logger)
	if err != nil {
		return nil, err
	}
	plantCache := plants.NewCached(src, cfg.CacheTTLDefault)

	provider := metrics.Init(metrics.Config{Enabled: cfg.MetricsEnabled, Build: build})
	a.Options.Metrics = provider.Handler()
	if cfg.MetricsEnabled {
		provider.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "datasets_loaded",
			Help: "Gridded datasets currently held in memory.",
		}, func() float64 { return float64(catalog.Loaded()) }))
	}

	var renders *cache.Renders
	if cfg.CacheEnabled {
		store, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		renders = cache.New(store, cfg.CacheTTLDefault, cfg.CacheOpTimeout, logger)
		logger.Info("render cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.CacheTTLDefault)
	}

	var events *renderevents.Publisher
	if cfg.RenderEvents.Enabled {
		events, err = renderevents.NewPublisher(cfg.RenderEvents.Brokers, cfg.RenderEvents.Topic, 0, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, events.Close)
	}

	if cfg.Invalidation.Enabled {
		var purger kafkaconsumer.Purger
		if renders != nil {
			purger = renders
		}
		a.Consumer = kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.Invalidation), logger,
			purger, droppers{catalog: catalog, plants: plantCache})
		a.Options.Ready = map[string]health.ReadinessReporter{"invalidation": a.Consumer}
	}

	deps := router.Deps{
		Logger:   logger,
		Config:   cfg,
		Datasets: catalog,
		Basemap:  basemap,
		Plants:   plantCache,
		Mapper:   h3mapper.New(),
		Renders:  renders,
		Events:   events,
	}
	if upstream != nil {
		deps.Features = upstream
	}
	a.API = router.New(deps)

	ok = true
	return a, nil
}

// Run serves the api and, when enabled, consumes invalidation events until
// ctx ends.
func (a *App) Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if a.Consumer != nil {
		go func() {
			if err := a.Consumer.Start(ctx); err != nil {
				logger.Error("invalidation consumer stopped", "err", err)
			}
		}()
	}
	return server.Run(ctx, cfg, logger, a.API, a.Options)
}

// Close releases the connections opened by New, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
