package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/repp-atlas/internal/app"
	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/logger"
	"github.com/mohammed-shakir/repp-atlas/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addr != "" {
		cfg.Addr = *addr
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "atlas-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting atlas server",
		"addr", cfg.Addr,
		"version", Version,
		"datasets", cfg.DatasetDir,
		"plants_source", cfg.PlantsSource,
		"cache", cfg.CacheEnabled,
		"invalidation", cfg.Invalidation.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLog, metrics.BuildInfo{
		Version:   Version,
		Revision:  os.Getenv("BUILD_REVISION"),
		BuildDate: os.Getenv("BUILD_DATE"),
	})
	if err != nil {
		appLog.Error("setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			appLog.Warn("close failed", "err", err)
		}
	}()

	if err := a.Run(ctx, cfg, appLog); err != nil {
		appLog.Error("server error", "err", err)
		return 1
	}
	appLog.Info("atlas server stopped")
	return 0
}
