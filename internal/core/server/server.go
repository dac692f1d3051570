// Package server wires the atlas routes behind the shared middleware and
// runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/repp-atlas/internal/core/config"
	"github.com/mohammed-shakir/repp-atlas/internal/core/health"
	middleware "github.com/mohammed-shakir/repp-atlas/internal/core/middleware"
)

// Options are the optional server collaborators.
type Options struct {
	// Metrics serves /metrics; the default Prometheus registry when nil.
	Metrics http.Handler
	// Ready names the components gating /readyz; none means always ready.
	Ready map[string]health.ReadinessReporter
}

// Handler mounts the probes, metrics and api behind the middleware chain.
func Handler(cfg config.Config, logger *slog.Logger, api http.Handler, o Options) http.Handler {
	if o.Metrics == nil {
		o.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(o.Ready))
	if cfg.MetricsEnabled {
		r.Get("/metrics", o.Metrics.ServeHTTP)
	}
	r.Mount("/", api)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, api http.Handler, o Options) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, logger, api, o),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// figures can take a while to draw
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
