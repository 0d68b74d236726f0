package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/specialistvlad/stagegrid/internal/config"
	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	ctx      context.Context
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry
	metrics  *prometheus.Registry

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger, registry and metrics registry. A nil loader picks
// one from the pipeline file extension; no modules means CoreModules.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = CoreModules()
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "transforms", reg.Names())

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &App{
		outW:     outW,
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		registry: reg,
		metrics:  metrics,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
