package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/persistunits/internal/container"
	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/pipeline"
	"github.com/vk/persistunits/internal/registry"
	"github.com/vk/persistunits/internal/scan"
	"github.com/vk/persistunits/internal/unitinfo"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW         io.Writer
	logger       *slog.Logger
	config       *Config
	registry     *registry.Registry
	container    *container.Container
	types        pipeline.TypeSource
	transformers []unitinfo.Transformer
}

// NewApp is the constructor for the main application. Reports go to outW and
// logs to logW. It returns a fully initialized App instance, including its
// own isolated logger, provider registry and container.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.Load(ctx, modules...)

	c := container.New()
	datasource.Register(c, cfg.DataSources...)
	logger.Debug("Data sources registered.", "count", len(cfg.DataSources))

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		registry:  reg,
		container: c,
	}
	if len(cfg.ScanPatterns) > 0 {
		s := &scan.Scanner{Dir: cfg.ScanDir, Tests: cfg.ScanTests}
		a.types = pipeline.TypeSourceFunc(func(ctx context.Context) ([]scan.Type, error) {
			return s.Scan(ctx, cfg.ScanPatterns...)
		})
	}
	return a
}

// Registry returns the application's provider registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Container returns the application's container. This is primarily for testing.
func (a *App) Container() *container.Container {
	return a.container
}

// SetTypeSource replaces the package scanner.
func (a *App) SetTypeSource(ts pipeline.TypeSource) {
	a.types = ts
}

// Transformers returns the transformers units registered during the pass.
func (a *App) Transformers() []unitinfo.Transformer {
	return a.transformers
}
