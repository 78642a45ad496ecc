package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/persistunits/internal/container"
	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/fsutil"
	"github.com/vk/persistunits/internal/pipeline"
	"github.com/vk/persistunits/internal/provider"
	"github.com/vk/persistunits/internal/report"
	"github.com/vk/persistunits/internal/unitinfo"
)

// Run executes one registration pass and writes its report. The container is
// closed before Run returns.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer func() {
		if cerr := errors.Join(a.container.Close(ctx)...); cerr != nil {
			a.logger.Error("Container did not close cleanly.", "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	filter, err := report.CompileFilter(a.config.Filter)
	if err != nil {
		return err
	}

	driver, err := pipeline.New(pipeline.Config{
		Container: a.container,
		Providers: a.registry,
		Locator:   fsutil.NewDescriptorLocator(a.config.Roots...),
		Types:     a.types,
		Loader:    a.registry.Loader(),
		Validate: func(ctx context.Context, u *unitinfo.UnitInfo) error {
			return a.registry.ValidateUnit(ctx, u)
		},
		StrictValidation: a.config.Strict,
		TransformerConsumer: func(t unitinfo.Transformer) {
			a.transformers = append(a.transformers, t)
		},
	})
	if err != nil {
		return err
	}

	a.logger.Info("Starting registration pass.", "roots", a.config.Roots, "scan", a.config.ScanPatterns)
	res, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	a.logger.Info("Providers registered.", "known", a.registry.ProviderNames(), "bound", res.BoundProviders)

	if a.config.CreateFactories {
		if err := a.createFactories(ctx, res.Units); err != nil {
			return err
		}
	}

	rep, err := filter.Apply(report.FromResult(res, a.container.Components()))
	if err != nil {
		return err
	}
	if err := report.Write(a.outW, rep, a.config.Format); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// createFactories resolves each unit's provider from the container and asks
// it for a factory, closing every factory again once all were created. A unit
// without a provider falls back to the first known provider.
func (a *App) createFactories(ctx context.Context, units []*unitinfo.UnitInfo) error {
	var factories []provider.Factory
	defer func() {
		for _, f := range factories {
			if err := f.Close(); err != nil {
				a.logger.Warn("Factory did not close cleanly.", "unit", f.UnitName(), "error", err)
			}
		}
	}()

	known := a.registry.ProviderNames()
	for _, u := range units {
		name := u.ProviderClassName()
		if name == "" {
			if len(known) == 0 {
				a.logger.Warn("Unit names no provider and none is known.", "unit", u.Name())
				continue
			}
			name = known[0]
		}
		p, err := container.Get[provider.Provider](ctx, a.container, name)
		if err != nil {
			return fmt.Errorf("unit %q: %w", u.Name(), err)
		}
		f, err := p.CreateFactory(ctx, u, u.Properties())
		if err != nil {
			return fmt.Errorf("unit %q: creating factory with %s: %w", u.Name(), name, err)
		}
		factories = append(factories, f)
		a.logger.Info("Factory created.", "unit", f.UnitName(), "provider", name)
	}
	return nil
}
