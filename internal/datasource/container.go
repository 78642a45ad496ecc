package datasource

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	"github.com/vk/persistunits/internal/container"
	"github.com/vk/persistunits/internal/ctxlog"
)

// Register adds a lazy DataSource singleton for each config, qualified by
// the config's name. Data sources are opened on first use and closed with
// the container.
func Register(c *container.Container, configs ...Config) {
	for _, cfg := range configs {
		cfg := cfg
		c.RegisterSingleton(
			[]reflect.Type{reflect.TypeFor[DataSource]()},
			func(context.Context) (any, error) { return Open(cfg) },
			container.Named(cfg.Name),
			container.WithMetadata(cfg),
			container.WithCloser(func(_ context.Context, v any) error { return Close(v.(DataSource)) }),
		)
	}
}

// ContainerResolver resolves data sources from DataSource registrations in
// c. A named request selects the registration with exactly that name, so an
// empty name matches nothing. A request for the default selects the
// registration named DefaultName or, failing that, the only DataSource
// registration. Failures are logged and resolve to nil.
func ContainerResolver(ctx context.Context, c *container.Container) Resolver {
	return func(jta, useDefault bool, name sql.NullString) DataSource {
		logger := ctxlog.FromContext(ctx).With("jta", jta, "use_default", useDefault)

		if name.Valid {
			if name.String == "" {
				logger.Warn("Data source name is empty.")
				return nil
			}
			ds, err := container.Get[DataSource](ctx, c, name.String)
			if err != nil {
				logger.Warn("Data source could not be resolved.", "name", name.String, "error", err)
				return nil
			}
			return ds
		}
		if !useDefault {
			return nil
		}

		ds, err := container.Get[DataSource](ctx, c, DefaultName)
		if errors.Is(err, container.ErrNotFound) {
			ds, err = container.Get[DataSource](ctx, c, "")
		}
		if err != nil {
			logger.Warn("Default data source could not be resolved.", "error", err)
			return nil
		}
		return ds
	}
}
