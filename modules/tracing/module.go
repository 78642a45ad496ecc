// Package tracing is a provider that only logs. It is never known up front;
// units select it by name and the binder loads it lazily.
package tracing

import (
	"context"
	"log/slog"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/provider"
	"github.com/vk/persistunits/internal/registry"
	"github.com/vk/persistunits/internal/unitinfo"
)

// ProviderName is the name units use to select this provider.
var ProviderName = classload.NameFor[Provider]()

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the unit properties the provider reads.
type Config struct {
	Label string `persist:"tracing.label"`
	Debug bool   `persist:"tracing.debug"`
}

// Provider logs every factory it creates and closes.
type Provider struct{}

// CreateFactory implements provider.Provider.
func (p *Provider) CreateFactory(ctx context.Context, unit *unitinfo.UnitInfo, props map[string]string) (provider.Factory, error) {
	var cfg Config
	if err := registry.DecodeProperties(props, &cfg); err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	logger := ctxlog.FromContext(ctx).With("provider", "tracing", "unit", unit.Name())
	if cfg.Label != "" {
		logger = logger.With("label", cfg.Label)
	}
	logger.Log(ctx, level, "Tracing factory created.",
		"classes", unit.ManagedClassNames(),
		"transaction_type", unit.TransactionType().String(),
		"jta_data_source", unit.JTADataSourceName().String,
		"non_jta_data_source", unit.NonJTADataSourceName().String,
	)
	unit.AddTransformer(func(className string, definition []byte) ([]byte, error) {
		logger.Log(ctx, level, "Class definition seen.", "class", className, "bytes", len(definition))
		return nil, nil
	})
	return &factory{unit: unit.Name(), logger: logger, level: level}, nil
}

type factory struct {
	unit   string
	logger *slog.Logger
	level  slog.Level
}

func (f *factory) UnitName() string { return f.unit }

func (f *factory) Close() error {
	f.logger.Log(context.Background(), f.level, "Tracing factory closed.")
	return nil
}

// Register makes the provider loadable by name without listing it as known.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterClass(ProviderName, func() any { return &Provider{} }, Config{})
}
