// Package inmemory is a provider whose factories keep nothing outside the
// process. It is the default backend of units that name no provider.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/provider"
	"github.com/vk/persistunits/internal/registry"
	"github.com/vk/persistunits/internal/unitinfo"
)

// DefaultCapacity bounds a factory's managed classes when the unit sets no
// inmemory.capacity.
const DefaultCapacity = 1024

// ProviderName is the name units use to select this provider.
var ProviderName = classload.NameFor[Provider]()

// ErrClosed is returned by a second Close of a factory.
var ErrClosed = errors.New("inmemory: factory already closed")

// Module implements the registry.Module interface for this package.
type Module struct{}

// Config defines the unit properties the provider reads.
type Config struct {
	Capacity       int  `persist:"inmemory.capacity"`
	ReadOnly       bool `persist:"inmemory.read_only"`
	PingDataSource bool `persist:"inmemory.ping_data_source"`
}

// Provider builds in-memory factories.
type Provider struct{}

// CreateFactory implements provider.Provider.
func (p *Provider) CreateFactory(ctx context.Context, unit *unitinfo.UnitInfo, props map[string]string) (provider.Factory, error) {
	logger := ctxlog.FromContext(ctx).With("unit", unit.Name())

	cfg := Config{Capacity: DefaultCapacity}
	if err := registry.DecodeProperties(props, &cfg); err != nil {
		return nil, fmt.Errorf("inmemory: %w", err)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("inmemory: capacity must be positive, got %d", cfg.Capacity)
	}
	classes := unit.ManagedClassNames()
	if len(classes) > cfg.Capacity {
		return nil, fmt.Errorf("inmemory: unit '%s' manages %d classes, capacity is %d", unit.Name(), len(classes), cfg.Capacity)
	}

	if cfg.PingDataSource {
		ds := dataSourceOf(unit)
		if ds == nil {
			return nil, fmt.Errorf("inmemory: unit '%s' has no data source to ping", unit.Name())
		}
		if err := ds.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("inmemory: pinging data source of unit '%s': %w", unit.Name(), err)
		}
		logger.Debug("Data source reachable.", "data_source", fmt.Sprint(ds))
	}

	logger.Debug("In-memory factory created.", "classes", len(classes), "read_only", cfg.ReadOnly)
	return &Factory{unit: unit.Name(), config: cfg, classes: classes}, nil
}

func dataSourceOf(unit *unitinfo.UnitInfo) datasource.DataSource {
	if unit.TransactionType() == unitinfo.JTA {
		if ds := unit.JTADataSource(); ds != nil {
			return ds
		}
	}
	return unit.NonJTADataSource()
}

// Factory is the per-unit handle built by Provider.
type Factory struct {
	unit    string
	config  Config
	classes []string

	mu     sync.Mutex
	closed bool
}

// UnitName implements provider.Factory.
func (f *Factory) UnitName() string { return f.unit }

// Config returns the decoded unit properties.
func (f *Factory) Config() Config { return f.config }

// Classes returns the managed classes the factory was built for.
func (f *Factory) Classes() []string { return append([]string(nil), f.classes...) }

// Close implements provider.Factory.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	return nil
}

// Register registers the provider with the registry, both as a known
// provider and as a loadable class.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterProvider(&Provider{}, Config{})
	r.RegisterClass(ProviderName, func() any { return &Provider{} }, Config{})
}
