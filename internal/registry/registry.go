package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/provider"
)

// Module is the interface that all built-in provider modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the known providers and the type catalog units load from.
type Registry struct {
	providers   []provider.Provider
	names       map[string]struct{}
	configTypes map[string]reflect.Type
	catalog     *classload.Catalog
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		names:       make(map[string]struct{}),
		configTypes: make(map[string]reflect.Type),
		catalog:     classload.NewCatalog(),
	}
}

// RegisterProvider adds p to the known providers. config is a value or
// pointer of the struct p decodes unit properties into; it may be nil.
func (r *Registry) RegisterProvider(p provider.Provider, config any) {
	name := classload.NameOf(p)
	if _, exists := r.names[name]; exists {
		panic(fmt.Sprintf("provider '%s' already registered", name))
	}
	slog.Debug("Registering provider.", "name", name)
	r.names[name] = struct{}{}
	r.providers = append(r.providers, p)
	r.registerConfig(name, config)
}

// RegisterClass makes a type loadable by name. Providers registered here but
// not with RegisterProvider are only instantiated when a unit names them.
func (r *Registry) RegisterClass(name string, ctor classload.Constructor, config any) {
	slog.Debug("Registering class.", "name", name)
	r.catalog.Register(name, ctor)
	r.registerConfig(name, config)
}

func (r *Registry) registerConfig(name string, config any) {
	if config == nil {
		return
	}
	t := reflect.TypeOf(config)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("config for '%s' must be a struct, got %s", name, t))
	}
	if prev, exists := r.configTypes[name]; exists && prev != t {
		panic(fmt.Sprintf("conflicting config types for '%s': %s and %s", name, prev, t))
	}
	r.configTypes[name] = t
}

// Providers returns the known providers in registration order.
func (r *Registry) Providers() []provider.Provider {
	return slices.Clone(r.providers)
}

// ProviderNames returns the type names of the known providers in registration order.
func (r *Registry) ProviderNames() []string {
	out := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, classload.NameOf(p))
	}
	return out
}

// Catalog returns the type catalog.
func (r *Registry) Catalog() *classload.Catalog {
	return r.catalog
}

// Loader returns a loader over the whole catalog.
func (r *Registry) Loader() classload.Loader {
	return classload.NewCatalogLoader(r.catalog)
}

// ConfigType returns the configuration struct registered for a provider name.
func (r *Registry) ConfigType(name string) (reflect.Type, bool) {
	t, ok := r.configTypes[name]
	return t, ok
}
