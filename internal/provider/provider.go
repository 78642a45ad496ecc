// Package provider binds backend providers to the host container.
//
// Providers come from two places: the provider registry, whose members are
// registered once per run, and provider type names declared by persistence
// units. A declared name that the registry does not already satisfy gets a
// lazy singleton that loads and instantiates the type on first use.
package provider

import (
	"context"
	"errors"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/container"
	"github.com/vk/persistunits/internal/unitinfo"
)

// ErrInstantiation reports a provider type that could not be loaded or built.
var ErrInstantiation = errors.New("provider instantiation failed")

// Provider is a data-access backend able to serve persistence units.
type Provider interface {
	// CreateFactory builds the backend's per-unit entry point.
	CreateFactory(ctx context.Context, unit *unitinfo.UnitInfo, props map[string]string) (Factory, error)
}

// Factory is what a Provider builds for one unit.
type Factory interface {
	UnitName() string
	Close() error
}

// Source exposes the providers known before any unit is read.
type Source interface {
	Providers() []Provider
}

// UnitSource is the part of a unit the binder needs. *unitinfo.UnitInfo
// satisfies it, and unit registrations carry one as metadata so pre-existing
// units can be bound without being built.
type UnitSource interface {
	Name() string
	ProviderClassName() string
	ClassLoader() classload.Loader
}

// Describe returns a UnitSource holding fixed values.
func Describe(name, providerClassName string, loader classload.Loader) UnitSource {
	return staticSource{name: name, providerClassName: providerClassName, loader: loader}
}

type staticSource struct {
	name              string
	providerClassName string
	loader            classload.Loader
}

func (s staticSource) Name() string                  { return s.name }
func (s staticSource) ProviderClassName() string     { return s.providerClassName }
func (s staticSource) ClassLoader() classload.Loader { return s.loader }

// WithUnitSource attaches src to a unit registration so the binder can read
// it without building the unit.
func WithUnitSource(src UnitSource) container.Option {
	return container.WithMetadata(src)
}
