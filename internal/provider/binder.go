package provider

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/container"
	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/unitinfo"
)

// Binder registers providers with a container. A Binder lives for a single
// registration pass; its tables are discarded with it.
type Binder struct {
	c       *container.Container
	ambient classload.Loader
	known   map[string]struct{}
	bound   map[string]struct{}
}

// NewBinder creates a Binder that registers into c. ambient is used for units
// that carry no loader of their own.
func NewBinder(c *container.Container, ambient classload.Loader) *Binder {
	return &Binder{
		c:       c,
		ambient: ambient,
		known:   make(map[string]struct{}),
		bound:   make(map[string]struct{}),
	}
}

// SeedKnown registers src itself and every provider it exposes. Each
// provider is visible under its concrete type and under Provider, qualified
// by its type name.
func (b *Binder) SeedKnown(ctx context.Context, src Source) {
	logger := ctxlog.FromContext(ctx)

	b.c.RegisterInstance(src, []reflect.Type{reflect.TypeOf(src), reflect.TypeFor[Source]()})

	for _, p := range src.Providers() {
		name := classload.NameOf(p)
		if _, dup := b.known[name]; dup {
			logger.Warn("Provider listed twice by the registry, keeping the first.", "provider", name)
			continue
		}
		b.known[name] = struct{}{}
		b.c.RegisterInstance(p,
			[]reflect.Type{reflect.TypeOf(p), reflect.TypeFor[Provider]()},
			container.Named(name),
		)
		logger.Debug("Seeded known provider.", "provider", name)
	}
}

// Known reports whether className was seeded from the provider registry.
func (b *Binder) Known(className string) bool {
	_, ok := b.known[className]
	return ok
}

// BindPreexisting binds the providers named by unit registrations that were
// already in the container before this pass. Registrations carrying
// UnitSource metadata are read without being built; any other is probed
// once and the instance discarded.
func (b *Binder) BindPreexisting(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for _, reg := range b.c.Lookup(reflect.TypeFor[*unitinfo.UnitInfo]()) {
		src, ok := reg.Metadata().(UnitSource)
		if !ok {
			v, err := b.c.Probe(ctx, reg)
			if err != nil {
				return fmt.Errorf("reading pre-existing unit %s: %w", reg, err)
			}
			src, ok = v.(UnitSource)
			if !ok {
				return fmt.Errorf("pre-existing unit %s has unexpected type %T", reg, v)
			}
		}
		logger.Debug("Binding provider of pre-existing unit.", "unit", src.Name(), "provider", src.ProviderClassName())
		b.Bind(ctx, src)
	}
	return nil
}

// Bind registers a lazy provider singleton for unit when its provider type is
// neither known nor already bound in this pass. It returns the new
// registration, or nil when nothing was registered. Loading failures surface
// as ErrInstantiation from the first Get, never from Bind.
func (b *Binder) Bind(ctx context.Context, unit UnitSource) *container.Registration {
	name := unit.ProviderClassName()
	if name == "" {
		return nil
	}
	if _, ok := b.known[name]; ok {
		return nil
	}
	if _, ok := b.bound[name]; ok {
		return nil
	}
	b.bound[name] = struct{}{}

	loader := unit.ClassLoader()
	if loader == nil {
		loader = b.ambient
	}

	ctxlog.FromContext(ctx).Info("Binding declared provider.", "provider", name, "unit", unit.Name())
	return b.c.RegisterSingleton(
		[]reflect.Type{reflect.TypeFor[Provider]()},
		func(ctx context.Context) (any, error) { return instantiate(loader, name) },
		container.Named(name),
	)
}

// Bound returns the provider type names registered lazily in this pass, sorted.
func (b *Binder) Bound() []string {
	return slices.Sorted(maps.Keys(b.bound))
}

func instantiate(loader classload.Loader, name string) (Provider, error) {
	if loader == nil {
		return nil, fmt.Errorf("%w: %s: no class loader", ErrInstantiation, name)
	}
	v, err := classload.Instantiate(loader, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInstantiation, name, err)
	}
	p, ok := v.(Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %T is not a provider", ErrInstantiation, name, v)
	}
	return p, nil
}
