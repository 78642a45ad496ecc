package container

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/vk/persistunits/internal/ctxlog"
)

// Factory creates the value behind a registration.
type Factory func(ctx context.Context) (any, error)

// Closer releases a value created by a Factory.
type Closer func(ctx context.Context, v any) error

// Option configures a registration.
type Option func(*Registration)

// Named qualifies a registration so Get can select it by name.
func Named(name string) Option {
	return func(r *Registration) { r.name = name }
}

// WithMetadata attaches a value that can be read without running the factory.
func WithMetadata(meta any) Option {
	return func(r *Registration) { r.metadata = meta }
}

// WithCloser sets the function Close uses to release the created value.
func WithCloser(closer Closer) Option {
	return func(r *Registration) { r.closer = closer }
}

// Registration is one lazy singleton.
type Registration struct {
	id       uuid.UUID
	types    []reflect.Type
	name     string
	metadata any
	factory  Factory
	closer   Closer

	mu    sync.Mutex
	val   any
	ready bool
}

// ID returns the registration's unique identifier.
func (r *Registration) ID() uuid.UUID { return r.id }

// Types returns the types the registration is visible under.
func (r *Registration) Types() []reflect.Type { return slices.Clone(r.types) }

// Name returns the qualifier name, or "" when unqualified.
func (r *Registration) Name() string { return r.name }

// Metadata returns the value attached with WithMetadata.
func (r *Registration) Metadata() any { return r.metadata }

// Ready reports whether the factory has already produced a value.
func (r *Registration) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

func (r *Registration) String() string {
	if r.name == "" {
		return fmt.Sprintf("%v[%s]", r.types, r.id)
	}
	return fmt.Sprintf("%v(%q)[%s]", r.types, r.name, r.id)
}

func (r *Registration) provides(t reflect.Type) bool {
	return slices.Contains(r.types, t)
}

// get runs the factory at most once successfully. Failures are returned and
// the next call retries.
func (r *Registration) get(ctx context.Context) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return r.val, nil
	}
	v, err := r.factory(ctx)
	if err != nil {
		return nil, err
	}
	r.val = v
	r.ready = true
	return v, nil
}

// Container holds singleton registrations and scanned component names.
type Container struct {
	mu         sync.RWMutex
	regs       []*Registration
	vetoed     map[string]struct{}
	components []string
}

// New creates an empty Container.
func New() *Container {
	return &Container{vetoed: make(map[string]struct{})}
}

// RegisterSingleton adds a lazy singleton visible under every type in types.
// It panics when types is empty or factory is nil.
func (c *Container) RegisterSingleton(types []reflect.Type, factory Factory, opts ...Option) *Registration {
	if len(types) == 0 {
		panic("container: singleton registered without types")
	}
	if factory == nil {
		panic("container: singleton registered without a factory")
	}
	reg := &Registration{
		id:      uuid.New(),
		types:   slices.Clone(types),
		factory: factory,
	}
	for _, opt := range opts {
		opt(reg)
	}

	c.mu.Lock()
	c.regs = append(c.regs, reg)
	c.mu.Unlock()

	slog.Debug("Registered singleton.", "id", reg.id, "types", reg.types, "name", reg.name)
	return reg
}

// RegisterInstance adds an already-built singleton. The container does not
// own v, so Close never releases it unless a closer is supplied.
func (c *Container) RegisterInstance(v any, types []reflect.Type, opts ...Option) *Registration {
	return c.RegisterSingleton(types, func(context.Context) (any, error) { return v, nil }, opts...)
}

// Lookup returns every registration visible under t, in registration order.
func (c *Container) Lookup(t reflect.Type) []*Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Registration
	for _, reg := range c.regs {
		if reg.provides(t) {
			out = append(out, reg)
		}
	}
	return out
}

// Registrations returns every registration in registration order.
func (c *Container) Registrations() []*Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.regs)
}

// Get returns the singleton visible under t and, when name is non-empty,
// qualified by name. Exactly one registration must match.
func (c *Container) Get(ctx context.Context, t reflect.Type, name string) (any, error) {
	var candidates []*Registration
	for _, reg := range c.Lookup(t) {
		if name == "" || reg.name == name {
			candidates = append(candidates, reg)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, NewErrNotFound(t, name)
	case 1:
		return c.Instance(ctx, candidates[0])
	default:
		return nil, NewErrAmbiguous(t, name, len(candidates))
	}
}

// Instance returns the value behind reg, creating it on first use.
func (c *Container) Instance(ctx context.Context, reg *Registration) (any, error) {
	v, err := reg.get(ctx)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Singleton factory failed.", "registration", reg.String(), "error", err)
		return nil, err
	}
	return v, nil
}

// Probe returns the value behind reg without keeping it. A registration
// that is already ready returns its singleton; otherwise the factory runs
// and its result is handed back uncached.
func (c *Container) Probe(ctx context.Context, reg *Registration) (any, error) {
	reg.mu.Lock()
	if reg.ready {
		v := reg.val
		reg.mu.Unlock()
		return v, nil
	}
	reg.mu.Unlock()
	return reg.factory(ctx)
}

// Get is the typed form of Container.Get.
func Get[T any](ctx context.Context, c *Container, name string) (T, error) {
	var zero T
	v, err := c.Get(ctx, reflect.TypeFor[T](), name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: value %T is not a %s", v, reflect.TypeFor[T]())
	}
	return typed, nil
}

// All returns every singleton visible under T, creating them as needed.
func All[T any](ctx context.Context, c *Container) ([]T, error) {
	regs := c.Lookup(reflect.TypeFor[T]())
	out := make([]T, 0, len(regs))
	for _, reg := range regs {
		v, err := c.Instance(ctx, reg)
		if err != nil {
			return nil, err
		}
		typed, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("container: value %T is not a %s", v, reflect.TypeFor[T]())
		}
		out = append(out, typed)
	}
	return out, nil
}

// Veto removes a scanned type from ordinary component registration. Vetoing
// a type that was already registered as a component withdraws it.
func (c *Container) Veto(className string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vetoed[className] = struct{}{}
	c.components = slices.DeleteFunc(c.components, func(n string) bool { return n == className })
}

// Vetoed reports whether className has been vetoed.
func (c *Container) Vetoed(className string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.vetoed[className]
	return ok
}

// RegisterComponent records a scanned type as an ordinary component. It
// returns false when the type is vetoed or already registered.
func (c *Container) RegisterComponent(className string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vetoed[className]; ok {
		return false
	}
	if slices.Contains(c.components, className) {
		return false
	}
	c.components = append(c.components, className)
	return true
}

// Components returns the ordinary component names in registration order.
func (c *Container) Components() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.components)
}

// Close releases every created singleton that has a closer, newest first,
// and empties the container. All closer errors are returned.
func (c *Container) Close(ctx context.Context) []error {
	c.mu.Lock()
	regs := c.regs
	c.regs = nil
	c.mu.Unlock()

	var errs []error
	for i := len(regs) - 1; i >= 0; i-- {
		reg := regs[i]
		reg.mu.Lock()
		ready, val := reg.ready, reg.val
		reg.mu.Unlock()
		if !ready || reg.closer == nil {
			continue
		}
		if err := reg.closer(ctx, val); err != nil {
			errs = append(errs, NewErrCloseFailed(reg, err))
		}
	}
	return errs
}
