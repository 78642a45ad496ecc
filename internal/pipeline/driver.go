// Package pipeline runs the startup registration pass that turns scanned
// types and descriptor resources into registered persistence units and
// providers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/classreg"
	"github.com/vk/persistunits/internal/container"
	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/descriptor"
	"github.com/vk/persistunits/internal/provider"
	"github.com/vk/persistunits/internal/scan"
	"github.com/vk/persistunits/internal/unitinfo"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("pipeline: already run")

// TypeSource produces the scanned types a pass starts from.
type TypeSource interface {
	Scan(ctx context.Context) ([]scan.Type, error)
}

// TypeSourceFunc adapts a function to TypeSource.
type TypeSourceFunc func(ctx context.Context) ([]scan.Type, error)

// Scan implements TypeSource.
func (f TypeSourceFunc) Scan(ctx context.Context) ([]scan.Type, error) { return f(ctx) }

// Validator checks a synthesized unit before it is registered.
type Validator func(ctx context.Context, unit *unitinfo.UnitInfo) error

// Config holds the collaborators of a Driver.
type Config struct {
	Container *container.Container
	Providers provider.Source
	Locator   descriptor.Locator

	// Types is optional; without it no type is scanned.
	Types TypeSource
	// Loader is the ambient loader bound to every unit.
	Loader classload.Loader
	// Resolver is optional and defaults to a resolver over the container's
	// DataSource registrations.
	Resolver datasource.Resolver
	// Validate is optional. Failures are logged unless StrictValidation is set.
	Validate         Validator
	StrictValidation bool

	TransformerConsumer func(unitinfo.Transformer)
}

// Result describes a finished pass.
type Result struct {
	Classes        *classreg.Registry
	Units          []*unitinfo.UnitInfo
	Resources      []descriptor.Resource
	BoundProviders []string
}

// Driver runs one registration pass.
type Driver struct {
	cfg    Config
	state  State
	binder *provider.Binder
	result *Result
	logger *slog.Logger
}

// New validates cfg and returns a Driver ready to Run.
func New(cfg Config) (*Driver, error) {
	if cfg.Container == nil {
		return nil, errors.New("pipeline: container is required")
	}
	if cfg.Providers == nil {
		return nil, errors.New("pipeline: provider source is required")
	}
	if cfg.Locator == nil {
		return nil, errors.New("pipeline: descriptor locator is required")
	}
	return &Driver{cfg: cfg, state: Idle}, nil
}

// State returns the driver's current state.
func (d *Driver) State() State { return d.state }

// Run performs the pass. Any failure aborts it and is returned wrapped with
// the state it happened in. Units registered from earlier resources stay
// registered; no unit of the failing resource is.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.state != Idle {
		return nil, ErrAlreadyRun
	}
	ctx, d.logger = ctxlog.With(ctx, "component", "pipeline")
	d.result = &Result{}
	d.binder = provider.NewBinder(d.cfg.Container, d.cfg.Loader)

	if err := d.run(ctx); err != nil {
		failedIn := d.state
		d.state = Failed
		d.logger.Error("Registration pass failed.", "state", failedIn.String(), "error", err)
		return d.result, fmt.Errorf("pipeline: %s: %w", failedIn, err)
	}
	d.result.BoundProviders = d.binder.Bound()
	d.logger.Info("Registration pass finished.", "units", len(d.result.Units), "resources", len(d.result.Resources), "bound_providers", len(d.result.BoundProviders))
	return d.result, nil
}

func (d *Driver) run(ctx context.Context) error {
	classes, err := d.scan(ctx)
	if err != nil {
		return err
	}
	d.result.Classes = classes
	d.move(ScanComplete)

	d.binder.SeedKnown(ctx, d.cfg.Providers)
	d.move(ProvidersSeeded)

	if err := d.binder.BindPreexisting(ctx); err != nil {
		return err
	}
	d.move(PreexistingUnitsBound)

	resources, err := d.cfg.Locator.Locate(ctx)
	if err != nil {
		return err
	}
	d.result.Resources = resources
	d.move(DescriptorsDiscovered)

	resolver := d.cfg.Resolver
	if resolver == nil {
		resolver = datasource.ContainerResolver(ctx, d.cfg.Container)
	}

	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.processResource(ctx, res, classes, resolver); err != nil {
			return fmt.Errorf("%s: %w", res.Location(), err)
		}
	}
	d.move(Done)
	return nil
}

func (d *Driver) scan(ctx context.Context) (*classreg.Registry, error) {
	classes := classreg.New()
	if d.cfg.Types != nil {
		types, err := d.cfg.Types.Scan(ctx)
		if err != nil {
			return nil, err
		}
		scan.Deliver(ctx, &scan.Recorder{Classes: classes, Container: d.cfg.Container}, types)
	}
	classes.Seal()
	return classes, nil
}

// processResource synthesizes every unit of res before registering any of
// them, so a bad unit leaves the whole resource unregistered.
func (d *Driver) processResource(ctx context.Context, res descriptor.Resource, classes *classreg.Registry, resolver datasource.Resolver) error {
	d.move(ParseUnit)
	doc, err := descriptor.Load(ctx, res)
	if err != nil {
		return err
	}
	root := descriptor.RootFor(res.Location())
	raws, err := descriptor.Parse(doc, root)
	if err != nil {
		return err
	}

	d.move(Synthesize)
	opts := []unitinfo.Option{unitinfo.WithClassLoader(d.cfg.Loader)}
	if d.cfg.TransformerConsumer != nil {
		opts = append(opts, unitinfo.WithTransformerConsumer(d.cfg.TransformerConsumer))
	}
	units := make([]*unitinfo.UnitInfo, 0, len(raws))
	for _, raw := range raws {
		u, err := unitinfo.Synthesize(raw, classes, root, resolver, opts...)
		if err != nil {
			return err
		}
		if err := d.validate(ctx, u); err != nil {
			return err
		}
		units = append(units, u)
	}

	for _, u := range units {
		d.move(RegisterUnit)
		d.cfg.Container.RegisterInstance(u,
			[]reflect.Type{reflect.TypeFor[*unitinfo.UnitInfo]()},
			container.Named(u.Name()),
			provider.WithUnitSource(u),
		)
		d.result.Units = append(d.result.Units, u)
		d.logger.Info("Registered persistence unit.", "unit", u.Name(), "classes", len(u.ManagedClassNames()), "provider", u.ProviderClassName())

		d.move(BindProvider)
		d.binder.Bind(ctx, u)
	}
	return nil
}

func (d *Driver) validate(ctx context.Context, u *unitinfo.UnitInfo) error {
	if d.cfg.Validate == nil {
		return nil
	}
	err := d.cfg.Validate(ctx, u)
	if err == nil {
		return nil
	}
	if d.cfg.StrictValidation {
		return err
	}
	d.logger.Warn("Unit failed validation.", "unit", u.Name(), "error", err)
	return nil
}

func (d *Driver) move(to State) {
	if !canMove(d.state, to) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", d.state, to))
	}
	d.logger.Debug("Pipeline state changed.", "from", d.state.String(), "to", to.String())
	d.state = to
}
