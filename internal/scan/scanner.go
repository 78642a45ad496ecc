package scan

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/tools/go/packages"

	"github.com/vk/persistunits/internal/classreg"
	"github.com/vk/persistunits/internal/container"
	"github.com/vk/persistunits/internal/ctxlog"
)

// LoadMode specifies what information to load from packages. Directives are
// read from syntax, so type checking is not needed.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax

// Scanner loads Go packages from source and inspects their type declarations.
type Scanner struct {
	// Dir is the directory packages are resolved from; empty means the
	// current directory.
	Dir string
	// Tests includes test files in the scan.
	Tests bool
}

// Scan loads the packages matching patterns and returns their exported
// named types.
func (s *Scanner) Scan(ctx context.Context, patterns ...string) ([]Type, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading packages for scan.", "dir", s.Dir, "patterns", patterns)

	cfg := &packages.Config{
		Context: ctx,
		Mode:    LoadMode,
		Dir:     s.Dir,
		Tests:   s.Tests,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	var errs []error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	})
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %w", errors.Join(errs...))
	}

	var out []Type
	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		for _, t := range Inspect(pkg.Fset, pkg.PkgPath, pkg.Syntax) {
			// Test variants repeat the declarations of their package.
			if _, dup := seen[t.Name]; dup {
				continue
			}
			seen[t.Name] = struct{}{}
			out = append(out, t)
		}
		logger.Debug("Scanned package.", "package", pkg.PkgPath, "files", len(pkg.GoFiles))
	}
	logger.Info("Scan finished.", "packages", len(pkgs), "types", len(out))
	return out, nil
}

// Observer receives every scanned type.
type Observer interface {
	ObserveType(ctx context.Context, t Type)
}

// Deliver hands every type to obs in order.
func Deliver(ctx context.Context, obs Observer, types []Type) {
	for _, t := range types {
		obs.ObserveType(ctx, t)
	}
}

// Recorder files managed types in a class registry and vetoes them from the
// container. Every other type becomes an ordinary component.
type Recorder struct {
	Classes   *classreg.Registry
	Container *container.Container
}

// ObserveType implements Observer.
func (r *Recorder) ObserveType(ctx context.Context, t Type) {
	logger := ctxlog.FromContext(ctx)
	for _, d := range t.Unknown {
		logger.Warn("Ignoring unknown persistence directive.", "type", t.Name, "directive", d, "pos", t.Pos.String())
	}

	if !t.Managed() {
		if len(t.Units) > 0 {
			logger.Warn("Unit directive on a type with no persistence role is ignored.", "type", t.Name, "units", t.Units)
		}
		r.Container.RegisterComponent(t.Name)
		return
	}

	r.Classes.Record(t.Name, t.Units...)
	r.Container.Veto(t.Name)
	logger.Debug("Observed managed type.", "type", t.Name, "kinds", t.Kinds, "units", t.Units)
}
