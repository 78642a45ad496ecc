package classload

import (
	"fmt"
	"slices"
	"strings"
)

// Loader resolves a fully-qualified type name to a constructor.
type Loader interface {
	LoadClass(name string) (Constructor, error)
}

// SearchPathLoader is a Loader that exposes the package paths it searches.
// Loaders of this kind can be cloned into a fresh, independent loader.
type SearchPathLoader interface {
	Loader
	SearchPath() []string
	Clone() Loader
}

// CatalogLoader resolves every name registered in its catalog.
type CatalogLoader struct {
	catalog *Catalog
}

// NewCatalogLoader creates a loader over the whole catalog.
func NewCatalogLoader(c *Catalog) *CatalogLoader {
	return &CatalogLoader{catalog: c}
}

// LoadClass implements Loader.
func (l *CatalogLoader) LoadClass(name string) (Constructor, error) {
	ctor, ok := l.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return ctor, nil
}

// PathLoader resolves only names whose package lies under one of its search
// path entries. An empty search path admits every name in the catalog.
type PathLoader struct {
	catalog *Catalog
	path    []string
}

// NewPathLoader creates a loader restricted to the given package paths.
func NewPathLoader(c *Catalog, path ...string) *PathLoader {
	return &PathLoader{catalog: c, path: slices.Clone(path)}
}

// LoadClass implements Loader.
func (l *PathLoader) LoadClass(name string) (Constructor, error) {
	if !l.visible(name) {
		return nil, fmt.Errorf("%w: %s is outside search path %v", ErrClassNotFound, name, l.path)
	}
	ctor, ok := l.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return ctor, nil
}

// SearchPath returns a copy of the loader's search path.
func (l *PathLoader) SearchPath() []string {
	return slices.Clone(l.path)
}

// Clone returns a new loader with the same catalog and a copied search path.
func (l *PathLoader) Clone() Loader {
	return NewPathLoader(l.catalog, l.path...)
}

func (l *PathLoader) visible(name string) bool {
	if len(l.path) == 0 {
		return true
	}
	pkg := packageOf(name)
	for _, p := range l.path {
		if pkg == p || strings.HasPrefix(pkg, p+"/") {
			return true
		}
	}
	return false
}

// packageOf returns the package path part of a fully-qualified type name.
func packageOf(name string) string {
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= slash {
		return name
	}
	return name[:dot]
}

// Instantiate loads name through l and calls its constructor.
func Instantiate(l Loader, name string) (any, error) {
	ctor, err := l.LoadClass(name)
	if err != nil {
		return nil, err
	}
	v := ctor()
	if v == nil {
		return nil, fmt.Errorf("constructor for %s returned nil", name)
	}
	return v, nil
}
