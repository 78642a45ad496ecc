// Package classload models the class-loading context that persistence units
// carry: a catalog of named constructors and loaders that resolve type names
// against it.
package classload

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
)

// ErrClassNotFound is returned when a loader cannot resolve a type name.
var ErrClassNotFound = errors.New("class not found")

// Constructor creates a new zero-configured instance of a type, the
// equivalent of a default constructor.
type Constructor func() any

// Catalog holds every constructible type known to the process, keyed by its
// fully-qualified name.
type Catalog struct {
	all map[string]Constructor
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{all: make(map[string]Constructor)}
}

// Register adds a constructor for the given type name.
func (c *Catalog) Register(name string, ctor Constructor) {
	if _, exists := c.all[name]; exists {
		panic(fmt.Sprintf("class with name '%s' already registered", name))
	}
	if ctor == nil {
		panic(fmt.Sprintf("class '%s' registered with a nil constructor", name))
	}
	slog.Debug("Registering class.", "name", name)
	c.all[name] = ctor
}

// Lookup returns the constructor registered for name.
func (c *Catalog) Lookup(name string) (Constructor, bool) {
	ctor, ok := c.all[name]
	return ctor, ok
}

// Names returns all registered type names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.all))
	for name := range c.all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NameOf returns the fully-qualified type name of v, dereferencing pointers.
// It returns "" for unnamed types.
func NameOf(v any) string {
	if v == nil {
		return ""
	}
	return nameOfType(reflect.TypeOf(v))
}

// NameFor returns the fully-qualified name of T.
func NameFor[T any]() string {
	return nameOfType(reflect.TypeFor[T]())
}

func nameOfType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
