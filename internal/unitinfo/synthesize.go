package unitinfo

import (
	"fmt"
	"maps"
	"net/url"
	"slices"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/classreg"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/descriptor"
)

// Option customizes synthesis.
type Option func(*options)

type options struct {
	classLoader         classload.Loader
	tempLoaderSupplier  func() classload.Loader
	transformerConsumer func(Transformer)
}

// WithClassLoader sets the loader bound to the unit.
func WithClassLoader(l classload.Loader) Option {
	return func(o *options) { o.classLoader = l }
}

// WithTempClassLoader sets the supplier behind NewTempClassLoader. Without
// it, units clone a SearchPathLoader's search path on each call, or reuse
// the bound loader otherwise.
func WithTempClassLoader(supplier func() classload.Loader) Option {
	return func(o *options) { o.tempLoaderSupplier = supplier }
}

// WithTransformerConsumer sets the consumer that receives AddTransformer calls.
func WithTransformerConsumer(consumer func(Transformer)) Option {
	return func(o *options) { o.transformerConsumer = consumer }
}

// Synthesize merges raw with the scanned types in registry and finalizes it.
//
// Only when raw explicitly excludes unlisted classes are the listed types
// kept alone. Otherwise, including when the descriptor is silent, the unit
// also receives the types filed under its own name and, for a named unit,
// the unassigned types. A silent descriptor still reports
// ExcludeUnlistedClasses as true. The merged list has set semantics: listed
// types keep their order, merged types follow in name order.
func Synthesize(raw *descriptor.RawUnit, registry *classreg.Registry, root *url.URL, resolver datasource.Resolver, opts ...Option) (*UnitInfo, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil raw unit", ErrConfiguration)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: unit %q has no root location", ErrConfiguration, raw.Name)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: unit %q has no data-source resolver", ErrConfiguration, raw.Name)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	transactionType, err := mapTransactionType(raw.TransactionType)
	if err != nil {
		return nil, fmt.Errorf("unit %q: %w", raw.Name, err)
	}
	cacheMode, err := mapSharedCacheMode(raw.SharedCacheMode)
	if err != nil {
		return nil, fmt.Errorf("unit %q: %w", raw.Name, err)
	}
	validationMode, err := mapValidationMode(raw.ValidationMode)
	if err != nil {
		return nil, fmt.Errorf("unit %q: %w", raw.Name, err)
	}

	exclude := true
	if raw.ExcludeUnlistedClasses != nil {
		exclude = *raw.ExcludeUnlistedClasses
	}
	merge := raw.ExcludeUnlistedClasses == nil || !*raw.ExcludeUnlistedClasses

	classes := newClassSet(raw.Classes)
	if merge && registry != nil {
		classes.addAll(registry.Classes(classreg.Named(raw.Name)))
		if raw.Name != "" {
			classes.addAll(registry.Classes(classreg.Unassigned()))
		}
	}

	schemaVersion := raw.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = DefaultSchemaVersion
	}

	tempLoaderSupplier := o.tempLoaderSupplier
	if tempLoaderSupplier == nil {
		tempLoaderSupplier = defaultTempLoaderSupplier(o.classLoader)
	}

	rootCopy := *root
	jars := make([]*url.URL, 0, len(raw.JarFileURLs))
	for _, jar := range raw.JarFileURLs {
		if jar == nil {
			continue
		}
		c := *jar
		jars = append(jars, &c)
	}

	props := maps.Clone(raw.Properties)
	if props == nil {
		props = make(map[string]string)
	}

	return &UnitInfo{
		name:                   raw.Name,
		description:            raw.Description,
		rootURL:                &rootCopy,
		schemaVersion:          schemaVersion,
		providerClassName:      raw.Provider,
		classLoader:            o.classLoader,
		tempLoaderSupplier:     tempLoaderSupplier,
		transformerConsumer:    o.transformerConsumer,
		excludeUnlistedClasses: exclude,
		jarFileURLs:            jars,
		managedClassNames:      classes.list(),
		mappingFileNames:       slices.Clone(raw.MappingFiles),
		properties:             props,
		jtaDataSourceName:      raw.JTADataSource,
		nonJTADataSourceName:   raw.NonJTADataSource,
		resolver:               resolver,
		sharedCacheMode:        cacheMode,
		transactionType:        transactionType,
		validationMode:         validationMode,
	}, nil
}

// New builds a unit from a name, root and explicit type list, with every
// other setting at its default. The unit excludes unlisted classes exactly
// when classes is non-empty.
func New(name string, root *url.URL, classes []string, resolver datasource.Resolver, props map[string]string, opts ...Option) (*UnitInfo, error) {
	exclude := len(classes) > 0
	raw := &descriptor.RawUnit{
		Name:                   name,
		Classes:                classes,
		Properties:             props,
		ExcludeUnlistedClasses: &exclude,
	}
	return Synthesize(raw, nil, root, resolver, opts...)
}

// defaultTempLoaderSupplier clones the search path of l when it exposes one
// and otherwise hands back l itself.
func defaultTempLoaderSupplier(l classload.Loader) func() classload.Loader {
	if sp, ok := l.(classload.SearchPathLoader); ok {
		return sp.Clone
	}
	return func() classload.Loader { return l }
}

type classSet struct {
	order []string
	seen  map[string]struct{}
}

func newClassSet(initial []string) *classSet {
	s := &classSet{seen: make(map[string]struct{}, len(initial))}
	for _, name := range initial {
		s.add(name)
	}
	return s
}

func (s *classSet) add(name string) {
	if name == "" {
		return
	}
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.order = append(s.order, name)
}

func (s *classSet) addAll(names []string) {
	for _, name := range names {
		s.add(name)
	}
}

func (s *classSet) list() []string {
	return slices.Clone(s.order)
}
