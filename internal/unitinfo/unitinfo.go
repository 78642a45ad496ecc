package unitinfo

import (
	"database/sql"
	"fmt"
	"maps"
	"net/url"
	"slices"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/datasource"
)

// DefaultSchemaVersion is used when a descriptor does not declare one.
const DefaultSchemaVersion = "2.2"

// Transformer rewrites the definition of a managed type when it is loaded.
type Transformer func(className string, definition []byte) ([]byte, error)

// UnitInfo is the finalized, immutable configuration of one persistence
// unit. Every list and map it returns is a copy.
type UnitInfo struct {
	name              string
	description       string
	rootURL           *url.URL
	schemaVersion     string
	providerClassName string

	classLoader         classload.Loader
	tempLoaderSupplier  func() classload.Loader
	transformerConsumer func(Transformer)

	excludeUnlistedClasses bool
	jarFileURLs            []*url.URL
	managedClassNames      []string
	mappingFileNames       []string
	properties             map[string]string

	jtaDataSourceName    sql.NullString
	nonJTADataSourceName sql.NullString
	resolver             datasource.Resolver

	sharedCacheMode SharedCacheMode
	transactionType TransactionType
	validationMode  ValidationMode
}

// Name returns the persistence unit name; "" for an unnamed unit.
func (u *UnitInfo) Name() string { return u.name }

// Description returns the unit's free-text description.
func (u *UnitInfo) Description() string { return u.description }

// RootURL returns a copy of the unit's root location.
func (u *UnitInfo) RootURL() *url.URL {
	root := *u.rootURL
	return &root
}

// SchemaVersion returns the descriptor schema version.
func (u *UnitInfo) SchemaVersion() string { return u.schemaVersion }

// ProviderClassName returns the provider named by the unit, or "".
func (u *UnitInfo) ProviderClassName() string { return u.providerClassName }

// ClassLoader returns the loader the unit's types are resolved through. It
// may be nil.
func (u *UnitInfo) ClassLoader() classload.Loader { return u.classLoader }

// NewTempClassLoader returns a loader for throwaway inspection of the unit's
// types. It is recomputed on every call, so callers may observe a fresh
// loader each time.
func (u *UnitInfo) NewTempClassLoader() classload.Loader {
	var l classload.Loader
	if u.tempLoaderSupplier != nil {
		l = u.tempLoaderSupplier()
	}
	if l == nil {
		l = u.classLoader
	}
	return l
}

// AddTransformer hands t to the unit's transformer consumer, if it has one.
func (u *UnitInfo) AddTransformer(t Transformer) {
	if u.transformerConsumer != nil && t != nil {
		u.transformerConsumer(t)
	}
}

// ExcludeUnlistedClasses reports whether only the listed types belong to the unit.
func (u *UnitInfo) ExcludeUnlistedClasses() bool { return u.excludeUnlistedClasses }

// JarFileURLs returns copies of the unit's resolved jar-file locations.
func (u *UnitInfo) JarFileURLs() []*url.URL {
	out := make([]*url.URL, len(u.jarFileURLs))
	for i, jar := range u.jarFileURLs {
		c := *jar
		out[i] = &c
	}
	return out
}

// ManagedClassNames returns the unit's managed type names.
func (u *UnitInfo) ManagedClassNames() []string { return slices.Clone(u.managedClassNames) }

// MappingFileNames returns the unit's mapping-file references.
func (u *UnitInfo) MappingFileNames() []string { return slices.Clone(u.mappingFileNames) }

// Properties returns a copy of the unit's property bag.
func (u *UnitInfo) Properties() map[string]string { return maps.Clone(u.properties) }

// Property returns a single property value.
func (u *UnitInfo) Property(name string) (string, bool) {
	v, ok := u.properties[name]
	return v, ok
}

// SharedCacheMode returns the unit's cache policy.
func (u *UnitInfo) SharedCacheMode() SharedCacheMode { return u.sharedCacheMode }

// TransactionType returns the unit's transaction model.
func (u *UnitInfo) TransactionType() TransactionType { return u.transactionType }

// ValidationMode returns the unit's validation policy.
func (u *UnitInfo) ValidationMode() ValidationMode { return u.validationMode }

// JTADataSourceName returns the symbolic JTA data-source name.
func (u *UnitInfo) JTADataSourceName() sql.NullString { return u.jtaDataSourceName }

// NonJTADataSourceName returns the symbolic non-JTA data-source name.
func (u *UnitInfo) NonJTADataSourceName() sql.NullString { return u.nonJTADataSourceName }

// JTADataSource resolves the unit's JTA data source. The resolver is
// consulted on every call; results are never cached.
func (u *UnitInfo) JTADataSource() datasource.DataSource {
	return datasource.Resolve(u.resolver, true, !u.nonJTADataSourceName.Valid, u.jtaDataSourceName)
}

// NonJTADataSource resolves the unit's non-JTA data source on every call.
func (u *UnitInfo) NonJTADataSource() datasource.DataSource {
	return datasource.Resolve(u.resolver, false, false, u.nonJTADataSourceName)
}

func (u *UnitInfo) String() string {
	return fmt.Sprintf("UnitInfo{name=%q, root=%s, provider=%q, classes=%d}", u.name, u.rootURL, u.providerClassName, len(u.managedClassNames))
}
