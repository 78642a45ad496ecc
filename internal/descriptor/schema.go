package descriptor

import (
	"encoding/xml"
	"sort"
)

// Persistence is the root of the format-agnostic document tree. Its field
// tags describe the XML descriptor; other formats translate into it.
type Persistence struct {
	XMLName xml.Name           `xml:"persistence"`
	Version string             `xml:"version,attr"`
	Units   []*PersistenceUnit `xml:"persistence-unit"`
}

// PersistenceUnit is one declared unit inside a descriptor document. Optional
// scalar elements are pointers so that absence survives decoding.
type PersistenceUnit struct {
	Name             *string  `xml:"name,attr"`
	TransactionType  *string  `xml:"transaction-type,attr"`
	Description      string   `xml:"description"`
	Provider         *string  `xml:"provider"`
	JTADataSource    *string  `xml:"jta-data-source"`
	NonJTADataSource *string  `xml:"non-jta-data-source"`
	MappingFiles     []string `xml:"mapping-file"`
	JarFiles         []string `xml:"jar-file"`
	Classes          []string `xml:"class"`
	// ExcludeUnlistedClasses keeps the raw element text; an empty element
	// means true.
	ExcludeUnlistedClasses *string     `xml:"exclude-unlisted-classes"`
	SharedCacheMode        *string     `xml:"shared-cache-mode"`
	ValidationMode         *string     `xml:"validation-mode"`
	Properties             *Properties `xml:"properties"`
}

// Properties is the container element for unit properties.
type Properties struct {
	Property []Property `xml:"property"`
}

// Property is a single name/value pair.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func ptr[T any](v T) *T {
	return &v
}

// propertiesFromMap converts a property map into the document form, ordered
// by name so decoding is deterministic.
func propertiesFromMap(m map[string]string) *Properties {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	props := &Properties{Property: make([]Property, 0, len(names))}
	for _, name := range names {
		props.Property = append(props.Property, Property{Name: name, Value: m[name]})
	}
	return props
}
