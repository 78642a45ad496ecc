package descriptor

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// yamlFile is the mapping form of a YAML descriptor. A descriptor may also be
// a bare sequence of units.
type yamlFile struct {
	Version string      `yaml:"version"`
	Units   []*yamlUnit `yaml:"units"`
}

type yamlUnit struct {
	Name                   *string           `yaml:"name"`
	TransactionType        *string           `yaml:"transaction-type"`
	Description            string            `yaml:"description"`
	Provider               *string           `yaml:"provider"`
	JTADataSource          *string           `yaml:"jta-data-source"`
	NonJTADataSource       *string           `yaml:"non-jta-data-source"`
	MappingFiles           []string          `yaml:"mapping-files"`
	JarFiles               []string          `yaml:"jar-files"`
	Classes                []string          `yaml:"classes"`
	ExcludeUnlistedClasses *bool             `yaml:"exclude-unlisted-classes"`
	SharedCacheMode        *string           `yaml:"shared-cache-mode"`
	ValidationMode         *string           `yaml:"validation-mode"`
	Properties             map[string]string `yaml:"properties"`
}

// YAMLUnmarshaller decodes persistence.yaml documents.
type YAMLUnmarshaller struct{}

// Unmarshal implements Unmarshaller.
func (YAMLUnmarshaller) Unmarshal(r io.Reader) (*Persistence, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, schemaErrorf("empty document")
		}
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	var file yamlFile
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&file.Units); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSchema, err)
		}
	case yaml.MappingNode:
		if err := node.Decode(&file); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSchema, err)
		}
	default:
		return nil, schemaErrorf("yaml descriptor must be a mapping or a sequence of units")
	}

	doc := &Persistence{Version: file.Version}
	for _, u := range file.Units {
		if u == nil {
			continue
		}
		doc.Units = append(doc.Units, u.translate())
	}
	return doc, nil
}

func (u *yamlUnit) translate() *PersistenceUnit {
	pu := &PersistenceUnit{
		Name:             u.Name,
		TransactionType:  u.TransactionType,
		Description:      u.Description,
		Provider:         u.Provider,
		JTADataSource:    u.JTADataSource,
		NonJTADataSource: u.NonJTADataSource,
		MappingFiles:     u.MappingFiles,
		JarFiles:         u.JarFiles,
		Classes:          u.Classes,
		SharedCacheMode:  u.SharedCacheMode,
		ValidationMode:   u.ValidationMode,
		Properties:       propertiesFromMap(u.Properties),
	}
	if u.ExcludeUnlistedClasses != nil {
		pu.ExcludeUnlistedClasses = ptr(strconv.FormatBool(*u.ExcludeUnlistedClasses))
	}
	return pu
}
