package descriptor

import (
	"fmt"
	"io"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// hclFile is used to decode all top-level content of an HCL descriptor.
type hclFile struct {
	Version *string    `hcl:"version,optional"`
	Units   []*hclUnit `hcl:"persistence_unit,block"`
}

// hclUnit represents a `persistence_unit` block.
type hclUnit struct {
	Name                   string         `hcl:"name,label"`
	TransactionType        *string        `hcl:"transaction_type,optional"`
	Description            *string        `hcl:"description,optional"`
	Provider               *string        `hcl:"provider,optional"`
	JTADataSource          *string        `hcl:"jta_data_source,optional"`
	NonJTADataSource       *string        `hcl:"non_jta_data_source,optional"`
	MappingFiles           []string       `hcl:"mapping_files,optional"`
	JarFiles               []string       `hcl:"jar_files,optional"`
	Classes                []string       `hcl:"classes,optional"`
	ExcludeUnlistedClasses *bool          `hcl:"exclude_unlisted_classes,optional"`
	SharedCacheMode        *string        `hcl:"shared_cache_mode,optional"`
	ValidationMode         *string        `hcl:"validation_mode,optional"`
	Properties             hcl.Expression `hcl:"properties,optional"`
}

// HCLUnmarshaller decodes persistence.hcl documents.
type HCLUnmarshaller struct{}

// Unmarshal implements Unmarshaller.
func (HCLUnmarshaller) Unmarshal(r io.Reader) (*Persistence, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResource, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, "persistence.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL: %w", ErrSchema, diags)
	}

	var root hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode HCL: %w", ErrSchema, diags)
	}

	doc := &Persistence{}
	if root.Version != nil {
		doc.Version = *root.Version
	}
	for _, u := range root.Units {
		pu, err := u.translate()
		if err != nil {
			return nil, fmt.Errorf("persistence_unit %q: %w", u.Name, err)
		}
		doc.Units = append(doc.Units, pu)
	}
	return doc, nil
}

func (u *hclUnit) translate() (*PersistenceUnit, error) {
	pu := &PersistenceUnit{
		Name:             ptr(u.Name),
		TransactionType:  u.TransactionType,
		Provider:         u.Provider,
		JTADataSource:    u.JTADataSource,
		NonJTADataSource: u.NonJTADataSource,
		MappingFiles:     u.MappingFiles,
		JarFiles:         u.JarFiles,
		Classes:          u.Classes,
		SharedCacheMode:  u.SharedCacheMode,
		ValidationMode:   u.ValidationMode,
	}
	if u.Description != nil {
		pu.Description = *u.Description
	}
	if u.ExcludeUnlistedClasses != nil {
		pu.ExcludeUnlistedClasses = ptr(strconv.FormatBool(*u.ExcludeUnlistedClasses))
	}

	props, err := hclProperties(u.Properties)
	if err != nil {
		return nil, err
	}
	pu.Properties = propertiesFromMap(props)
	return pu, nil
}

// hclProperties evaluates the `properties` attribute. Any primitive value is
// accepted and converted to its string form.
func hclProperties(expr hcl.Expression) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: properties: %w", ErrSchema, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, schemaErrorf("properties must be an object, got %s", ty.FriendlyName())
	}

	out := make(map[string]string)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		name := k.AsString()
		if v.IsNull() {
			out[name] = ""
			continue
		}
		str, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, schemaErrorf("property %q: %s", name, err)
		}
		out[name] = str.AsString()
	}
	return out, nil
}
