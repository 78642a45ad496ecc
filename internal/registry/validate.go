package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/persistunits/internal/ctxlog"
)

// PropertyTag is the struct tag naming the unit property a config field reads.
const PropertyTag = "persist"

// Unit is the part of a persistence unit property validation reads.
type Unit interface {
	Name() string
	ProviderClassName() string
	Properties() map[string]string
}

// ValidateUnit checks that every unit property read by the unit's provider
// converts to the type of the config field that reads it. Units without a
// provider, or whose provider registered no config, always pass.
func (r *Registry) ValidateUnit(ctx context.Context, unit Unit) error {
	logger := ctxlog.FromContext(ctx)

	t, ok := r.configTypes[unit.ProviderClassName()]
	if !ok {
		return nil
	}

	var errs []string
	props := unit.Properties()
	for key, field := range propertyFields(t) {
		raw, ok := props[key]
		if !ok {
			continue
		}
		want, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface())
		if err != nil {
			errs = append(errs, fmt.Sprintf("property '%s': could not imply cty type from Go field type %s: %v", key, field.Type, err))
			continue
		}
		if want.Equals(cty.DynamicPseudoType) {
			logger.Warn("Provider config field accepts any type; property is not checked.", "unit", unit.Name(), "property", key)
			continue
		}
		if _, err := convert.Convert(cty.StringVal(raw), want); err != nil {
			errs = append(errs, fmt.Sprintf("property '%s': value %q is not a valid %s", key, raw, want.FriendlyName()))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("unit '%s': provider %s rejects properties:\n- %s", unit.Name(), unit.ProviderClassName(), strings.Join(errs, "\n- "))
	}
	return nil
}

// DecodeProperties fills the tagged fields of the struct target points to
// from props. Properties without a matching field are ignored; fields
// without a matching property keep their value.
func DecodeProperties(props map[string]string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a pointer to a struct, got %T", target)
	}
	elem := rv.Elem()

	for key, field := range propertyFields(elem.Type()) {
		raw, ok := props[key]
		if !ok {
			continue
		}
		want, err := gocty.ImpliedType(reflect.Zero(field.Type).Interface())
		if err != nil {
			return fmt.Errorf("property '%s': %w", key, err)
		}
		val, err := convert.Convert(cty.StringVal(raw), want)
		if err != nil {
			return fmt.Errorf("property '%s': value %q is not a valid %s", key, raw, want.FriendlyName())
		}
		if err := gocty.FromCtyValue(val, elem.FieldByIndex(field.Index).Addr().Interface()); err != nil {
			return fmt.Errorf("property '%s': %w", key, err)
		}
	}
	return nil
}

func propertyFields(t reflect.Type) map[string]reflect.StructField {
	fields := make(map[string]reflect.StructField)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get(PropertyTag)
		name := strings.Split(tag, ",")[0]
		if name != "" && name != "-" {
			fields[name] = field
		}
	}
	return fields
}
