package descriptor

import (
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// JSONUnmarshaller decodes persistence.json documents. The accepted shape
// matches the YAML form: either {"version": ..., "units": [...]} or a bare
// array of units.
type JSONUnmarshaller struct{}

// Unmarshal implements Unmarshaller.
func (JSONUnmarshaller) Unmarshal(r io.Reader) (*Persistence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResource, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, schemaErrorf("invalid json document")
	}
	root := gjson.ParseBytes(data)

	doc := &Persistence{}
	var units gjson.Result
	switch {
	case root.IsArray():
		units = root
	case root.IsObject():
		doc.Version = root.Get("version").String()
		units = root.Get("units")
		if units.Exists() && !units.IsArray() {
			return nil, schemaErrorf("\"units\" must be an array")
		}
	default:
		return nil, schemaErrorf("json descriptor must be an object or an array of units")
	}

	var decodeErr error
	units.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Null {
			return true
		}
		if !value.IsObject() {
			decodeErr = schemaErrorf("unit #%d is not an object", key.Int())
			return false
		}
		pu, err := jsonUnit(value)
		if err != nil {
			decodeErr = fmt.Errorf("unit #%d: %w", key.Int(), err)
			return false
		}
		doc.Units = append(doc.Units, pu)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return doc, nil
}

func jsonUnit(u gjson.Result) (*PersistenceUnit, error) {
	pu := &PersistenceUnit{
		Name:             jsonOptional(u, "name"),
		TransactionType:  jsonOptional(u, "transaction-type"),
		Description:      u.Get("description").String(),
		Provider:         jsonOptional(u, "provider"),
		JTADataSource:    jsonOptional(u, "jta-data-source"),
		NonJTADataSource: jsonOptional(u, "non-jta-data-source"),
		SharedCacheMode:  jsonOptional(u, "shared-cache-mode"),
		ValidationMode:   jsonOptional(u, "validation-mode"),
	}

	var err error
	if pu.Classes, err = jsonStrings(u, "classes"); err != nil {
		return nil, err
	}
	if pu.JarFiles, err = jsonStrings(u, "jar-files"); err != nil {
		return nil, err
	}
	if pu.MappingFiles, err = jsonStrings(u, "mapping-files"); err != nil {
		return nil, err
	}

	if ex := u.Get("exclude-unlisted-classes"); ex.Exists() && ex.Type != gjson.Null {
		switch ex.Type {
		case gjson.True, gjson.False, gjson.String:
			pu.ExcludeUnlistedClasses = ptr(ex.String())
		default:
			return nil, schemaErrorf("exclude-unlisted-classes must be a boolean")
		}
	}

	if props := u.Get("properties"); props.Exists() && props.Type != gjson.Null {
		if !props.IsObject() {
			return nil, schemaErrorf("properties must be an object")
		}
		m := make(map[string]string)
		props.ForEach(func(k, v gjson.Result) bool {
			m[k.String()] = v.String()
			return true
		})
		pu.Properties = propertiesFromMap(m)
	}
	return pu, nil
}

func jsonOptional(u gjson.Result, path string) *string {
	v := u.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	return ptr(v.String())
}

func jsonStrings(u gjson.Result, path string) ([]string, error) {
	v := u.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, schemaErrorf("%s must be an array of strings", path)
	}
	var out []string
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out, nil
}
