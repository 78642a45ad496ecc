package descriptor

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/vk/persistunits/internal/ctxlog"
)

// Unmarshaller decodes the bytes of one descriptor resource into the
// format-agnostic document tree.
type Unmarshaller interface {
	Unmarshal(r io.Reader) (*Persistence, error)
}

// Format names a descriptor encoding.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
	FormatJSON Format = "json"
)

// FormatOf infers the format of a descriptor from its location's extension.
func FormatOf(location *url.URL) (Format, bool) {
	switch strings.ToLower(path.Ext(location.Path)) {
	case ".xml":
		return FormatXML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".hcl":
		return FormatHCL, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// UnmarshallerFor returns the decoder for a format.
func UnmarshallerFor(f Format) (Unmarshaller, error) {
	switch f {
	case FormatXML:
		return XMLUnmarshaller{}, nil
	case FormatYAML:
		return YAMLUnmarshaller{}, nil
	case FormatHCL:
		return HCLUnmarshaller{}, nil
	case FormatJSON:
		return JSONUnmarshaller{}, nil
	}
	return nil, fmt.Errorf("%w: unsupported descriptor format %q", ErrResource, f)
}

// Load reads one resource: open, decode, close. There is no retry; a read
// failure aborts processing of the resource.
func Load(ctx context.Context, res Resource) (*Persistence, error) {
	logger := ctxlog.FromContext(ctx)
	location := res.Location()

	format, ok := FormatOf(location)
	if !ok {
		return nil, fmt.Errorf("%w: cannot infer descriptor format of %s", ErrResource, location)
	}
	u, err := UnmarshallerFor(format)
	if err != nil {
		return nil, err
	}

	rc, err := res.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrResource, location, err)
	}
	defer rc.Close()

	logger.Debug("Decoding descriptor.", "location", location.String(), "format", format)
	doc, err := u.Unmarshal(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", location, err)
	}
	return doc, nil
}

// XMLUnmarshaller decodes persistence.xml documents.
type XMLUnmarshaller struct{}

// Unmarshal implements Unmarshaller.
func (XMLUnmarshaller) Unmarshal(r io.Reader) (*Persistence, error) {
	var doc Persistence
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, schemaErrorf("empty document")
		}
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return &doc, nil
}
