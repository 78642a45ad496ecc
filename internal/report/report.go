// Package report renders the outcome of a registration pass.
package report

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/tidwall/sjson"

	"github.com/vk/persistunits/internal/pipeline"
	"github.com/vk/persistunits/internal/unitinfo"
)

// Format names an output rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatDump Format = "dump"
)

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatDump:
		return f, nil
	}
	return "", fmt.Errorf("invalid format %q: must be 'text', 'json' or 'dump'", s)
}

// Row is the flattened view of one unit. Filter expressions are evaluated
// against it, so field names are part of the CLI surface.
type Row struct {
	Unit             string
	Root             string
	SchemaVersion    string
	Provider         string
	ProviderBound    bool
	TransactionType  string
	SharedCacheMode  string
	ValidationMode   string
	Exclude          bool
	Classes          []string
	MappingFiles     []string
	JarFiles         []string
	Properties       map[string]string
	JTADataSource    string
	NonJTADataSource string
}

// Report is the rendered-ready outcome of a pass.
type Report struct {
	Rows       []Row
	Resources  []string
	Components []string
	Unassigned []string
}

// FromResult flattens a pipeline result.
func FromResult(res *pipeline.Result, components []string) *Report {
	r := &Report{Components: slices.Clone(components)}
	for _, loc := range res.Resources {
		r.Resources = append(r.Resources, loc.Location().String())
	}
	if res.Classes != nil {
		for _, key := range res.Classes.Keys() {
			if _, named := key.Name(); !named {
				r.Unassigned = res.Classes.Classes(key)
			}
		}
	}
	for _, u := range res.Units {
		r.Rows = append(r.Rows, rowOf(u, slices.Contains(res.BoundProviders, u.ProviderClassName())))
	}
	return r
}

func rowOf(u *unitinfo.UnitInfo, bound bool) Row {
	jars := make([]string, 0, len(u.JarFileURLs()))
	for _, j := range u.JarFileURLs() {
		jars = append(jars, j.String())
	}
	return Row{
		Unit:             u.Name(),
		Root:             u.RootURL().String(),
		SchemaVersion:    u.SchemaVersion(),
		Provider:         u.ProviderClassName(),
		ProviderBound:    bound,
		TransactionType:  u.TransactionType().String(),
		SharedCacheMode:  u.SharedCacheMode().String(),
		ValidationMode:   u.ValidationMode().String(),
		Exclude:          u.ExcludeUnlistedClasses(),
		Classes:          u.ManagedClassNames(),
		MappingFiles:     u.MappingFileNames(),
		JarFiles:         jars,
		Properties:       u.Properties(),
		JTADataSource:    u.JTADataSourceName().String,
		NonJTADataSource: u.NonJTADataSourceName().String,
	}
}

// Write renders r to w in format f.
func Write(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		out, err := JSON(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatDump:
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
		cfg.Fdump(w, r)
		return nil
	}
	return fmt.Errorf("unsupported format %q", f)
}

func writeText(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNIT\tPROVIDER\tTX\tCLASSES\tROOT")
	for _, row := range r.Rows {
		name := row.Unit
		if name == "" {
			name = "<unnamed>"
		}
		provider := row.Provider
		if provider == "" {
			provider = "-"
		} else if row.ProviderBound {
			provider += " (lazy)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", name, provider, row.TransactionType, len(row.Classes), row.Root)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.Unassigned) > 0 {
		fmt.Fprintf(w, "\nunassigned: %s\n", strings.Join(r.Unassigned, ", "))
	}
	_, err := fmt.Fprintf(w, "\n%d unit(s) from %d descriptor(s), %d component(s)\n", len(r.Rows), len(r.Resources), len(r.Components))
	return err
}

// JSON renders r as a JSON document.
func JSON(r *Report) ([]byte, error) {
	doc := []byte(`{"units":[]}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, v)
		}
	}

	set("resources", nonNil(r.Resources))
	set("components", nonNil(r.Components))
	set("unassigned", nonNil(r.Unassigned))
	for i, row := range r.Rows {
		p := fmt.Sprintf("units.%d.", i)
		set(p+"name", row.Unit)
		set(p+"root", row.Root)
		set(p+"schema_version", row.SchemaVersion)
		set(p+"provider", row.Provider)
		set(p+"provider_bound", row.ProviderBound)
		set(p+"transaction_type", row.TransactionType)
		set(p+"shared_cache_mode", row.SharedCacheMode)
		set(p+"validation_mode", row.ValidationMode)
		set(p+"exclude_unlisted_classes", row.Exclude)
		set(p+"classes", nonNil(row.Classes))
		set(p+"mapping_files", nonNil(row.MappingFiles))
		set(p+"jar_files", nonNil(row.JarFiles))
		set(p+"jta_data_source", row.JTADataSource)
		set(p+"non_jta_data_source", row.NonJTADataSource)
		set(p+"properties", map[string]any{})
		keys := make([]string, 0, len(row.Properties))
		for k := range row.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			set(p+"properties."+escapePath(k), row.Properties[k])
		}
	}
	if err != nil {
		return nil, fmt.Errorf("rendering json report: %w", err)
	}
	return doc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// escapePath escapes the characters sjson treats as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
