package descriptor

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Parse converts a decoded document into raw unit descriptors, one per
// declared unit and in document order. Relative jar-file references are
// resolved against root. A nil document yields no units.
func Parse(doc *Persistence, root *url.URL) ([]*RawUnit, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root location", ErrURLResolution)
	}
	if doc == nil || len(doc.Units) == 0 {
		return nil, nil
	}
	base := NormalizeRoot(root)

	units := make([]*RawUnit, 0, len(doc.Units))
	for i, pu := range doc.Units {
		if pu == nil {
			continue
		}
		unit, err := parseUnit(pu, base)
		if err != nil {
			name := "<unnamed>"
			if pu.Name != nil {
				name = *pu.Name
			}
			return nil, fmt.Errorf("persistence unit #%d (%s): %w", i, name, err)
		}
		unit.SchemaVersion = strings.TrimSpace(doc.Version)
		units = append(units, unit)
	}
	return units, nil
}

func parseUnit(pu *PersistenceUnit, base *url.URL) (*RawUnit, error) {
	unit := &RawUnit{
		Description:  strings.TrimSpace(pu.Description),
		Classes:      trimAll(pu.Classes),
		MappingFiles: trimAll(pu.MappingFiles),
		Properties:   make(map[string]string),
	}
	if pu.Name != nil {
		unit.Name = *pu.Name
	}
	if pu.Provider != nil {
		unit.Provider = strings.TrimSpace(*pu.Provider)
	}

	if pu.TransactionType != nil {
		tt, err := ParseTransactionType(*pu.TransactionType)
		if err != nil {
			return nil, err
		}
		unit.TransactionType = tt
	}
	if pu.SharedCacheMode != nil {
		mode, err := ParseSharedCacheMode(*pu.SharedCacheMode)
		if err != nil {
			return nil, err
		}
		unit.SharedCacheMode = mode
	}
	if pu.ValidationMode != nil {
		mode, err := ParseValidationMode(*pu.ValidationMode)
		if err != nil {
			return nil, err
		}
		unit.ValidationMode = mode
	}

	if pu.ExcludeUnlistedClasses != nil {
		text := strings.TrimSpace(*pu.ExcludeUnlistedClasses)
		exclude := true
		if text != "" {
			v, err := strconv.ParseBool(text)
			if err != nil {
				return nil, schemaErrorf("exclude-unlisted-classes %q is not a boolean", text)
			}
			exclude = v
		}
		unit.ExcludeUnlistedClasses = &exclude
	}

	unit.JTADataSource = dataSourceName(pu.JTADataSource)
	unit.NonJTADataSource = dataSourceName(pu.NonJTADataSource)

	if pu.Properties != nil {
		for _, p := range pu.Properties.Property {
			if p.Name == "" {
				return nil, schemaErrorf("property without a name")
			}
			unit.Properties[p.Name] = p.Value
		}
	}

	for _, ref := range pu.JarFiles {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		jar, err := ResolveJarFile(base, ref)
		if err != nil {
			return nil, err
		}
		unit.JarFileURLs = append(unit.JarFileURLs, jar)
	}
	return unit, nil
}

// ResolveJarFile resolves a jar-file reference against a unit root.
func ResolveJarFile(root *url.URL, ref string) (*url.URL, error) {
	rel, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: jar-file %q: %w", ErrURLResolution, ref, err)
	}
	jar := NormalizeRoot(root).ResolveReference(rel)
	if jar.Scheme == root.Scheme && jar.Host == "" && rel.Host == "" {
		jar.OmitHost = root.OmitHost
	}
	return jar, nil
}

// NormalizeRoot returns a copy of root treated as a directory with dot
// segments removed, e.g. file:/app/META-INF/.. becomes file:/app/.
func NormalizeRoot(root *url.URL) *url.URL {
	dir := *root
	if !strings.HasSuffix(dir.Path, "/") {
		dir.Path += "/"
		dir.RawPath = ""
	}
	normalized := dir.ResolveReference(&url.URL{Path: "./"})
	normalized.OmitHost = root.OmitHost
	return normalized
}

// RootFor returns the root location of the unit described by the resource at
// descriptorURL: the parent of the directory holding the descriptor.
func RootFor(descriptorURL *url.URL) *url.URL {
	root := descriptorURL.ResolveReference(&url.URL{Path: ".."})
	root.OmitHost = descriptorURL.OmitHost
	return root
}

// FileURL returns a file URL for an absolute filesystem path.
func FileURL(path string) *url.URL {
	return &url.URL{Scheme: "file", Path: path, OmitHost: true}
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dataSourceName treats a blank element the same as a missing one.
func dataSourceName(raw *string) sql.NullString {
	if raw == nil {
		return sql.NullString{}
	}
	name := strings.TrimSpace(*raw)
	return sql.NullString{String: name, Valid: name != ""}
}
