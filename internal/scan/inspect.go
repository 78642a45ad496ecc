// Package scan discovers persistence-managed Go types.
//
// A type is managed when its doc comment carries one of the directives
//
//	//persistence:entity
//	//persistence:embeddable
//	//persistence:mappedsuperclass
//	//persistence:converter
//
// and is filed under the units named by any number of
//
//	//persistence:unit <name>[,<name>...]
//
// directives. A managed type without a unit directive is unassigned. Every
// other exported named type is an ordinary component.
package scan

import (
	"go/ast"
	"go/token"
	"slices"
	"strings"
)

// DirectivePrefix starts every persistence directive comment.
const DirectivePrefix = "//persistence:"

// Kind is the persistence role a directive assigns to a type.
type Kind int

const (
	Entity Kind = iota + 1
	Embeddable
	MappedSuperclass
	Converter
)

var kindNames = map[string]Kind{
	"entity":           Entity,
	"embeddable":       Embeddable,
	"mappedsuperclass": MappedSuperclass,
	"converter":        Converter,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// Type is one exported named type found by a scan.
type Type struct {
	// Name is the fully-qualified type name, package path then type name.
	Name  string
	Kinds []Kind
	Units []string
	Pos   token.Position
	// Unknown holds directives that were not recognized.
	Unknown []string
}

// Managed reports whether the type carries a persistence role.
func (t Type) Managed() bool {
	return len(t.Kinds) > 0
}

// Inspect returns the exported named types declared in files, in source
// order. fset may be nil, in which case positions are left empty.
func Inspect(fset *token.FileSet, pkgPath string, files []*ast.File) []Type {
	var out []Type
	for _, file := range files {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				ts := spec.(*ast.TypeSpec)
				if !ts.Name.IsExported() {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(gen.Specs) == 1 {
					doc = gen.Doc
				}
				t := Type{Name: pkgPath + "." + ts.Name.Name}
				if fset != nil {
					t.Pos = fset.Position(ts.Pos())
				}
				applyDirectives(&t, doc)
				out = append(out, t)
			}
		}
	}
	return out
}

func applyDirectives(t *Type, doc *ast.CommentGroup) {
	if doc == nil {
		return
	}
	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, DirectivePrefix)
		if !ok {
			continue
		}
		verb, arg, _ := strings.Cut(strings.TrimSpace(rest), " ")
		verb = strings.ToLower(verb)

		if kind, ok := kindNames[verb]; ok {
			if !slices.Contains(t.Kinds, kind) {
				t.Kinds = append(t.Kinds, kind)
			}
			continue
		}
		if verb == "unit" {
			// Empty names leave the type unassigned.
			for _, name := range strings.Split(arg, ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				if !slices.Contains(t.Units, name) {
					t.Units = append(t.Units, name)
				}
			}
			continue
		}
		t.Unknown = append(t.Unknown, c.Text)
	}
}
