package scan

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/persistunits/internal/classreg"
	"github.com/vk/persistunits/internal/container"
)

const shopSource = `package shop

// Order is a placed order.
//
//persistence:entity
//persistence:unit orders
type Order struct{}

//persistence:embeddable
//persistence:unit orders, audit
//persistence:unit audit
type Money struct{}

//persistence:converter
type CentsConverter struct{}

// Two specs in one declaration take their own docs.
type (
	//persistence:mappedsuperclass
	Base struct{}

	Service struct{}
)

//persistence:entity
type hidden struct{}

//persistence:unit orders
//persistence:cacheable
type Tagged struct{}

//persistence:entity
//persistence:unit
type Blank struct{}

//persistence:entity
//persistence:unit billing,, audit ,
type Sparse struct{}
`

func parseShop(t *testing.T) (*token.FileSet, []*ast.File) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "shop.go", shopSource, parser.ParseComments)
	require.NoError(t, err)
	return fset, []*ast.File{f}
}

func TestInspect(t *testing.T) {
	fset, files := parseShop(t)
	types := Inspect(fset, "example.com/shop", files)

	byName := make(map[string]Type)
	var names []string
	for _, ty := range types {
		byName[ty.Name] = ty
		names = append(names, ty.Name)
	}
	assert.Equal(t, []string{
		"example.com/shop.Order",
		"example.com/shop.Money",
		"example.com/shop.CentsConverter",
		"example.com/shop.Base",
		"example.com/shop.Service",
		"example.com/shop.Tagged",
		"example.com/shop.Blank",
		"example.com/shop.Sparse",
	}, names)

	order := byName["example.com/shop.Order"]
	assert.Equal(t, []Kind{Entity}, order.Kinds)
	assert.Equal(t, []string{"orders"}, order.Units)
	assert.Equal(t, 7, order.Pos.Line)

	money := byName["example.com/shop.Money"]
	assert.Equal(t, []Kind{Embeddable}, money.Kinds)
	assert.Equal(t, []string{"orders", "audit"}, money.Units)

	assert.True(t, byName["example.com/shop.CentsConverter"].Managed())
	assert.Empty(t, byName["example.com/shop.CentsConverter"].Units)
	assert.Equal(t, []Kind{MappedSuperclass}, byName["example.com/shop.Base"].Kinds)
	assert.False(t, byName["example.com/shop.Service"].Managed())

	tagged := byName["example.com/shop.Tagged"]
	assert.False(t, tagged.Managed())
	assert.Equal(t, []string{"//persistence:cacheable"}, tagged.Unknown)

	assert.Empty(t, byName["example.com/shop.Blank"].Units, "a bare unit directive names no unit")
	assert.Equal(t, []string{"billing", "audit"}, byName["example.com/shop.Sparse"].Units)
}

func TestRecorder(t *testing.T) {
	fset, files := parseShop(t)
	classes := classreg.New()
	c := container.New()

	Deliver(context.Background(), &Recorder{Classes: classes, Container: c}, Inspect(fset, "example.com/shop", files))
	classes.Seal()

	assert.Equal(t, []string{"example.com/shop.Money", "example.com/shop.Order"}, classes.Classes(classreg.Named("orders")))
	assert.Equal(t, []string{"example.com/shop.Money", "example.com/shop.Sparse"}, classes.Classes(classreg.Named("audit")))
	assert.Equal(t, []string{"example.com/shop.Sparse"}, classes.Classes(classreg.Named("billing")))
	assert.Equal(t, []string{"example.com/shop.Base", "example.com/shop.Blank", "example.com/shop.CentsConverter"}, classes.Classes(classreg.Unassigned()))
	assert.Empty(t, classes.Classes(classreg.Named("")))

	assert.True(t, c.Vetoed("example.com/shop.Order"))
	assert.Equal(t, []string{"example.com/shop.Service", "example.com/shop.Tagged"}, c.Components())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "mappedsuperclass", MappedSuperclass.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestScanner_LoadsModule(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}

	dir := t.TempDir()
	write := func(name, content string) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("go.mod", "module example.com/shop\n\ngo 1.21\n")
	write("shop.go", shopSource)
	write("billing/billing.go", "package billing\n\n//persistence:entity\n//persistence:unit billing\ntype Invoice struct{}\n")

	s := &Scanner{Dir: dir}
	types, err := s.Scan(context.Background(), "./...")
	require.NoError(t, err)

	var managed []string
	for _, ty := range types {
		if ty.Managed() {
			managed = append(managed, ty.Name)
		}
	}
	assert.ElementsMatch(t, []string{
		"example.com/shop.Order",
		"example.com/shop.Money",
		"example.com/shop.CentsConverter",
		"example.com/shop.Base",
		"example.com/shop.Blank",
		"example.com/shop.Sparse",
		"example.com/shop/billing.Invoice",
	}, managed)
}

func TestScanner_PackageErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/broken\n\ngo 1.21\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package broken\n\ntype X struct {\n"), 0o644))

	_, err := (&Scanner{Dir: dir}).Scan(context.Background(), "./...")
	require.Error(t, err)
}
