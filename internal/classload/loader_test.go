package classload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{}

func TestNameOf(t *testing.T) {
	const want = "github.com/vk/persistunits/internal/classload.widget"
	assert.Equal(t, want, NameOf(widget{}))
	assert.Equal(t, want, NameOf(&widget{}))
	assert.Equal(t, want, NameFor[*widget]())
	assert.Equal(t, "int", NameOf(1))
	assert.Equal(t, "", NameOf(nil))
	assert.Equal(t, "", NameOf(struct{}{}))
}

func TestCatalog_RegisterDuplicatePanics(t *testing.T) {
	c := NewCatalog()
	c.Register("a.B", func() any { return 1 })
	require.Panics(t, func() { c.Register("a.B", func() any { return 2 }) })
	require.Equal(t, []string{"a.B"}, c.Names())
}

func TestPathLoader_SearchPath(t *testing.T) {
	c := NewCatalog()
	c.Register("example.com/app/model.Order", func() any { return "order" })
	c.Register("example.com/other.Thing", func() any { return "thing" })

	l := NewPathLoader(c, "example.com/app")

	v, err := Instantiate(l, "example.com/app/model.Order")
	require.NoError(t, err)
	assert.Equal(t, "order", v)

	_, err = Instantiate(l, "example.com/other.Thing")
	require.ErrorIs(t, err, ErrClassNotFound)

	_, err = Instantiate(l, "example.com/app/model.Missing")
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestPathLoader_CloneIsIndependent(t *testing.T) {
	c := NewCatalog()
	l := NewPathLoader(c, "a", "b")

	clone := l.Clone()
	require.NotSame(t, l, clone)

	sp, ok := clone.(SearchPathLoader)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, sp.SearchPath())

	path := l.SearchPath()
	path[0] = "z"
	assert.Equal(t, []string{"a", "b"}, l.SearchPath())
}

func TestCatalogLoader(t *testing.T) {
	c := NewCatalog()
	c.Register("p.Q", func() any { return &widget{} })
	l := NewCatalogLoader(c)

	v, err := Instantiate(l, "p.Q")
	require.NoError(t, err)
	assert.IsType(t, &widget{}, v)

	_, err = l.LoadClass("does.not.Exist")
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestInstantiate_NilConstructorResult(t *testing.T) {
	c := NewCatalog()
	c.Register("p.Nil", func() any { return nil })
	_, err := Instantiate(NewCatalogLoader(c), "p.Nil")
	require.Error(t, err)
}
