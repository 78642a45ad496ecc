package unitinfo

import (
	"context"
	"database/sql"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/persistunits/internal/classload"
	"github.com/vk/persistunits/internal/classreg"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/descriptor"
)

type fakeDataSource struct{ id int }

func (fakeDataSource) PingContext(context.Context) error { return nil }

type resolveCall struct {
	JTA        bool
	UseDefault bool
	Name       sql.NullString
}

// countingResolver hands out a new data source on every call.
type countingResolver struct {
	calls []resolveCall
}

func (r *countingResolver) resolve(jta, useDefault bool, name sql.NullString) datasource.DataSource {
	r.calls = append(r.calls, resolveCall{JTA: jta, UseDefault: useDefault, Name: name})
	return &fakeDataSource{id: len(r.calls)}
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func boolPtr(b bool) *bool { return &b }

var root = descriptor.FileURL("/app/")

func TestSynthesize_Defaults(t *testing.T) {
	r := &countingResolver{}
	u, err := Synthesize(&descriptor.RawUnit{Name: "orders"}, classreg.New(), root, r.resolve)
	require.NoError(t, err)

	assert.Equal(t, "orders", u.Name())
	assert.Equal(t, DefaultSchemaVersion, u.SchemaVersion())
	assert.True(t, u.ExcludeUnlistedClasses())
	assert.Equal(t, JTA, u.TransactionType())
	assert.Equal(t, CacheUnspecified, u.SharedCacheMode())
	assert.Equal(t, ValidationAuto, u.ValidationMode())
	assert.Empty(t, u.ManagedClassNames())
	assert.NotNil(t, u.Properties())
	assert.Equal(t, "file:/app/", u.RootURL().String())
}

func TestSynthesize_RejectsMissingInputs(t *testing.T) {
	r := &countingResolver{}

	_, err := Synthesize(nil, nil, root, r.resolve)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Synthesize(&descriptor.RawUnit{}, nil, nil, r.resolve)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Synthesize(&descriptor.RawUnit{}, nil, root, nil)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Synthesize(&descriptor.RawUnit{TransactionType: descriptor.TransactionType(9)}, nil, root, r.resolve)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestSynthesize_MergePolicy(t *testing.T) {
	reg := classreg.New()
	reg.Record("shop.Order", "orders")
	reg.Record("shop.Audit", "audit")
	reg.Record("shop.Money")
	reg.Record("shop.Blank", "")
	reg.Seal()

	cases := []struct {
		name    string
		raw     *descriptor.RawUnit
		want    []string
		exclude bool
	}{
		{
			name:    "unset flag merges but reports exclude",
			raw:     &descriptor.RawUnit{Name: "orders", Classes: []string{"shop.Line"}},
			want:    []string{"shop.Line", "shop.Order", "shop.Money"},
			exclude: true,
		},
		{
			name:    "unset flag on an unnamed unit skips unassigned",
			raw:     &descriptor.RawUnit{},
			want:    []string{"shop.Blank"},
			exclude: true,
		},
		{
			name:    "explicit exclude",
			raw:     &descriptor.RawUnit{Name: "orders", Classes: []string{"shop.Line"}, ExcludeUnlistedClasses: boolPtr(true)},
			want:    []string{"shop.Line"},
			exclude: true,
		},
		{
			name: "include merges own bucket and unassigned",
			raw:  &descriptor.RawUnit{Name: "orders", Classes: []string{"shop.Line"}, ExcludeUnlistedClasses: boolPtr(false)},
			want: []string{"shop.Line", "shop.Order", "shop.Money"},
		},
		{
			name: "listed class is not duplicated by the merge",
			raw:  &descriptor.RawUnit{Name: "orders", Classes: []string{"shop.Order", "shop.Order"}, ExcludeUnlistedClasses: boolPtr(false)},
			want: []string{"shop.Order", "shop.Money"},
		},
		{
			name: "unnamed unit only sees its own bucket",
			raw:  &descriptor.RawUnit{ExcludeUnlistedClasses: boolPtr(false)},
			want: []string{"shop.Blank"},
		},
		{
			name: "unknown unit still sees unassigned classes",
			raw:  &descriptor.RawUnit{Name: "billing", ExcludeUnlistedClasses: boolPtr(false)},
			want: []string{"shop.Money"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := Synthesize(tc.raw, reg, root, (&countingResolver{}).resolve)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, u.ManagedClassNames()); diff != "" {
				t.Errorf("managed classes mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.exclude, u.ExcludeUnlistedClasses())
		})
	}
}

func TestUnitInfo_DataSourcesResolvedOnEveryCall(t *testing.T) {
	r := &countingResolver{}
	u, err := Synthesize(&descriptor.RawUnit{Name: "orders", JTADataSource: nullString("A")}, nil, root, r.resolve)
	require.NoError(t, err)

	first := u.JTADataSource()
	second := u.JTADataSource()
	require.NotNil(t, first)
	assert.NotSame(t, first, second)
	assert.Equal(t, []resolveCall{
		{JTA: true, UseDefault: true, Name: nullString("A")},
		{JTA: true, UseDefault: true, Name: nullString("A")},
	}, r.calls)

	// Absent non-JTA name with no default never reaches the resolver.
	assert.Nil(t, u.NonJTADataSource())
	assert.Len(t, r.calls, 2)
}

func TestUnitInfo_StableResolverYieldsSameHandle(t *testing.T) {
	shared := &fakeDataSource{id: 1}
	calls := 0
	resolve := func(bool, bool, sql.NullString) datasource.DataSource {
		calls++
		return shared
	}
	u, err := Synthesize(&descriptor.RawUnit{Name: "orders", JTADataSource: nullString("A")}, nil, root, resolve)
	require.NoError(t, err)

	first := u.JTADataSource()
	assert.Same(t, shared, first)
	assert.Same(t, first, u.JTADataSource())
	assert.Equal(t, 2, calls, "each call goes back to the resolver")
}

func TestUnitInfo_JTAUsesDefaultOnlyWithoutNonJTA(t *testing.T) {
	r := &countingResolver{}
	raw := &descriptor.RawUnit{
		Name:             "orders",
		JTADataSource:    nullString("A"),
		NonJTADataSource: nullString("B"),
	}
	u, err := Synthesize(raw, nil, root, r.resolve)
	require.NoError(t, err)

	u.JTADataSource()
	u.NonJTADataSource()
	assert.Equal(t, []resolveCall{
		{JTA: true, UseDefault: false, Name: nullString("A")},
		{JTA: false, UseDefault: false, Name: nullString("B")},
	}, r.calls)
}

func TestUnitInfo_JTAAbsentStillAsksForDefault(t *testing.T) {
	r := &countingResolver{}
	u, err := Synthesize(&descriptor.RawUnit{}, nil, root, r.resolve)
	require.NoError(t, err)

	assert.NotNil(t, u.JTADataSource())
	assert.Equal(t, []resolveCall{{JTA: true, UseDefault: true}}, r.calls)
}

func TestUnitInfo_ReturnsCopies(t *testing.T) {
	jar := descriptor.FileURL("/app/lib/model.jar")
	raw := &descriptor.RawUnit{
		Name:         "orders",
		Classes:      []string{"shop.Order"},
		MappingFiles: []string{"orm.xml"},
		JarFileURLs:  []*url.URL{jar},
		Properties:   map[string]string{"k": "v"},
	}
	u, err := Synthesize(raw, nil, root, (&countingResolver{}).resolve)
	require.NoError(t, err)

	u.ManagedClassNames()[0] = "mutated"
	u.MappingFileNames()[0] = "mutated"
	u.Properties()["k"] = "mutated"
	u.JarFileURLs()[0].Path = "/mutated"
	u.RootURL().Path = "/mutated"

	assert.Equal(t, []string{"shop.Order"}, u.ManagedClassNames())
	assert.Equal(t, []string{"orm.xml"}, u.MappingFileNames())
	v, ok := u.Property("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, "/app/lib/model.jar", u.JarFileURLs()[0].Path)
	assert.Equal(t, "/app/", u.RootURL().Path)

	// Mutating the input after synthesis does not leak in either.
	raw.Classes[0] = "late"
	raw.Properties["k"] = "late"
	assert.Equal(t, []string{"shop.Order"}, u.ManagedClassNames())
	v, _ = u.Property("k")
	assert.Equal(t, "v", v)
}

func TestUnitInfo_TempClassLoader(t *testing.T) {
	catalog := classload.NewCatalog()
	path := classload.NewPathLoader(catalog, "shop")

	u, err := Synthesize(&descriptor.RawUnit{}, nil, root, (&countingResolver{}).resolve, WithClassLoader(path))
	require.NoError(t, err)
	assert.Same(t, path, u.ClassLoader())

	first := u.NewTempClassLoader()
	second := u.NewTempClassLoader()
	require.NotNil(t, first)
	assert.NotSame(t, first, second)
	assert.Equal(t, []string{"shop"}, first.(classload.SearchPathLoader).SearchPath())

	plain := classload.NewCatalogLoader(catalog)
	u, err = Synthesize(&descriptor.RawUnit{}, nil, root, (&countingResolver{}).resolve, WithClassLoader(plain))
	require.NoError(t, err)
	assert.Same(t, plain, u.NewTempClassLoader())

	calls := 0
	u, err = Synthesize(&descriptor.RawUnit{}, nil, root, (&countingResolver{}).resolve,
		WithClassLoader(plain),
		WithTempClassLoader(func() classload.Loader {
			calls++
			return nil
		}))
	require.NoError(t, err)
	assert.Same(t, plain, u.NewTempClassLoader())
	u.NewTempClassLoader()
	assert.Equal(t, 2, calls)
}

func TestUnitInfo_AddTransformer(t *testing.T) {
	var got []Transformer
	u, err := Synthesize(&descriptor.RawUnit{}, nil, root, (&countingResolver{}).resolve,
		WithTransformerConsumer(func(tr Transformer) { got = append(got, tr) }))
	require.NoError(t, err)

	u.AddTransformer(func(_ string, b []byte) ([]byte, error) { return b, nil })
	u.AddTransformer(nil)
	assert.Len(t, got, 1)

	bare, err := Synthesize(&descriptor.RawUnit{}, nil, root, (&countingResolver{}).resolve)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		bare.AddTransformer(func(_ string, b []byte) ([]byte, error) { return b, nil })
	})
}

func TestNew(t *testing.T) {
	r := &countingResolver{}

	u, err := New("orders", root, []string{"shop.Order"}, r.resolve, map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.True(t, u.ExcludeUnlistedClasses())
	assert.Equal(t, []string{"shop.Order"}, u.ManagedClassNames())
	assert.Equal(t, map[string]string{"a": "b"}, u.Properties())

	u, err = New("scratch", root, nil, r.resolve, nil)
	require.NoError(t, err)
	assert.False(t, u.ExcludeUnlistedClasses())
	assert.Empty(t, u.ManagedClassNames())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "RESOURCE_LOCAL", ResourceLocal.String())
	assert.Equal(t, "ENABLE_SELECTIVE", CacheEnableSelective.String())
	assert.Equal(t, "CALLBACK", ValidationCallback.String())
	assert.Equal(t, "TransactionType(0)", TransactionType(0).String())
}
