package report

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/vk/persistunits/internal/classreg"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/descriptor"
	"github.com/vk/persistunits/internal/pipeline"
	"github.com/vk/persistunits/internal/unitinfo"
)

func nilResolver(bool, bool, sql.NullString) datasource.DataSource { return nil }

func sampleReport(t *testing.T) *Report {
	t.Helper()
	root := descriptor.FileURL("/app/")
	orders, err := unitinfo.New("orders", root, []string{"shop.Order", "shop.Line"}, nilResolver,
		map[string]string{"inmemory.capacity": "10", "plain": "x"})
	require.NoError(t, err)
	empty, err := unitinfo.New("", root, nil, nilResolver, nil)
	require.NoError(t, err)

	classes := classreg.New()
	classes.Record("shop.Money")
	classes.Record("shop.Order", "orders")
	classes.Seal()

	return FromResult(&pipeline.Result{
		Classes: classes,
		Units:   []*unitinfo.UnitInfo{orders, empty},
	}, []string{"shop.Service"})
}

func TestFromResult(t *testing.T) {
	r := sampleReport(t)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, []string{"shop.Money"}, r.Unassigned)
	assert.Equal(t, []string{"shop.Service"}, r.Components)

	want := Row{
		Unit:            "orders",
		Root:            "file:/app/",
		SchemaVersion:   unitinfo.DefaultSchemaVersion,
		TransactionType: unitinfo.JTA.String(),
		SharedCacheMode: unitinfo.CacheUnspecified.String(),
		ValidationMode:  unitinfo.ValidationAuto.String(),
		Exclude:         true,
		Classes:         []string{"shop.Order", "shop.Line"},
		Properties:      map[string]string{"inmemory.capacity": "10", "plain": "x"},
	}
	if diff := cmp.Diff(want, r.Rows[0], cmp.Transformer("nilSlices", func(s []string) []string {
		if len(s) == 0 {
			return nil
		}
		return s
	})); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(t), FormatText))
	out := buf.String()
	assert.Contains(t, out, "UNIT")
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "<unnamed>")
	assert.Contains(t, out, "unassigned: shop.Money")
	assert.Contains(t, out, "2 unit(s) from 0 descriptor(s), 1 component(s)")
}

func TestJSON(t *testing.T) {
	doc, err := JSON(sampleReport(t))
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(doc))

	assert.Equal(t, int64(2), gjson.GetBytes(doc, "units.#").Int())
	assert.Equal(t, "orders", gjson.GetBytes(doc, "units.0.name").String())
	assert.Equal(t, "10", gjson.GetBytes(doc, `units.0.properties.inmemory\.capacity`).String())
	assert.Equal(t, "shop.Line", gjson.GetBytes(doc, "units.0.classes.1").String())
	assert.True(t, gjson.GetBytes(doc, "units.1.classes").IsArray())
	assert.Equal(t, "shop.Money", gjson.GetBytes(doc, "unassigned.0").String())
}

func TestWrite_Dump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(t), FormatDump))
	assert.Contains(t, buf.String(), `Unit: (string) (len=6) "orders"`)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("yaml")
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	r := sampleReport(t)

	testCases := []struct {
		name   string
		source string
		want   []string
	}{
		{name: "empty matches all", source: "", want: []string{"orders", ""}},
		{name: "by name", source: `Unit == "orders"`, want: []string{"orders"}},
		{name: "by class count", source: `len(Classes) == 0`, want: []string{""}},
		{name: "by property", source: `Properties["plain"] == "x"`, want: []string{"orders"}},
		{name: "none", source: `Exclude && Unit == "nope"`, want: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := CompileFilter(tc.source)
			require.NoError(t, err)
			out, err := f.Apply(r)
			require.NoError(t, err)
			var got []string
			for _, row := range out.Rows {
				got = append(got, row.Unit)
			}
			assert.Equal(t, tc.want, got)
			assert.Len(t, r.Rows, 2, "input is not modified")
		})
	}
}

func TestCompileFilter_Errors(t *testing.T) {
	_, err := CompileFilter(`Unit +`)
	require.Error(t, err)

	_, err = CompileFilter(`Unit`)
	require.Error(t, err, "non-bool expressions are rejected")
	assert.True(t, strings.HasPrefix(err.Error(), "invalid filter"))
}
