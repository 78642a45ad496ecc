package tracing

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/persistunits/internal/ctxlog"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/descriptor"
	"github.com/vk/persistunits/internal/registry"
	"github.com/vk/persistunits/internal/unitinfo"
)

func TestCreateFactory_Logs(t *testing.T) {
	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	var transformers []unitinfo.Transformer
	resolve := func(bool, bool, sql.NullString) datasource.DataSource { return nil }
	u, err := unitinfo.New("audit", descriptor.FileURL("/app/"), []string{"shop.Event"}, resolve, nil,
		unitinfo.WithTransformerConsumer(func(tr unitinfo.Transformer) { transformers = append(transformers, tr) }))
	require.NoError(t, err)

	f, err := (&Provider{}).CreateFactory(ctx, u, map[string]string{"tracing.label": "blue", "tracing.debug": "true"})
	require.NoError(t, err)
	assert.Equal(t, "audit", f.UnitName())
	require.Len(t, transformers, 1)

	out, err := transformers[0]("shop.Event", []byte("abc"))
	require.NoError(t, err)
	assert.Nil(t, out)
	require.NoError(t, f.Close())

	logs := buf.String()
	assert.Contains(t, logs, "level=DEBUG")
	assert.Contains(t, logs, "Tracing factory created.")
	assert.Contains(t, logs, "label=blue")
	assert.Contains(t, logs, "Class definition seen.")
	assert.Contains(t, logs, "Tracing factory closed.")
}

func TestCreateFactory_BadProperty(t *testing.T) {
	resolve := func(bool, bool, sql.NullString) datasource.DataSource { return nil }
	u, err := unitinfo.New("audit", descriptor.FileURL("/app/"), nil, resolve, nil)
	require.NoError(t, err)

	_, err = (&Provider{}).CreateFactory(context.Background(), u, map[string]string{"tracing.debug": "maybe"})
	require.Error(t, err)
}

func TestModule_RegistersClassOnly(t *testing.T) {
	reg := registry.Load(context.Background(), &Module{})
	assert.Empty(t, reg.ProviderNames())
	_, ok := reg.Catalog().Lookup(ProviderName)
	assert.True(t, ok)
}
