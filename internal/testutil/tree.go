// Package testutil holds helpers shared by package and integration tests.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/persistunits/internal/ctxlog"
)

// LogsEnv enables dumping captured logs at the end of a test.
const LogsEnv = "PERSISTUNITS_TEST_LOGS"

// WriteTree creates a temporary directory holding files, keyed by slash
// separated relative path, and returns its absolute path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// LogContext returns a context carrying a debug text logger that writes to
// the returned buffer.
func LogContext(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()

	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	DumpLogsOnCleanup(t, buf)
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// DumpLogsOnCleanup logs buf at the end of t when LogsEnv is "true".
func DumpLogsOnCleanup(t *testing.T, buf *SafeBuffer) {
	t.Helper()
	t.Cleanup(func() {
		if os.Getenv(LogsEnv) == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
}
