package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that every fragment appears in logs on one line.
func AssertLogged(t *testing.T, logs string, fragments ...string) {
	t.Helper()

	for _, line := range strings.Split(logs, "\n") {
		if containsAll(line, fragments) {
			return
		}
	}
	require.Failf(t, "log line not found", "no line contains all of %q", fragments)
}

func containsAll(s string, fragments []string) bool {
	for _, f := range fragments {
		if !strings.Contains(s, f) {
			return false
		}
	}
	return true
}
