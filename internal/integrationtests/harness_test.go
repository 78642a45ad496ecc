package integrationtests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/persistunits/internal/app"
	"github.com/vk/persistunits/internal/report"
	"github.com/vk/persistunits/internal/testutil"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// RunIntegrationTest writes files into a temporary root, runs one JSON
// reporting pass over it and returns what happened. mutate may adjust the
// configuration before it is validated.
func RunIntegrationTest(t *testing.T, files map[string]string, mutate func(cfg *app.Config)) *HarnessResult {
	t.Helper()

	root := testutil.WriteTree(t, files)
	cfg := app.Config{
		Roots:     []string{root},
		ScanDir:   root,
		Format:    report.FormatJSON,
		LogFormat: "text",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	var testApp *app.App
	var out, logs *testutil.SafeBuffer
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp, out, logs = app.SetupAppTest(t, validated)
	}()
	if panicErr != nil {
		return &HarnessResult{Err: fmt.Errorf("application startup panicked | %v", panicErr)}
	}

	runErr := testApp.Run(context.Background())
	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       runErr,
		App:       testApp,
	}
}
