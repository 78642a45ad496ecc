package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/persistunits/internal/app"
	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/report"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// listFlag collects the values of a repeatable flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("persistunits", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
persistunits - Assembles persistence units from descriptors and scanned types.

Usage:
  persistunits [options] [ROOT...]

Arguments:
  ROOT
    Directory searched for META-INF/persistence.{xml,yaml,yml,hcl,json}.

Options:
`)
		flagSet.PrintDefaults()
	}

	var roots, scanPatterns, dataSources listFlag
	flagSet.Var(&roots, "root", "Descriptor root directory. Repeatable.")
	flagSet.Var(&scanPatterns, "scan", "Go package pattern scanned for persistence directives. Repeatable.")
	flagSet.Var(&dataSources, "datasource", "Data source as name=driver:dsn. Repeatable. The 'memory' driver is always available.")
	scanDirFlag := flagSet.String("scan-dir", "", "Working directory of the package scanner.")
	scanTestsFlag := flagSet.Bool("scan-tests", false, "Include test files when scanning.")
	strictFlag := flagSet.Bool("strict", false, "Fail when a unit's properties do not fit its provider.")
	createFlag := flagSet.Bool("create-factories", false, "Ask each unit's provider for a factory after registration.")
	formatFlag := flagSet.String("format", "text", "Report format. Options: 'text', 'json' or 'dump'.")
	filterFlag := flagSet.String("filter", "", "Expression selecting report rows, e.g. 'len(Classes) > 0'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	roots = append(roots, flagSet.Args()...)
	if len(roots) == 0 {
		slog.Debug("No descriptor root provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	var configs []datasource.Config
	for _, s := range dataSources {
		cfg, err := datasource.ParseConfig(s)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		configs = append(configs, cfg)
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Roots:           roots,
		ScanDir:         *scanDirFlag,
		ScanPatterns:    scanPatterns,
		ScanTests:       *scanTestsFlag,
		DataSources:     configs,
		Strict:          *strictFlag,
		CreateFactories: *createFlag,
		Format:          format,
		Filter:          *filterFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "roots", config.Roots)
	return config, false, nil
}
