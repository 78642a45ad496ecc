package app

import (
	"errors"
	"fmt"

	"github.com/vk/persistunits/internal/datasource"
	"github.com/vk/persistunits/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Roots        []string // directories searched for META-INF descriptors
	ScanDir      string   // working directory of the type scanner
	ScanPatterns []string // package patterns; none disables scanning
	ScanTests    bool

	DataSources     []datasource.Config
	Strict          bool // fail on property validation errors instead of warning
	CreateFactories bool // ask each unit's provider for a factory after the pass

	Format    report.Format
	Filter    string
	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("at least one descriptor root is required")
	}
	if cfg.Format == "" {
		cfg.Format = report.FormatText
	}
	if _, err := report.ParseFormat(string(cfg.Format)); err != nil {
		return nil, err
	}
	if _, err := report.CompileFilter(cfg.Filter); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(cfg.DataSources))
	for _, ds := range cfg.DataSources {
		if _, dup := seen[ds.Name]; dup {
			return nil, fmt.Errorf("data source %q is configured twice", ds.Name)
		}
		seen[ds.Name] = struct{}{}
	}

	return &cfg, nil
}
