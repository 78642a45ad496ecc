package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MemoryDriver names the in-process driver that needs no database/sql driver.
const MemoryDriver = "memory"

// DefaultName is the data-source name tried first when a unit asks for the
// default data source.
const DefaultName = "default"

// ErrDriverNotRegistered reports a data-source config whose driver is not
// linked into the binary.
var ErrDriverNotRegistered = errors.New("data-source driver not registered")

// Config describes one named data source.
type Config struct {
	Name   string
	Driver string
	DSN    string
}

// ParseConfig parses "name=driver:dsn". The DSN may itself contain ':'.
func ParseConfig(s string) (Config, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok {
		return Config{}, fmt.Errorf("data source %q: expected name=driver:dsn", s)
	}
	driver, dsn, ok := strings.Cut(rest, ":")
	if !ok {
		return Config{}, fmt.Errorf("data source %q: expected name=driver:dsn", s)
	}
	cfg := Config{
		Name:   strings.TrimSpace(name),
		Driver: strings.TrimSpace(driver),
		DSN:    dsn,
	}
	if cfg.Name == "" || cfg.Driver == "" {
		return Config{}, fmt.Errorf("data source %q: name and driver must not be empty", s)
	}
	return cfg, nil
}

func (c Config) String() string {
	return c.Name + "=" + c.Driver + ":" + c.DSN
}

// Open creates the data source described by cfg. Nothing is dialled here;
// *sql.DB connects lazily and Memory never connects.
func Open(cfg Config) (DataSource, error) {
	if cfg.Driver == MemoryDriver {
		return &Memory{name: cfg.Name, dsn: cfg.DSN}, nil
	}
	if !slices.Contains(sql.Drivers(), cfg.Driver) {
		return nil, fmt.Errorf("%w: %s (data source %s)", ErrDriverNotRegistered, cfg.Driver, cfg.Name)
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening data source %s: %w", cfg.Name, err)
	}
	return db, nil
}

// Close releases ds when it holds resources.
func Close(ds DataSource) error {
	if c, ok := ds.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Memory is an in-process data source. It is always reachable.
type Memory struct {
	name string
	dsn  string
}

// PingContext implements DataSource.
func (m *Memory) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the data source's configured name.
func (m *Memory) Name() string { return m.name }

// DSN returns the data source's connection string.
func (m *Memory) DSN() string { return m.dsn }

func (m *Memory) String() string {
	return fmt.Sprintf("memory:%s(%s)", m.name, m.dsn)
}
