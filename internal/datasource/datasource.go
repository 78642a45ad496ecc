// Package datasource defines data-source handles and the late-binding
// resolver persistence units use to obtain them.
package datasource

import (
	"context"
	"database/sql"
)

// DataSource is a handle on a configured connection pool. *sql.DB satisfies it.
type DataSource interface {
	PingContext(ctx context.Context) error
}

// Resolver maps a (jta, useDefault, name) triple to a data source at the
// moment it is needed. A nil result means "no data source"; the caller
// decides whether that matters. Implementations must not assume they are
// called once: units invoke the resolver on every access.
type Resolver func(jta, useDefault bool, name sql.NullString) DataSource

// Resolve applies the short-circuit rule shared by every unit: an absent
// name without useDefault resolves to nothing without calling r.
func Resolve(r Resolver, jta, useDefault bool, name sql.NullString) DataSource {
	if !name.Valid && !useDefault {
		return nil
	}
	if r == nil {
		return nil
	}
	return r(jta, useDefault, name)
}
