// Package container is the host component registry persistence units and
// providers are handed to.
//
// Registrations are lazy singletons: a factory runs on the first Get and its
// result is kept for every later Get. A failed factory is not cached, so the
// next Get tries again. Lookups are by Go type, optionally narrowed by a
// qualifier name, and every registration can carry opaque metadata that
// callers read without instantiating the singleton.
//
// The container also tracks scanned component types by name. Types claimed
// by another subsystem are vetoed and never become ordinary components.
package container
