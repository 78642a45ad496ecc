// Package registry is the provider registry persistence units are bound
// against.
//
// Built-in modules register their provider instances, the Go types a unit
// may name as its provider, and the configuration struct each provider reads
// from unit properties. During startup the registry is populated once and
// then handed to the binder, which registers every known provider with the
// host container.
//
// Unit properties are validated against the provider's configuration struct
// so that a typo in a numeric or boolean property is reported before the
// provider ever sees it.
package registry
