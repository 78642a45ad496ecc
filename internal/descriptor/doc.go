// Package descriptor turns persistence descriptor resources into raw unit
// descriptors.
//
// Loading is split in two steps. A format-specific Unmarshaller (XML, YAML,
// HCL or JSON) decodes a resource's bytes into the format-agnostic document
// tree rooted at Persistence. Parse then converts that tree into RawUnit
// values, applying defaults and resolving jar-file references against the
// descriptor's root location. Parse performs no I/O.
package descriptor
