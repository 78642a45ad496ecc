// Package classreg accumulates the managed types found during a single
// discovery pass, indexed by the persistence unit they declare.
//
// Types that declare no unit are filed under the Unassigned key. Synthesis
// later treats those as belonging to every named unit that does not exclude
// unlisted classes. The registry is written only while scanning and is sealed
// before descriptors are processed.
package classreg
