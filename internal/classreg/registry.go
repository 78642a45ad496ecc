package classreg

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
)

// Key identifies a bucket in the Registry. It is either a named unit or the
// reserved unassigned bucket; Named("") is a real unit name and never
// collides with Unassigned().
type Key struct {
	name     string
	assigned bool
}

// Named returns the key for the unit with the given name.
func Named(name string) Key {
	return Key{name: name, assigned: true}
}

// Unassigned returns the key for types that declare no unit.
func Unassigned() Key {
	return Key{}
}

// Name returns the unit name and whether the key is a named unit.
func (k Key) Name() (string, bool) {
	return k.name, k.assigned
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if !k.assigned {
		return "<unassigned>"
	}
	return fmt.Sprintf("%q", k.name)
}

// Registry maps unit keys to sets of fully-qualified type names.
type Registry struct {
	buckets map[Key]map[string]struct{}
	sealed  bool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{buckets: make(map[Key]map[string]struct{})}
}

// Record files className under every unit in units, or under the unassigned
// bucket when units is empty. Duplicate inserts collapse.
func (r *Registry) Record(className string, units ...string) {
	if r.sealed {
		panic(fmt.Sprintf("managed class '%s' recorded after the registry was sealed", className))
	}
	if len(units) == 0 {
		r.add(Unassigned(), className)
		return
	}
	for _, unit := range units {
		r.add(Named(unit), className)
	}
}

func (r *Registry) add(key Key, className string) {
	set, ok := r.buckets[key]
	if !ok {
		set = make(map[string]struct{})
		r.buckets[key] = set
	}
	if _, exists := set[className]; exists {
		return
	}
	slog.Debug("Recording managed class.", "class", className, "unit", key.String())
	set[className] = struct{}{}
}

// Seal freezes the registry. Any later Record call panics.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Classes returns a sorted copy of the type names filed under key.
func (r *Registry) Classes(key Key) []string {
	set := r.buckets[key]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Keys returns every key that holds at least one type, named units first in
// name order, followed by the unassigned bucket.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.buckets))
	for k, set := range r.buckets {
		if len(set) > 0 {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if a.assigned != b.assigned {
			if a.assigned {
				return -1
			}
			return 1
		}
		if a.name < b.name {
			return -1
		}
		if a.name > b.name {
			return 1
		}
		return 0
	})
	return keys
}

// Len returns the number of distinct (type, unit) entries.
func (r *Registry) Len() int {
	n := 0
	for _, set := range r.buckets {
		n += len(set)
	}
	return n
}
