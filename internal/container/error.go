package container

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNotFound reports a lookup that matched no registration.
	ErrNotFound = errors.New("container: registration not found")

	// ErrAmbiguous reports a lookup that matched more than one registration.
	ErrAmbiguous = errors.New("container: ambiguous registration")

	// ErrCloseFailed reports a closer that returned an error.
	ErrCloseFailed = errors.New("container: close failed")
)

// NewErrNotFound builds an ErrNotFound naming the requested type and qualifier.
func NewErrNotFound(t reflect.Type, name string) error {
	return fmt.Errorf("no %s%s: %w", t, qualifierSuffix(name), ErrNotFound)
}

// NewErrAmbiguous builds an ErrAmbiguous naming the requested type and the
// number of candidates.
func NewErrAmbiguous(t reflect.Type, name string, n int) error {
	return fmt.Errorf("%d candidates for %s%s: %w", n, t, qualifierSuffix(name), ErrAmbiguous)
}

// NewErrCloseFailed wraps a closer error with the registration it came from.
func NewErrCloseFailed(reg *Registration, err error) error {
	return fmt.Errorf("close %s: %w: %w", reg, ErrCloseFailed, err)
}

func qualifierSuffix(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf(" named %q", name)
}
